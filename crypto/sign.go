package crypto

import (
	gocrypto "crypto"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

func signingMethod(alg Algorithm) (jwt.SigningMethod, error) {
	if _, err := alg.KeyType(); err != nil {
		return nil, err
	}

	method := jwt.GetSigningMethod(string(alg))
	if method == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(alg))
	}

	return method, nil
}

// Sign signs data with priv using the JWS algorithm alg.
func (p *DefaultProvider) Sign(alg Algorithm, priv gocrypto.PrivateKey, data []byte) ([]byte, error) {
	method, err := signingMethod(alg)
	if err != nil {
		return nil, err
	}

	if err := checkKeyAlgorithm(alg, priv); err != nil {
		return nil, err
	}

	sig, err := method.Sign(string(data), priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with %s: %w", alg, err)
	}

	return sig, nil
}

// Verify checks an alg signature of data under pub.
func (p *DefaultProvider) Verify(alg Algorithm, pub gocrypto.PublicKey, data, sig []byte) (bool, error) {
	method, err := signingMethod(alg)
	if err != nil {
		return false, err
	}

	if err := checkKeyAlgorithm(alg, pub); err != nil {
		return false, err
	}

	if err := method.Verify(string(data), sig, pub); err != nil {
		if errors.Is(err, jwt.ErrInvalidKeyType) {
			return false, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return false, nil
	}

	return true, nil
}
