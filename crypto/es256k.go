package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethodES256K implements ES256K (ECDSA over secp256k1 with SHA-256)
// for golang-jwt.
type SigningMethodES256K struct{}

var es256kMethod = &SigningMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(es256kMethod.Alg(), func() jwt.SigningMethod {
		return es256kMethod
	})
}

// Alg returns the algorithm name.
func (m *SigningMethodES256K) Alg() string {
	return string(ES256K)
}

// Sign signs signingString with an *ecdsa.PrivateKey on secp256k1 and returns R || S.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	privKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}

	hash := sha256.Sum256([]byte(signingString))
	sig, err := ethcrypto.Sign(hash[:], privKey)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	return sig[:64], nil // drop the recovery id
}

// Verify verifies an R || S signature with an *ecdsa.PublicKey on secp256k1.
func (m *SigningMethodES256K) Verify(signingString string, sig []byte, key interface{}) error {
	publicKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}

	if len(sig) != 64 {
		return fmt.Errorf("%w: invalid signature length %d", jwt.ErrSignatureInvalid, len(sig))
	}

	hash := sha256.Sum256([]byte(signingString))
	if !ethcrypto.VerifySignature(ethcrypto.CompressPubkey(publicKey), hash[:], sig) {
		return jwt.ErrSignatureInvalid
	}

	return nil
}
