// Package crypto implements the cryptographic capabilities the DID engine
// consumes: key generation, JWS signing and verification, JWK and PEM
// import/export, and multibase/multicodec key encoding.
package crypto

import (
	gocrypto "crypto"
	"errors"
	"fmt"
)

// Algorithm is a JWS algorithm identifier.
type Algorithm string

// Supported algorithms. EdDSA, ES256 and ES256K can be generated; RS256 and
// PS256 are accepted for verification of imported RSA keys only.
const (
	EdDSA  Algorithm = "EdDSA"
	ES256  Algorithm = "ES256"
	ES256K Algorithm = "ES256K"
	RS256  Algorithm = "RS256"
	PS256  Algorithm = "PS256"
)

// DefaultAlgorithm is used when a caller does not choose one.
const DefaultAlgorithm = EdDSA

var (
	// ErrUnsupportedAlgorithm is returned for algorithm identifiers the provider rejects.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrMalformedKey is returned when key material cannot be decoded or does not fit the algorithm.
	ErrMalformedKey = errors.New("malformed key")
)

// KeyPair is an asymmetric key pair produced by a Provider.
type KeyPair struct {
	Type    KeyType
	Public  gocrypto.PublicKey
	Private gocrypto.PrivateKey
}

// Provider is the set of cryptographic operations the DID engine relies on.
type Provider interface {
	// GenerateKeyPair creates a signing key pair for alg.
	GenerateKeyPair(alg Algorithm) (*KeyPair, error)
	// GenerateAgreementKeyPair creates an X25519 key agreement key pair.
	GenerateAgreementKeyPair() (*KeyPair, error)

	// Sign signs data with priv, returning the raw JWS signature bytes.
	Sign(alg Algorithm, priv gocrypto.PrivateKey, data []byte) ([]byte, error)
	// Verify reports whether sig is a valid alg signature of data under pub.
	// A signature mismatch is (false, nil); errors are reserved for unusable input.
	Verify(alg Algorithm, pub gocrypto.PublicKey, data, sig []byte) (bool, error)

	ImportJWK(jwk *JWK) (gocrypto.PublicKey, error)
	ExportJWK(pub gocrypto.PublicKey) (*JWK, error)
	ImportPKCS8PEM(data string) (gocrypto.PrivateKey, error)
	ExportPKCS8PEM(priv gocrypto.PrivateKey) (string, error)
	ImportSPKIPEM(data string) (gocrypto.PublicKey, error)
	ExportSPKIPEM(pub gocrypto.PublicKey) (string, error)

	// EncodeMultibase encodes a public or private key under the given multicodec header.
	EncodeMultibase(key any, codec Multicodec) (string, error)
	// DecodeMultibase decodes a public key and checks its multicodec header.
	DecodeMultibase(value string, codec Multicodec) (gocrypto.PublicKey, error)
	// DecodeMultikey decodes a public key, reporting which multicodec header it carried.
	DecodeMultikey(value string) (Multicodec, gocrypto.PublicKey, error)
}

// ParseAlgorithm validates an algorithm identifier. An empty string selects
// DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return DefaultAlgorithm, nil
	}

	switch alg := Algorithm(s); alg {
	case EdDSA, ES256, ES256K, RS256, PS256:
		return alg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// CanGenerate reports whether key pairs can be generated for alg.
func (a Algorithm) CanGenerate() bool {
	switch a {
	case EdDSA, ES256, ES256K:
		return true
	default:
		return false
	}
}

// KeyType returns the key type alg operates on.
func (a Algorithm) KeyType() (KeyType, error) {
	switch a {
	case EdDSA:
		return KeyTypeEd25519, nil
	case ES256:
		return KeyTypeP256, nil
	case ES256K:
		return KeyTypeSecp256k1, nil
	case RS256, PS256:
		return KeyTypeRSA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(a))
	}
}

func (a Algorithm) String() string {
	return string(a)
}
