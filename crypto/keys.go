package crypto

import (
	gocrypto "crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// KeyType identifies the curve or family of a key.
type KeyType string

// Key types known to the provider.
const (
	KeyTypeEd25519   KeyType = "Ed25519"
	KeyTypeX25519    KeyType = "X25519"
	KeyTypeP256      KeyType = "P-256"
	KeyTypeSecp256k1 KeyType = "secp256k1"
	KeyTypeRSA       KeyType = "RSA"
)

// DefaultProvider is the stock Provider implementation.
type DefaultProvider struct{}

// NewDefaultProvider returns a Provider backed by the standard library,
// go-ethereum (secp256k1), go-jose (JWK) and golang-jwt (JWS).
func NewDefaultProvider() Provider {
	return &DefaultProvider{}
}

// GenerateKeyPair creates a signing key pair for alg.
func (p *DefaultProvider) GenerateKeyPair(alg Algorithm) (*KeyPair, error) {
	if !alg.CanGenerate() {
		return nil, fmt.Errorf("%w: cannot generate keys for %q", ErrUnsupportedAlgorithm, string(alg))
	}

	switch alg {
	case EdDSA:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		return &KeyPair{Type: KeyTypeEd25519, Public: pub, Private: priv}, nil
	case ES256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate p-256 key: %w", err)
		}
		return &KeyPair{Type: KeyTypeP256, Public: &priv.PublicKey, Private: priv}, nil
	default:
		priv, err := ethcrypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
		}
		return &KeyPair{Type: KeyTypeSecp256k1, Public: &priv.PublicKey, Private: priv}, nil
	}
}

// GenerateAgreementKeyPair creates an X25519 key agreement key pair.
func (p *DefaultProvider) GenerateAgreementKeyPair() (*KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate x25519 key: %w", err)
	}

	return &KeyPair{Type: KeyTypeX25519, Public: priv.PublicKey(), Private: priv}, nil
}

// KeyTypeOf reports the KeyType of a public or private key.
func KeyTypeOf(key any) (KeyType, error) {
	switch k := key.(type) {
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return "", fmt.Errorf("%w: ed25519 public key has %d bytes", ErrMalformedKey, len(k))
		}
		return KeyTypeEd25519, nil
	case ed25519.PrivateKey:
		if len(k) != ed25519.PrivateKeySize {
			return "", fmt.Errorf("%w: ed25519 private key has %d bytes", ErrMalformedKey, len(k))
		}
		return KeyTypeEd25519, nil
	case *ecdh.PublicKey:
		if k.Curve() == ecdh.X25519() {
			return KeyTypeX25519, nil
		}
	case *ecdh.PrivateKey:
		if k.Curve() == ecdh.X25519() {
			return KeyTypeX25519, nil
		}
	case *ecdsa.PublicKey:
		return curveKeyType(k.Curve)
	case *ecdsa.PrivateKey:
		return curveKeyType(k.Curve)
	case *rsa.PublicKey, *rsa.PrivateKey:
		return KeyTypeRSA, nil
	}

	return "", fmt.Errorf("%w: unsupported key type %T", ErrMalformedKey, key)
}

func curveKeyType(curve elliptic.Curve) (KeyType, error) {
	if curve == nil {
		return "", fmt.Errorf("%w: ecdsa key without curve", ErrMalformedKey)
	}
	if curve == elliptic.P256() {
		return KeyTypeP256, nil
	}
	if isSecp256k1(curve) {
		return KeyTypeSecp256k1, nil
	}

	return "", fmt.Errorf("%w: unsupported curve %s", ErrMalformedKey, curve.Params().Name)
}

func isSecp256k1(curve elliptic.Curve) bool {
	return curve.Params().P.Cmp(ethcrypto.S256().Params().P) == 0 &&
		curve.Params().N.Cmp(ethcrypto.S256().Params().N) == 0
}

// PublicKeyOf returns the public half of a private key.
func PublicKeyOf(priv gocrypto.PrivateKey) (gocrypto.PublicKey, error) {
	signer, ok := priv.(interface{ Public() gocrypto.PublicKey })
	if !ok {
		return nil, fmt.Errorf("%w: %T has no public key", ErrMalformedKey, priv)
	}

	return signer.Public(), nil
}

// AlgorithmFor returns the default signing algorithm of a key type.
func AlgorithmFor(kt KeyType) (Algorithm, error) {
	switch kt {
	case KeyTypeEd25519:
		return EdDSA, nil
	case KeyTypeP256:
		return ES256, nil
	case KeyTypeSecp256k1:
		return ES256K, nil
	case KeyTypeRSA:
		return PS256, nil
	default:
		return "", fmt.Errorf("%w: no signing algorithm for %s keys", ErrUnsupportedAlgorithm, kt)
	}
}

// EqualPublicKeys reports whether two public keys are the same key.
func EqualPublicKeys(a, b gocrypto.PublicKey) bool {
	ka, ok := a.(interface{ Equal(gocrypto.PublicKey) bool })
	if !ok {
		return false
	}

	if ecA, ok := a.(*ecdsa.PublicKey); ok {
		// secp256k1 keys may carry different curve implementations.
		ecB, ok := b.(*ecdsa.PublicKey)
		if !ok || ecA.X == nil || ecB.X == nil {
			return false
		}
		return ecA.X.Cmp(ecB.X) == 0 && ecA.Y.Cmp(ecB.Y) == 0 &&
			ecA.Curve.Params().P.Cmp(ecB.Curve.Params().P) == 0
	}

	return ka.Equal(b)
}

func checkKeyAlgorithm(alg Algorithm, key any) error {
	want, err := alg.KeyType()
	if err != nil {
		return err
	}

	got, err := KeyTypeOf(key)
	if err != nil {
		return err
	}

	if got != want {
		return fmt.Errorf("%w: %s key cannot be used with %s", ErrMalformedKey, got, alg)
	}

	return nil
}
