package crypto

import (
	gocrypto "crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	jose "github.com/go-jose/go-jose/v4"
)

// JWK is a public JSON Web Key as it appears in a DID Document.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	X5u string `json:"x5u,omitempty"`
}

// RequiredMembers returns the RFC 7638 required members of the key.
func (j *JWK) RequiredMembers() map[string]string {
	switch j.Kty {
	case "EC":
		return map[string]string{"kty": j.Kty, "crv": j.Crv, "x": j.X, "y": j.Y}
	case "OKP":
		return map[string]string{"kty": j.Kty, "crv": j.Crv, "x": j.X}
	case "RSA":
		return map[string]string{"kty": j.Kty, "n": j.N, "e": j.E}
	default:
		return map[string]string{"kty": j.Kty}
	}
}

// ImportJWK decodes the public key held by jwk.
func (p *DefaultProvider) ImportJWK(jwk *JWK) (gocrypto.PublicKey, error) {
	if jwk == nil {
		return nil, fmt.Errorf("%w: jwk is nil", ErrMalformedKey)
	}

	switch {
	case jwk.Kty == "EC" && jwk.Crv == "secp256k1":
		return importSecp256k1JWK(jwk)
	case jwk.Kty == "OKP" && jwk.Crv == "X25519":
		x, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid x25519 x: %v", ErrMalformedKey, err)
		}
		pub, err := ecdh.X25519().NewPublicKey(x)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return pub, nil
	case jwk.Kty == "OKP" && jwk.Crv == "Ed25519":
		// go-jose zero-pads a short x instead of rejecting it.
		x, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil || len(x) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: invalid ed25519 x", ErrMalformedKey)
		}
	}

	raw, err := json.Marshal(jwk.RequiredMembers())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	var key jose.JSONWebKey
	if err := key.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if !key.Valid() || !key.IsPublic() {
		return nil, fmt.Errorf("%w: jwk is not a valid public key", ErrMalformedKey)
	}

	return key.Key, nil
}

// ExportJWK encodes a public key as a JWK.
func (p *DefaultProvider) ExportJWK(pub gocrypto.PublicKey) (*JWK, error) {
	kt, err := KeyTypeOf(pub)
	if err != nil {
		return nil, err
	}

	switch kt {
	case KeyTypeSecp256k1:
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected public key, got %T", ErrMalformedKey, pub)
		}
		return &JWK{
			Kty: "EC",
			Crv: "secp256k1",
			X:   base64.RawURLEncoding.EncodeToString(ecPub.X.FillBytes(make([]byte, 32))),
			Y:   base64.RawURLEncoding.EncodeToString(ecPub.Y.FillBytes(make([]byte, 32))),
		}, nil
	case KeyTypeX25519:
		xPub, ok := pub.(*ecdh.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected public key, got %T", ErrMalformedKey, pub)
		}
		return &JWK{Kty: "OKP", Crv: "X25519", X: base64.RawURLEncoding.EncodeToString(xPub.Bytes())}, nil
	}

	key := jose.JSONWebKey{Key: pub}
	if !key.IsPublic() {
		return nil, fmt.Errorf("%w: expected public key, got %T", ErrMalformedKey, pub)
	}

	raw, err := key.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	var out JWK
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	return &out, nil
}

func importSecp256k1JWK(jwk *JWK) (gocrypto.PublicKey, error) {
	x, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil || len(x) != 32 {
		return nil, fmt.Errorf("%w: invalid secp256k1 x coordinate", ErrMalformedKey)
	}
	y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil || len(y) != 32 {
		return nil, fmt.Errorf("%w: invalid secp256k1 y coordinate", ErrMalformedKey)
	}

	uncompressed := make([]byte, 0, 65)
	uncompressed = append(uncompressed, 0x04)
	uncompressed = append(uncompressed, x...)
	uncompressed = append(uncompressed, y...)

	// ParsePubKey rejects points that are not on the curve.
	parsed, err := secp256k1.ParsePubKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	pub, err := ethcrypto.UnmarshalPubkey(parsed.SerializeUncompressed())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	return pub, nil
}
