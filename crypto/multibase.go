package crypto

import (
	gocrypto "crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gowebpki/jcs"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
)

// Multicodec is a multicodec table code used as a key header.
type Multicodec uint64

// Multicodec headers, from https://github.com/multiformats/multicodec/blob/master/table.csv.
const (
	CodecAny          Multicodec = 0
	CodecSecp256k1Pub Multicodec = 0xe7
	CodecX25519Pub    Multicodec = 0xec
	CodecEd25519Pub   Multicodec = 0xed
	CodecP256Pub      Multicodec = 0x1200
	CodecEd25519Priv  Multicodec = 0x1300
	CodecX25519Priv   Multicodec = 0x1302
	CodecJWKJCSPub    Multicodec = 0xeb51
)

// maxMulticodecBytes bounds the varint header length.
const maxMulticodecBytes = 9

// CodecFor returns the raw public key multicodec for a key type.
func CodecFor(kt KeyType) (Multicodec, error) {
	switch kt {
	case KeyTypeEd25519:
		return CodecEd25519Pub, nil
	case KeyTypeX25519:
		return CodecX25519Pub, nil
	case KeyTypeP256:
		return CodecP256Pub, nil
	case KeyTypeSecp256k1:
		return CodecSecp256k1Pub, nil
	default:
		return 0, fmt.Errorf("%w: no multicodec for %s keys", ErrMalformedKey, kt)
	}
}

// EncodeMultibase encodes key as base58btc(varint(codec) || key bytes).
func (p *DefaultProvider) EncodeMultibase(key any, codec Multicodec) (string, error) {
	raw, err := p.rawKeyBytes(key, codec)
	if err != nil {
		return "", err
	}

	buf := append(varint.ToUvarint(uint64(codec)), raw...)

	encoded, err := multibase.Encode(multibase.Base58BTC, buf)
	if err != nil {
		return "", fmt.Errorf("failed to multibase encode key: %w", err)
	}

	return encoded, nil
}

// DecodeMultibase decodes a multibase public key carrying the given header.
// CodecAny accepts every public key header the provider understands.
func (p *DefaultProvider) DecodeMultibase(value string, codec Multicodec) (gocrypto.PublicKey, error) {
	got, pub, err := p.DecodeMultikey(value)
	if err != nil {
		return nil, err
	}

	if codec != CodecAny && got != codec {
		return nil, fmt.Errorf("%w: multicodec header 0x%x, want 0x%x", ErrMalformedKey, uint64(got), uint64(codec))
	}

	return pub, nil
}

// DecodeMultikey decodes a multibase public key and reports its header.
func (p *DefaultProvider) DecodeMultikey(value string) (Multicodec, gocrypto.PublicKey, error) {
	codec, raw, err := splitMultikey(value)
	if err != nil {
		return 0, nil, err
	}

	pub, err := p.publicKeyFromBytes(codec, raw)
	if err != nil {
		return 0, nil, err
	}

	return codec, pub, nil
}

func splitMultikey(value string) (Multicodec, []byte, error) {
	encoding, data, err := multibase.Decode(value)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if encoding != multibase.Base58BTC {
		return 0, nil, fmt.Errorf("%w: expected base58btc multibase, got %q", ErrMalformedKey, string(rune(encoding)))
	}

	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid multicodec header: %v", ErrMalformedKey, err)
	}
	if n > maxMulticodecBytes {
		return 0, nil, fmt.Errorf("%w: multicodec header exceeds maximum size", ErrMalformedKey)
	}

	return Multicodec(code), data[n:], nil
}

func (p *DefaultProvider) publicKeyFromBytes(codec Multicodec, raw []byte) (gocrypto.PublicKey, error) {
	switch codec {
	case CodecEd25519Pub:
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: ed25519 key has %d bytes", ErrMalformedKey, len(raw))
		}
		return ed25519.PublicKey(raw), nil
	case CodecX25519Pub:
		pub, err := ecdh.X25519().NewPublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return pub, nil
	case CodecP256Pub:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), raw)
		if x == nil {
			return nil, fmt.Errorf("%w: invalid compressed p-256 point", ErrMalformedKey)
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	case CodecSecp256k1Pub:
		parsed, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		pub, err := ethcrypto.UnmarshalPubkey(parsed.SerializeUncompressed())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return pub, nil
	case CodecJWKJCSPub:
		var jwk JWK
		if err := json.Unmarshal(raw, &jwk); err != nil {
			return nil, fmt.Errorf("%w: invalid embedded jwk: %v", ErrMalformedKey, err)
		}
		return p.ImportJWK(&jwk)
	default:
		return nil, fmt.Errorf("%w: unsupported multicodec header 0x%x", ErrMalformedKey, uint64(codec))
	}
}

func (p *DefaultProvider) rawKeyBytes(key any, codec Multicodec) ([]byte, error) {
	kt, err := KeyTypeOf(key)
	if err != nil {
		return nil, err
	}

	switch codec {
	case CodecJWKJCSPub:
		jwk, err := p.ExportJWK(key)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(jwk.RequiredMembers())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		canonical, err := jcs.Transform(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to canonicalize jwk: %v", ErrMalformedKey, err)
		}
		return canonical, nil
	case CodecEd25519Priv:
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected ed25519 private key, got %T", ErrMalformedKey, key)
		}
		return []byte(priv), nil
	case CodecX25519Priv:
		priv, ok := key.(*ecdh.PrivateKey)
		if !ok || kt != KeyTypeX25519 {
			return nil, fmt.Errorf("%w: expected x25519 private key, got %T", ErrMalformedKey, key)
		}
		return priv.Bytes(), nil
	}

	want, err := CodecFor(kt)
	if err != nil {
		return nil, err
	}
	if codec != want {
		return nil, fmt.Errorf("%w: %s key cannot be encoded with multicodec 0x%x", ErrMalformedKey, kt, uint64(codec))
	}

	switch pub := key.(type) {
	case ed25519.PublicKey:
		return []byte(pub), nil
	case *ecdh.PublicKey:
		return pub.Bytes(), nil
	case *ecdsa.PublicKey:
		if kt == KeyTypeSecp256k1 {
			return ethcrypto.CompressPubkey(pub), nil
		}
		return elliptic.MarshalCompressed(pub.Curve, pub.X, pub.Y), nil
	default:
		return nil, fmt.Errorf("%w: expected public key, got %T", ErrMalformedKey, key)
	}
}
