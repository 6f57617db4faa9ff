// Package keymaterial normalizes generated or imported key pairs together
// with their JWK, PEM and multibase encodings.
package keymaterial

import (
	gocrypto "crypto"
	"encoding/json"
	"strings"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
)

// KeyMaterial is an asymmetric key pair and its encodings. PrivateKey is nil
// for imported public keys.
type KeyMaterial struct {
	Type       crypto.KeyType
	Algorithm  crypto.Algorithm
	PublicKey  gocrypto.PublicKey
	PrivateKey gocrypto.PrivateKey
	Encodings  Encodings
}

// Encodings holds the serialized forms of a key pair.
type Encodings struct {
	JWK       *crypto.JWK `json:"jwk,omitempty"`
	PEM       PEM         `json:"pem"`
	Multibase string      `json:"multibase,omitempty"`
}

// PEM holds the SPKI public and PKCS#8 private PEM blocks.
type PEM struct {
	Public  string `json:"public,omitempty"`
	Private string `json:"private,omitempty"`
}

// Generate creates a signing key pair for alg.
func Generate(p crypto.Provider, alg crypto.Algorithm) (*KeyMaterial, error) {
	kp, err := p.GenerateKeyPair(alg)
	if err != nil {
		return nil, did.FromProvider(err)
	}

	return fromKeyPair(p, kp, alg)
}

// GenerateAgreement creates an X25519 key agreement key pair.
func GenerateAgreement(p crypto.Provider) (*KeyMaterial, error) {
	kp, err := p.GenerateAgreementKeyPair()
	if err != nil {
		return nil, did.FromProvider(err)
	}

	return fromKeyPair(p, kp, "")
}

// ImportPublic imports a public key given as a JWK JSON object, a multibase
// multikey ("z...") or an SPKI PEM block.
func ImportPublic(p crypto.Provider, value string) (*KeyMaterial, error) {
	value = strings.TrimSpace(value)

	var (
		pub gocrypto.PublicKey
		err error
	)

	switch {
	case value == "":
		return nil, did.Errorf(did.KindMalformedKey, "empty public key")
	case strings.HasPrefix(value, "{"):
		var jwk crypto.JWK
		if err := json.Unmarshal([]byte(value), &jwk); err != nil {
			return nil, did.Errorf(did.KindMalformedKey, "invalid jwk: %w", err)
		}
		pub, err = p.ImportJWK(&jwk)
	case strings.HasPrefix(value, "-----BEGIN"):
		pub, err = p.ImportSPKIPEM(value)
	default:
		_, pub, err = p.DecodeMultikey(value)
	}
	if err != nil {
		return nil, did.Wrap(did.KindMalformedKey, err, "failed to import public key")
	}

	return FromPublicKey(p, pub)
}

// FromPublicKey builds public-only KeyMaterial around pub.
func FromPublicKey(p crypto.Provider, pub gocrypto.PublicKey) (*KeyMaterial, error) {
	kt, err := crypto.KeyTypeOf(pub)
	if err != nil {
		return nil, did.Wrap(did.KindMalformedKey, err, "")
	}

	km := &KeyMaterial{Type: kt, PublicKey: pub}
	if alg, err := crypto.AlgorithmFor(kt); err == nil {
		km.Algorithm = alg
	}

	if err := km.encode(p); err != nil {
		return nil, err
	}

	return km, nil
}

// FromPrivatePEM imports a PKCS#8 private key.
func FromPrivatePEM(p crypto.Provider, data string) (*KeyMaterial, error) {
	priv, err := p.ImportPKCS8PEM(data)
	if err != nil {
		return nil, did.Wrap(did.KindMalformedKey, err, "failed to import private key")
	}

	pub, err := crypto.PublicKeyOf(priv)
	if err != nil {
		return nil, did.Wrap(did.KindMalformedKey, err, "")
	}

	kt, err := crypto.KeyTypeOf(priv)
	if err != nil {
		return nil, did.Wrap(did.KindMalformedKey, err, "")
	}

	alg, _ := crypto.AlgorithmFor(kt)

	return fromKeyPair(p, &crypto.KeyPair{Type: kt, Public: pub, Private: priv}, alg)
}

// HasPrivate reports whether the private half is present.
func (k *KeyMaterial) HasPrivate() bool {
	return k.PrivateKey != nil
}

// PrivateMultibase encodes the private key under its private multicodec
// header. Only Ed25519 and X25519 keys have one.
func (k *KeyMaterial) PrivateMultibase(p crypto.Provider) (string, error) {
	if !k.HasPrivate() {
		return "", did.Errorf(did.KindMalformedKey, "key material has no private key")
	}

	var codec crypto.Multicodec
	switch k.Type {
	case crypto.KeyTypeEd25519:
		codec = crypto.CodecEd25519Priv
	case crypto.KeyTypeX25519:
		codec = crypto.CodecX25519Priv
	default:
		return "", did.Errorf(did.KindMalformedKey, "no private multicodec for %s keys", k.Type)
	}

	encoded, err := p.EncodeMultibase(k.PrivateKey, codec)
	if err != nil {
		return "", did.FromProvider(err)
	}

	return encoded, nil
}

func fromKeyPair(p crypto.Provider, kp *crypto.KeyPair, alg crypto.Algorithm) (*KeyMaterial, error) {
	km := &KeyMaterial{
		Type:       kp.Type,
		Algorithm:  alg,
		PublicKey:  kp.Public,
		PrivateKey: kp.Private,
	}

	if err := km.encode(p); err != nil {
		return nil, err
	}

	return km, nil
}

func (k *KeyMaterial) encode(p crypto.Provider) error {
	jwk, err := p.ExportJWK(k.PublicKey)
	if err != nil {
		return did.FromProvider(err)
	}
	if k.Algorithm != "" {
		jwk.Alg = string(k.Algorithm)
	}
	k.Encodings.JWK = jwk

	if k.Encodings.PEM.Public, err = p.ExportSPKIPEM(k.PublicKey); err != nil {
		return did.FromProvider(err)
	}

	if k.PrivateKey != nil {
		if k.Encodings.PEM.Private, err = p.ExportPKCS8PEM(k.PrivateKey); err != nil {
			return did.FromProvider(err)
		}
	}

	// RSA keys have no multicodec.
	if codec, err := crypto.CodecFor(k.Type); err == nil {
		if k.Encodings.Multibase, err = p.EncodeMultibase(k.PublicKey, codec); err != nil {
			return did.FromProvider(err)
		}
	}

	return nil
}
