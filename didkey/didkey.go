// Package didkey derives did:key identifiers from public keys and expands
// them back into DID Documents without any network access.
package didkey

import (
	gocrypto "crypto"
	"strings"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
)

// Encoding selects how the public key is packed into the identifier.
type Encoding string

const (
	// EncodingJWKJCS embeds the JCS canonical public JWK under the
	// jwk_jcs-pub multicodec.
	EncodingJWKJCS Encoding = "jwk_jcs-pub"
	// EncodingMultikey embeds the raw key bytes under the key type's
	// multicodec (z6Mk... for Ed25519).
	EncodingMultikey Encoding = "multikey"

	DefaultEncoding = EncodingJWKJCS
)

const prefix = "did:key:"

// ParseEncoding parses an encoding name. The empty string selects the default.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "":
		return DefaultEncoding, nil
	case EncodingJWKJCS, EncodingMultikey:
		return Encoding(s), nil
	default:
		return "", did.Errorf(did.KindInvalidArgument, "unknown did:key encoding %q", s)
	}
}

// New returns the did:key identifier of pub.
func New(p crypto.Provider, pub gocrypto.PublicKey, enc Encoding) (string, error) {
	codec := crypto.CodecJWKJCSPub
	if enc == EncodingMultikey {
		kt, err := crypto.KeyTypeOf(pub)
		if err != nil {
			return "", did.FromProvider(err)
		}
		if codec, err = crypto.CodecFor(kt); err != nil {
			return "", did.FromProvider(err)
		}
	}

	msid, err := p.EncodeMultibase(pub, codec)
	if err != nil {
		return "", did.FromProvider(err)
	}

	return prefix + msid, nil
}

// Resolve expands a did:key identifier into its single-key DID Document.
func Resolve(p crypto.Provider, id string) (*did.Document, error) {
	parsed, err := did.Parse(id)
	if err != nil {
		return nil, err
	}
	if parsed.Method != did.MethodKey {
		return nil, did.Errorf(did.KindMalformedDid, "%s is not a did:key", id)
	}
	if !strings.HasPrefix(parsed.MethodSpecificID, "z") {
		return nil, did.Errorf(did.KindMalformedDid, "did:key %s is not base58btc multibase", id)
	}

	codec, pub, err := p.DecodeMultikey(parsed.MethodSpecificID)
	if err != nil {
		return nil, did.Errorf(did.KindMalformedDid, "did:key %s does not decode to a public key: %w", id, err)
	}

	doc, err := document(p, parsed, codec, pub)
	if err != nil {
		return nil, did.Errorf(did.KindMalformedDid, "did:key %s: %w", id, err)
	}

	return doc, nil
}

func document(p crypto.Provider, d *did.DID, codec crypto.Multicodec, pub gocrypto.PublicKey) (*did.Document, error) {
	id := d.String()
	kt, err := crypto.KeyTypeOf(pub)
	if err != nil {
		return nil, err
	}

	vm := did.VerificationMethod{
		ID:         d.URL(d.MethodSpecificID),
		Controller: id,
	}
	contexts := did.Context{did.ContextDIDv1}

	switch {
	case codec == crypto.CodecEd25519Pub:
		vm.Type = did.TypeEd25519VerificationKey2020
		vm.PublicKeyMultibase = d.MethodSpecificID
		contexts = append(contexts, did.ContextEd25519_2020)
	case codec == crypto.CodecX25519Pub:
		vm.Type = did.TypeX25519KeyAgreementKey2020
		vm.PublicKeyMultibase = d.MethodSpecificID
		contexts = append(contexts, did.ContextX25519_2020)
	default:
		jwk, err := p.ExportJWK(pub)
		if err != nil {
			return nil, err
		}
		vm.Type = did.TypeJSONWebKey2020
		vm.PublicKeyJwk = jwk
		contexts = append(contexts, did.ContextJWS2020)
	}

	doc := &did.Document{
		Context:            contexts,
		ID:                 id,
		VerificationMethod: []did.VerificationMethod{vm},
	}

	ref := []did.Relationship{did.Ref(vm.ID)}
	if kt == crypto.KeyTypeX25519 {
		doc.KeyAgreement = ref
		return doc, nil
	}

	doc.Authentication = ref
	doc.AssertionMethod = ref
	doc.CapabilityInvocation = ref
	doc.CapabilityDelegation = ref

	return doc, nil
}

// PublicKey returns the key a did:key identifier encodes.
func PublicKey(p crypto.Provider, id string) (gocrypto.PublicKey, error) {
	parsed, err := did.Parse(id)
	if err != nil {
		return nil, err
	}
	if parsed.Method != did.MethodKey {
		return nil, did.Errorf(did.KindMalformedDid, "%s is not a did:key", id)
	}

	_, pub, err := p.DecodeMultikey(parsed.MethodSpecificID)
	if err != nil {
		return nil, did.Errorf(did.KindMalformedDid, "%w", err)
	}

	return pub, nil
}
