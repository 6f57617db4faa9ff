package builder

import (
	"context"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

// ownerFragment names the single key of a web-jwk document.
const ownerFragment = "owner"

// WebJWKBuilder mints did:web documents holding one JsonWebKey2020 owner key.
type WebJWKBuilder struct {
	provider crypto.Provider
}

// NewWebJWK creates a web-jwk builder.
func NewWebJWK(p crypto.Provider) *WebJWKBuilder {
	return &WebJWKBuilder{provider: p}
}

func (b *WebJWKBuilder) Method() Method {
	return MethodWebJWK
}

func (b *WebJWKBuilder) Build(_ context.Context, params Params) (*Result, error) {
	id, err := did.NormalizeWebIdentifier(params.Identifier)
	if err != nil {
		return nil, err
	}

	alg := params.Algorithm
	if alg == "" {
		alg = crypto.DefaultAlgorithm
	}

	km, err := keymaterial.Generate(b.provider, alg)
	if err != nil {
		return nil, err
	}

	vm := did.VerificationMethod{
		ID:           id + "#" + ownerFragment,
		Type:         did.TypeJSONWebKey2020,
		Controller:   id,
		PublicKeyJwk: km.Encodings.JWK,
	}

	ref := []did.Relationship{did.Ref(vm.ID)}
	doc := &did.Document{
		Context:            did.Context{did.ContextDIDv1, did.ContextJWS2020},
		ID:                 id,
		VerificationMethod: []did.VerificationMethod{vm},
		Authentication:     ref,
		AssertionMethod:    ref,
	}

	return &Result{
		DID:      id,
		Document: doc,
		Keys:     []Key{{ID: vm.ID, Type: vm.Type, Controller: id, Material: km}},
	}, nil
}

// WebCryptoLDBuilder mints did:web documents holding an Ed25519 signing key
// and an X25519 key agreement key, both as publicKeyMultibase.
type WebCryptoLDBuilder struct {
	provider crypto.Provider
}

// NewWebCryptoLD creates a web-cryptoLD builder.
func NewWebCryptoLD(p crypto.Provider) *WebCryptoLDBuilder {
	return &WebCryptoLDBuilder{provider: p}
}

func (b *WebCryptoLDBuilder) Method() Method {
	return MethodWebCryptoLD
}

func (b *WebCryptoLDBuilder) Build(_ context.Context, params Params) (*Result, error) {
	id, err := did.NormalizeWebIdentifier(params.Identifier)
	if err != nil {
		return nil, err
	}

	if params.Algorithm != "" && params.Algorithm != crypto.EdDSA {
		return nil, did.Errorf(did.KindUnsupportedAlgorithm, "%s only supports %s signing keys", MethodWebCryptoLD, crypto.EdDSA)
	}

	signing, err := keymaterial.Generate(b.provider, crypto.EdDSA)
	if err != nil {
		return nil, err
	}

	agreement, err := keymaterial.GenerateAgreement(b.provider)
	if err != nil {
		return nil, err
	}

	signingVM := did.VerificationMethod{
		ID:                 id + "#" + signing.Encodings.Multibase,
		Type:               did.TypeEd25519VerificationKey2020,
		Controller:         id,
		PublicKeyMultibase: signing.Encodings.Multibase,
	}
	agreementVM := did.VerificationMethod{
		ID:                 id + "#" + agreement.Encodings.Multibase,
		Type:               did.TypeX25519KeyAgreementKey2020,
		Controller:         id,
		PublicKeyMultibase: agreement.Encodings.Multibase,
	}

	signingRef := []did.Relationship{did.Ref(signingVM.ID)}
	doc := &did.Document{
		Context:              did.Context{did.ContextDIDv1, did.ContextEd25519_2020, did.ContextX25519_2020},
		ID:                   id,
		VerificationMethod:   []did.VerificationMethod{signingVM, agreementVM},
		Authentication:       signingRef,
		AssertionMethod:      signingRef,
		CapabilityInvocation: signingRef,
		CapabilityDelegation: signingRef,
		KeyAgreement:         []did.Relationship{did.Ref(agreementVM.ID)},
	}

	return &Result{
		DID:      id,
		Document: doc,
		Keys: []Key{
			{ID: signingVM.ID, Type: signingVM.Type, Controller: id, Material: signing},
			{ID: agreementVM.ID, Type: agreementVM.Type, Controller: id, Material: agreement},
		},
	}, nil
}

// ExportedKey is the linked-data export of a key pair: the verification
// method plus its private multibase.
type ExportedKey struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Controller          string `json:"controller"`
	PublicKeyMultibase  string `json:"publicKeyMultibase"`
	PrivateKeyMultibase string `json:"privateKeyMultibase,omitempty"`
}

// Export returns the linked-data export of k. Only Ed25519 and X25519 keys
// have a private multibase form.
func (k *Key) Export(p crypto.Provider) (*ExportedKey, error) {
	out := &ExportedKey{
		ID:                 k.ID,
		Type:               k.Type,
		Controller:         k.Controller,
		PublicKeyMultibase: k.Material.Encodings.Multibase,
	}

	if k.Material.HasPrivate() {
		priv, err := k.Material.PrivateMultibase(p)
		if err != nil {
			return nil, err
		}
		out.PrivateKeyMultibase = priv
	}

	return out, nil
}

var (
	_ Builder = (*WebJWKBuilder)(nil)
	_ Builder = (*WebCryptoLDBuilder)(nil)
)
