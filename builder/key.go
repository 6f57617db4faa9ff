package builder

import (
	"context"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/didkey"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

// Certifier proves a freshly minted identity round-trips.
type Certifier interface {
	SelfCertify(ctx context.Context, id string, km *keymaterial.KeyMaterial) error
}

// KeyOpt configures a Key builder.
type KeyOpt func(*KeyBuilder)

// WithCertifier self-certifies every minted did:key before it is returned.
func WithCertifier(c Certifier) KeyOpt {
	return func(b *KeyBuilder) {
		b.certifier = c
	}
}

// KeyBuilder mints did:key identities. The DID is the public key, so
// nothing is stored.
type KeyBuilder struct {
	provider  crypto.Provider
	certifier Certifier
}

// NewKey creates a did:key builder.
func NewKey(p crypto.Provider, opts ...KeyOpt) *KeyBuilder {
	b := &KeyBuilder{provider: p}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *KeyBuilder) Method() Method {
	return MethodKey
}

func (b *KeyBuilder) Build(ctx context.Context, params Params) (*Result, error) {
	alg := params.Algorithm
	if alg == "" {
		alg = crypto.DefaultAlgorithm
	}

	enc := params.KeyEncoding
	if enc == "" {
		enc = didkey.DefaultEncoding
	}

	km, err := keymaterial.Generate(b.provider, alg)
	if err != nil {
		return nil, err
	}

	id, err := didkey.New(b.provider, km.PublicKey, enc)
	if err != nil {
		return nil, err
	}

	doc, err := didkey.Resolve(b.provider, id)
	if err != nil {
		return nil, err
	}

	if b.certifier != nil {
		if err := b.certifier.SelfCertify(ctx, id, km); err != nil {
			return nil, err
		}
	}

	vm := doc.VerificationMethod[0]

	return &Result{
		DID:      id,
		Document: doc,
		Keys:     []Key{{ID: vm.ID, Type: vm.Type, Controller: id, Material: km}},
	}, nil
}

var _ Builder = (*KeyBuilder)(nil)

