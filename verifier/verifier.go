// Package verifier checks signatures against the authentication keys of a
// resolved DID Document and self-certifies freshly minted identities.
package verifier

import (
	"bytes"
	"context"
	gocrypto "crypto"
	"log/slog"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
)

// DocumentResolver resolves a DID into its document.
type DocumentResolver interface {
	ResolveDocument(ctx context.Context, id string) (*did.Document, error)
}

// Result is the outcome of a verification. Verified false is a normal
// negative result, not an error.
type Result struct {
	Verified     bool   `json:"verified"`
	MatchedKeyID string `json:"matchedKeyId,omitempty"`
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// Verifier verifies compact JWS signatures made by DID subjects.
type Verifier struct {
	provider crypto.Provider
	resolver DocumentResolver
	logger   *slog.Logger
}

// New creates a Verifier.
func New(p crypto.Provider, r DocumentResolver, opts ...Option) *Verifier {
	v := &Verifier{
		provider: p,
		resolver: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks that signature, a compact JWS, signs message and was made
// with one of the authentication keys of id. A detached JWS is verified over
// message; an attached payload must equal message. An empty alg accepts the
// algorithm named in the JWS header, otherwise the two must agree.
func (v *Verifier) Verify(ctx context.Context, id string, message []byte, signature string, alg crypto.Algorithm) (*Result, error) {
	env, err := crypto.ParseCompact(signature)
	if err != nil {
		return nil, did.Wrap(did.KindInvalidArgument, err, "")
	}

	if alg == "" {
		alg = env.Header.Alg
	}
	if _, err := alg.KeyType(); err != nil {
		return nil, did.FromProvider(err)
	}
	if env.Header.Alg != alg {
		return nil, did.Errorf(did.KindInvalidArgument, "signature algorithm %s does not match %s", env.Header.Alg, alg)
	}

	doc, err := v.resolver.ResolveDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if env.IsDetached() {
		env.Detached(message)
	}

	return v.VerifyDocument(doc, message, env)
}

// VerifyDocument runs the trial over the authentication keys of doc. Keys
// are tried in document order and the first one that verifies wins.
func (v *Verifier) VerifyDocument(doc *did.Document, message []byte, env *crypto.Envelope) (*Result, error) {
	vm, _, err := v.trial(doc, message, env)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return &Result{}, nil
	}
	return &Result{Verified: true, MatchedKeyID: did.AbsoluteURL(doc.ID, vm.ID)}, nil
}

// trial returns the first authentication method whose key verifies env, or
// nil when none does.
func (v *Verifier) trial(doc *did.Document, message []byte, env *crypto.Envelope) (*did.VerificationMethod, gocrypto.PublicKey, error) {
	candidates := doc.AuthenticationMethods()
	if len(candidates) == 0 {
		return nil, nil, did.Errorf(did.KindNoAuthenticationKeys, "%s has no authentication keys", doc.ID)
	}

	if !bytes.Equal(env.Payload, message) {
		v.logger.Debug("signature payload does not match message", "did", doc.ID)
		return nil, nil, nil
	}

	for i := range candidates {
		vm := &candidates[i]

		if vm.Controller != doc.ID {
			v.logger.Debug("skipping key controlled by another subject", "key", vm.ID, "controller", vm.Controller)
			continue
		}

		pub, err := PublicKey(v.provider, vm)
		if err != nil {
			v.logger.Debug("skipping undecodable key", "key", vm.ID, "error", err)
			continue
		}

		ok, err := env.VerifyWith(v.provider, pub)
		if err != nil {
			// Key type does not fit the algorithm.
			continue
		}
		if ok {
			return vm, pub, nil
		}
	}

	return nil, nil, nil
}
