// Package builder mints DIDs and their documents. Each supported DID method
// variant is a Builder; a Set dispatches on the requested Method.
package builder

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/didkey"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

// Method names a document construction strategy.
type Method string

const (
	MethodKey         Method = "key"
	MethodWebJWK      Method = "web-jwk"
	MethodWebCryptoLD Method = "web-cryptoLD"
	MethodWebGaiaX    Method = "web-gaiaX"
)

// Methods lists every known Method.
var Methods = []Method{MethodKey, MethodWebJWK, MethodWebCryptoLD, MethodWebGaiaX}

// ParseMethod parses a method name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", did.Errorf(did.KindUnsupportedMethod, "unknown method %q", s)
}

// Params are the caller inputs of a build. Fields a method does not use
// are ignored.
type Params struct {
	// Identifier is a did:web identifier or an https URL.
	Identifier string
	// Algorithm of the signing key. Empty selects crypto.DefaultAlgorithm.
	Algorithm crypto.Algorithm
	// KeyEncoding selects the did:key encoding. Empty selects didkey.DefaultEncoding.
	KeyEncoding didkey.Encoding
}

// Key is a key minted (or bound) for an identity, with the verification
// method that publishes it.
type Key struct {
	ID         string                   `json:"id"`
	Type       string                   `json:"type"`
	Controller string                   `json:"controller"`
	Material   *keymaterial.KeyMaterial `json:"-"`
}

// Result is a complete identity: the DID, its document and its keys. The
// first key is the signing key.
type Result struct {
	DID      string        `json:"did"`
	Document *did.Document `json:"didDocument"`
	Keys     []Key         `json:"keys"`
}

// SigningKey returns the key used for authentication.
func (r *Result) SigningKey() *Key {
	if len(r.Keys) == 0 {
		return nil
	}
	return &r.Keys[0]
}

// Builder builds identities for one Method.
type Builder interface {
	Method() Method
	Build(ctx context.Context, params Params) (*Result, error)
}

// SetOpt configures a Set.
type SetOpt func(*Set)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SetOpt {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

// Set is the collection of enabled builders.
type Set struct {
	builders map[Method]Builder
	logger   *slog.Logger
}

// NewSet creates a Set from builders. A later builder for the same method
// replaces an earlier one.
func NewSet(builders []Builder, opts ...SetOpt) *Set {
	s := &Set{
		builders: make(map[Method]Builder, len(builders)),
		logger:   slog.Default(),
	}
	for _, b := range builders {
		s.builders[b.Method()] = b
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Methods returns the enabled methods in a stable order.
func (s *Set) Methods() []Method {
	methods := make([]Method, 0, len(s.builders))
	for m := range s.builders {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}

// Build builds an identity with the builder for m. The document is
// validated before it is returned; partial results are never returned.
func (s *Set) Build(ctx context.Context, m Method, params Params) (*Result, error) {
	b, ok := s.builders[m]
	if !ok {
		return nil, did.Errorf(did.KindUnsupportedMethod, "method %q is not enabled", m)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := b.Build(ctx, params)
	if err != nil {
		s.logger.DebugContext(ctx, "identity build failed", "method", m, "error", err)
		return nil, err
	}

	if err := res.Document.Validate(); err != nil {
		s.logger.ErrorContext(ctx, "built document is invalid", "method", m, "did", res.DID, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "identity built", "method", m, "did", res.DID)

	return res, nil
}
