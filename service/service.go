// Package service exposes the four identity operations: generate, resolve,
// sign and verify.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pilacorp/go-did-sdk/builder"
	"github.com/pilacorp/go-did-sdk/config"
	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/keymaterial"
	"github.com/pilacorp/go-did-sdk/resolver"
	"github.com/pilacorp/go-did-sdk/verifier"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTimeout bounds every operation.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Service composes the builders, the resolver and the verifier.
type Service struct {
	provider crypto.Provider
	builders *builder.Set
	resolver *resolver.Resolver
	verifier *verifier.Verifier
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a Service from its parts.
func New(p crypto.Provider, builders *builder.Set, r *resolver.Resolver, v *verifier.Verifier, opts ...Option) *Service {
	s := &Service{
		provider: p,
		builders: builders,
		resolver: r,
		verifier: v,
		timeout:  config.DefaultOperationTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromConfig wires a Service with the default crypto provider. Only the
// methods enabled in cfg are registered; did:key identities are
// self-certified before they are returned.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	p := crypto.NewDefaultProvider()

	res := resolver.New(p,
		resolver.WithTimeout(cfg.ResolveTimeout),
		resolver.WithAllowHTTP(cfg.AllowHTTP),
		resolver.WithLogger(logger),
	)
	ver := verifier.New(p, res, verifier.WithLogger(logger))

	methods, err := cfg.EnabledMethods()
	if err != nil {
		return nil, err
	}

	builders := make([]builder.Builder, 0, len(methods))
	for _, m := range methods {
		var b builder.Builder
		switch m {
		case builder.MethodKey:
			b = builder.NewKey(p, builder.WithCertifier(ver))
		case builder.MethodWebJWK:
			b = builder.NewWebJWK(p)
		case builder.MethodWebCryptoLD:
			b = builder.NewWebCryptoLD(p)
		case builder.MethodWebGaiaX:
			gaiax, err := builder.NewWebGaiaX(p, cfg.GaiaX)
			if err != nil {
				return nil, err
			}
			if gaiax.DID() != "" {
				logger.Info("gaia-x identity bound", "did", gaiax.DID())
			}
			b = gaiax
		}
		builders = append(builders, b)
	}

	set := builder.NewSet(builders, builder.WithLogger(logger))

	return New(p, set, res, ver, WithLogger(logger), WithTimeout(cfg.OperationTimeout)), nil
}

// Provider returns the crypto provider.
func (s *Service) Provider() crypto.Provider {
	return s.provider
}

// Methods returns the enabled builder methods.
func (s *Service) Methods() []builder.Method {
	return s.builders.Methods()
}

// GenerateIdentity mints a new identity with method.
func (s *Service) GenerateIdentity(ctx context.Context, method builder.Method, params builder.Params) (*builder.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.builders.Build(ctx, method, params)
}

// ResolveIdentity resolves id into its DID Document.
func (s *Service) ResolveIdentity(ctx context.Context, id string) (*resolver.Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.resolver.Resolve(ctx, id)
}

// Sign signs message with a PKCS#8 PEM private key and returns a compact
// JWS. An empty alg selects the key's default algorithm.
func (s *Service) Sign(ctx context.Context, message []byte, privateKeyPEM string, alg crypto.Algorithm) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(message) == 0 {
		return "", did.Errorf(did.KindInvalidArgument, "message is required")
	}

	km, err := keymaterial.FromPrivatePEM(s.provider, privateKeyPEM)
	if err != nil {
		return "", err
	}

	if alg == "" {
		alg = km.Algorithm
	}

	env, err := crypto.Sign(s.provider, alg, km.PrivateKey, message, "")
	if err != nil {
		return "", did.FromProvider(err)
	}

	return env.Compact(), nil
}

// Verify checks signature over message against the authentication keys of id.
func (s *Service) Verify(ctx context.Context, id string, message []byte, signature string, alg crypto.Algorithm) (*verifier.Result, error) {
	if len(message) == 0 {
		return nil, did.Errorf(did.KindInvalidArgument, "message is required")
	}
	if signature == "" {
		return nil, did.Errorf(did.KindInvalidArgument, "signature is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.verifier.Verify(ctx, id, message, signature, alg)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "signature checked", "did", id, "verified", res.Verified, "key", res.MatchedKeyID)

	return res, nil
}
