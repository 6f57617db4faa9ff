// Package resolver turns DIDs back into DID Documents: did:key locally and
// did:web over HTTPS.
package resolver

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/didkey"
	"github.com/pilacorp/go-did-sdk/jsonld"
)

const (
	// DefaultTimeout bounds a single did:web fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodySize bounds the size of a fetched DID Document.
	DefaultMaxBodySize int64 = 1 << 20

	acceptHeader = "application/did+json, application/did+ld+json, application/json"
)

//go:embed did-document.schema.json
var documentSchemaJSON string

var documentSchema = func() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded did document schema: %v", err))
	}
	return schema
}()

// Resolution is the outcome of a successful resolution.
type Resolution struct {
	Document *did.Document `json:"didDocument"`
	Metadata Metadata      `json:"didResolutionMetadata"`
}

// Metadata describes how a document was obtained.
type Metadata struct {
	Method      string    `json:"method"`
	Retrieved   time.Time `json:"retrieved"`
	URL         string    `json:"url,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`
	// Canonical is true when ContentHash is a URDNA2015 digest rather than
	// a digest of the raw bytes.
	Canonical bool `json:"canonical,omitempty"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client used for did:web.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithAllowHTTP resolves did:web over plain HTTP. For local testing only.
func WithAllowHTTP(allow bool) Option {
	return func(r *Resolver) {
		r.useHTTP = allow
	}
}

// WithMaxBodySize overrides the DID Document size limit.
func WithMaxBodySize(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithJSONLDProcessor sets the processor used for content hashes.
func WithJSONLDProcessor(p *jsonld.Processor) Option {
	return func(r *Resolver) {
		r.ld = p
	}
}

// Resolver resolves did:key and did:web identifiers. It keeps no cache:
// every call performs a fresh lookup.
type Resolver struct {
	provider    crypto.Provider
	client      *http.Client
	timeout     time.Duration
	useHTTP     bool
	maxBodySize int64
	logger      *slog.Logger
	ld          *jsonld.Processor
}

// New creates a Resolver.
func New(p crypto.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider:    p,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		r.client = &http.Client{
			Timeout:   r.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if r.ld == nil {
		r.ld = jsonld.NewProcessor()
	}

	return r
}

// Resolve resolves id into its DID Document.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Resolution, error) {
	parsed, err := did.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	switch parsed.Method {
	case did.MethodKey:
		doc, err := didkey.Resolve(r.provider, parsed.String())
		if err != nil {
			return nil, err
		}
		return &Resolution{
			Document: doc,
			Metadata: r.metadata(did.MethodKey, "", doc, nil),
		}, nil
	case did.MethodWeb:
		return r.resolveWeb(ctx, parsed)
	default:
		return nil, did.Errorf(did.KindUnsupportedMethod, "did method %q is not supported", parsed.Method)
	}
}

// ResolveDocument is Resolve without metadata.
func (r *Resolver) ResolveDocument(ctx context.Context, id string) (*did.Document, error) {
	res, err := r.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Document, nil
}

func (r *Resolver) resolveWeb(ctx context.Context, d *did.DID) (*Resolution, error) {
	target, err := did.WebURL(d, r.useHTTP)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := r.fetch(ctx, target)
	if err != nil {
		r.logger.WarnContext(ctx, "did:web resolution failed", "did", d.String(), "url", target, "error", err)
		return nil, err
	}

	doc, err := parseWebDocument(body)
	if err != nil {
		return nil, err
	}
	if doc.ID != d.String() {
		return nil, did.Errorf(did.KindMalformedDocument, "document id %q does not match %s", doc.ID, d)
	}

	r.logger.DebugContext(ctx, "resolved did:web", "did", doc.ID, "url", target, "methods", len(doc.VerificationMethod))

	return &Resolution{
		Document: doc,
		Metadata: r.metadata(did.MethodWeb, target, doc, body),
	}, nil
}

func (r *Resolver) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, did.Errorf(did.KindResolutionFailed, "failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, did.Errorf(did.KindResolutionFailed, "timed out fetching %s: %w", target, err)
		}
		return nil, did.Errorf(did.KindResolutionFailed, "failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, did.Errorf(did.KindResolutionFailed, "fetching %s returned status %d", target, resp.StatusCode)
	}

	// The Content-Type header is ignored: servers commonly serve did.json
	// as text/plain or application/octet-stream.
	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize+1))
	if err != nil {
		return nil, did.Errorf(did.KindResolutionFailed, "failed to read %s: %w", target, err)
	}
	if int64(len(body)) > r.maxBodySize {
		return nil, did.Errorf(did.KindMalformedDocument, "document at %s exceeds %d bytes", target, r.maxBodySize)
	}

	return body, nil
}

func parseWebDocument(body []byte) (*did.Document, error) {
	result, err := documentSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, did.Errorf(did.KindMalformedDocument, "failed to parse did document: %w", err)
	}
	if !result.Valid() {
		return nil, did.Errorf(did.KindMalformedDocument, "did document is invalid: %v", result.Errors())
	}

	return did.ParseDocument(body)
}

func (r *Resolver) metadata(method, url string, doc *did.Document, raw []byte) Metadata {
	md := Metadata{
		Method:    method,
		Retrieved: time.Now().UTC(),
		URL:       url,
	}

	if len(doc.Context) == 0 {
		return md.withRawHash(raw)
	}

	digest, err := r.ld.Digest(doc)
	if err == nil {
		md.ContentHash = digest
		md.Canonical = true
		return md
	}
	r.logger.Debug("falling back to raw content hash", "did", doc.ID, "error", err)

	return md.withRawHash(raw)
}

func (md Metadata) withRawHash(raw []byte) Metadata {
	if raw != nil {
		sum := sha256.Sum256(raw)
		md.ContentHash = hex.EncodeToString(sum[:])
	}
	return md
}
