// Package jsonld computes canonical (URDNA2015) digests of DID Documents.
//
// The contexts referenced by generated documents are embedded, so digests are
// computed without network access unless a fallback loader is supplied.
package jsonld

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

//go:embed contexts/*.jsonld
var contextFS embed.FS

var embeddedContexts = map[string]string{
	"https://www.w3.org/ns/did/v1":                     "contexts/did-v1.jsonld",
	"https://w3id.org/did/v1":                          "contexts/did-v1.jsonld",
	"https://w3id.org/security/suites/jws-2020/v1":     "contexts/jws-2020-v1.jsonld",
	"https://w3id.org/security/suites/ed25519-2020/v1": "contexts/ed25519-2020-v1.jsonld",
	"https://w3id.org/security/suites/x25519-2020/v1":  "contexts/x25519-2020-v1.jsonld",
}

// ProcessorOpt configures a Processor.
type ProcessorOpt func(*Processor)

// WithDocumentLoader sets the loader consulted for contexts that are not embedded.
func WithDocumentLoader(loader ld.DocumentLoader) ProcessorOpt {
	return func(p *Processor) {
		p.fallback = loader
	}
}

// WithAlgorithm sets the canonicalization algorithm.
func WithAlgorithm(alg string) ProcessorOpt {
	return func(p *Processor) {
		p.algorithm = alg
	}
}

// Processor canonicalizes JSON-LD documents.
type Processor struct {
	algorithm string
	fallback  ld.DocumentLoader
	loader    ld.DocumentLoader
}

// NewProcessor returns a Processor using URDNA2015 and the embedded contexts.
func NewProcessor(opts ...ProcessorOpt) *Processor {
	p := &Processor{algorithm: ld.AlgorithmURDNA2015}
	for _, opt := range opts {
		opt(p)
	}

	p.loader = ld.NewCachingDocumentLoader(&embeddedLoader{fallback: p.fallback})

	return p
}

// Canonicalize returns the N-Quads canonical form of a JSON document. v may
// be raw JSON bytes or any value that marshals to a JSON object.
func (p *Processor) Canonicalize(v any) ([]byte, error) {
	raw, ok := v.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
	}

	doc, err := ld.DocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"
	options.Algorithm = p.algorithm
	options.DocumentLoader = p.loader

	normalized, err := ld.NewJsonLdProcessor().Normalize(doc, options)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}

	quads, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected normalized form %T", normalized)
	}

	return []byte(quads), nil
}

// Digest returns the hex SHA-256 of the canonical form of v.
func (p *Processor) Digest(v any) (string, error) {
	canonical, err := p.Canonicalize(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)

	return hex.EncodeToString(sum[:]), nil
}

type embeddedLoader struct {
	fallback ld.DocumentLoader
}

func (l *embeddedLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	name, ok := embeddedContexts[u]
	if !ok {
		if l.fallback != nil {
			return l.fallback.LoadDocument(u)
		}
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, fmt.Sprintf("context %s is not available offline", u))
	}

	f, err := contextFS.Open(name)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	defer f.Close()

	doc, err := ld.DocumentFromReader(f)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}

	return &ld.RemoteDocument{DocumentURL: u, Document: doc}, nil
}
