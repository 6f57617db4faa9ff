package jsonld

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docA = `{
  "@context": ["https://www.w3.org/ns/did/v1", "https://w3id.org/security/suites/ed25519-2020/v1"],
  "id": "did:web:example.com",
  "verificationMethod": [{
    "id": "did:web:example.com#key-1",
    "type": "Ed25519VerificationKey2020",
    "controller": "did:web:example.com",
    "publicKeyMultibase": "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
  }],
  "authentication": ["did:web:example.com#key-1"]
}`

// docA with members reordered and no whitespace.
const docAReordered = `{"authentication":["did:web:example.com#key-1"],"verificationMethod":[{"publicKeyMultibase":"z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK","controller":"did:web:example.com","type":"Ed25519VerificationKey2020","id":"did:web:example.com#key-1"}],"id":"did:web:example.com","@context":["https://www.w3.org/ns/did/v1","https://w3id.org/security/suites/ed25519-2020/v1"]}`

func TestCanonicalize(t *testing.T) {
	p := NewProcessor()

	quads, err := p.Canonicalize([]byte(docA))
	require.NoError(t, err)
	assert.Contains(t, string(quads), "<did:web:example.com> <https://w3id.org/security#authenticationMethod> <did:web:example.com#key-1>")
	assert.Contains(t, string(quads), "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK")
}

func TestDigestIsStable(t *testing.T) {
	p := NewProcessor()

	a, err := p.Digest([]byte(docA))
	require.NoError(t, err)
	b, err := p.Digest([]byte(docAReordered))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	changed, err := p.Digest([]byte(strings.ReplaceAll(docA, "key-1", "key-2")))
	require.NoError(t, err)
	assert.NotEqual(t, a, changed)
}

func TestDigestJWKDocument(t *testing.T) {
	p := NewProcessor()

	doc := map[string]any{
		"@context": []any{"https://www.w3.org/ns/did/v1", "https://w3id.org/security/suites/jws-2020/v1"},
		"id":       "did:web:example.com",
		"verificationMethod": []any{map[string]any{
			"id":           "did:web:example.com#owner",
			"type":         "JsonWebKey2020",
			"controller":   "did:web:example.com",
			"publicKeyJwk": map[string]any{"kty": "OKP", "crv": "Ed25519", "x": "11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo"},
		}},
		"assertionMethod": []any{"did:web:example.com#owner"},
	}

	digest, err := p.Digest(doc)
	require.NoError(t, err)
	assert.Len(t, digest, 64)
}

func TestUnknownContextOffline(t *testing.T) {
	p := NewProcessor()

	_, err := p.Digest([]byte(`{"@context": "https://example.com/unknown/v1", "id": "did:web:example.com"}`))
	assert.Error(t, err)

	_, err = p.Digest([]byte(`not json`))
	assert.Error(t, err)
}
