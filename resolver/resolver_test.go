package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/didkey"
)

func webDID(srv *httptest.Server, path ...string) string {
	host := strings.TrimPrefix(srv.URL, "https://")
	host = strings.TrimPrefix(host, "http://")
	id := "did:web:" + strings.ReplaceAll(host, ":", "%3A")
	for _, p := range path {
		id += ":" + p
	}
	return id
}

func documentFor(id string) string {
	return fmt.Sprintf(`{
  "@context": ["https://www.w3.org/ns/did/v1", "https://w3id.org/security/suites/ed25519-2020/v1"],
  "id": %q,
  "verificationMethod": [{
    "id": "%s#key-1",
    "type": "Ed25519VerificationKey2020",
    "controller": %q,
    "publicKeyMultibase": "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"
  }],
  "authentication": ["%s#key-1"]
}`, id, id, id, id)
}

func TestResolveWeb(t *testing.T) {
	var (
		hits   atomic.Int32
		accept atomic.Value
		id     string
	)

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		accept.Store(r.Header.Get("Accept"))

		switch r.URL.Path {
		case "/.well-known/did.json":
			// Deliberately not application/json.
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, documentFor(id))
		case "/users/alice/did.json":
			w.Header().Set("Content-Type", "application/octet-stream")
			fmt.Fprint(w, documentFor(id+":users:alice"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	id = webDID(srv)
	r := New(crypto.NewDefaultProvider(), WithHTTPClient(srv.Client()))

	res, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, res.Document.ID)
	assert.Equal(t, did.MethodWeb, res.Metadata.Method)
	assert.Equal(t, srv.URL+"/.well-known/did.json", res.Metadata.URL)
	assert.Len(t, res.Metadata.ContentHash, 64)
	assert.True(t, res.Metadata.Canonical)
	assert.Contains(t, accept.Load().(string), "application/did+json")

	methods := res.Document.AuthenticationMethods()
	require.Len(t, methods, 1)
	assert.Equal(t, id+"#key-1", methods[0].ID)

	doc, err := r.ResolveDocument(context.Background(), id+":users:alice")
	require.NoError(t, err)
	assert.Equal(t, id+":users:alice", doc.ID)

	// No caching: each resolution fetches again.
	_, err = r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestResolveWebFailures(t *testing.T) {
	var id string

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notjson/did.json":
			fmt.Fprint(w, "<html>hello</html>")
		case "/schema/did.json":
			fmt.Fprintf(w, `{"id": %q, "verificationMethod": [{"id": "x"}]}`, id+":schema")
		case "/mismatch/did.json":
			fmt.Fprint(w, documentFor("did:web:evil.example"))
		case "/big/did.json":
			fmt.Fprintf(w, `{"id": %q, "alsoKnownAs": [%q]}`, id+":big", strings.Repeat("a", 4096))
		case "/error/did.json":
			w.WriteHeader(http.StatusInternalServerError)
		case "/slow/did.json":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	id = webDID(srv)

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "not found", path: "missing", want: did.ErrResolutionFailed},
		{name: "server error", path: "error", want: did.ErrResolutionFailed},
		{name: "timeout", path: "slow", want: did.ErrResolutionFailed},
		{name: "not json", path: "notjson", want: did.ErrMalformedDocument},
		{name: "schema violation", path: "schema", want: did.ErrMalformedDocument},
		{name: "id mismatch", path: "mismatch", want: did.ErrMalformedDocument},
		{name: "too large", path: "big", want: did.ErrMalformedDocument},
	}

	r := New(crypto.NewDefaultProvider(),
		WithHTTPClient(srv.Client()),
		WithTimeout(200*time.Millisecond),
		WithMaxBodySize(1024),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), id+":"+tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolveWebUnreachable(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	id := webDID(srv)
	client := srv.Client()
	srv.Close()

	r := New(crypto.NewDefaultProvider(), WithHTTPClient(client))
	_, err := r.Resolve(context.Background(), id)
	assert.ErrorIs(t, err, did.ErrResolutionFailed)
}

func TestResolveWebAllowHTTP(t *testing.T) {
	var id string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, documentFor(id))
	}))
	defer srv.Close()

	id = webDID(srv)

	_, err := New(crypto.NewDefaultProvider(), WithHTTPClient(srv.Client()), WithAllowHTTP(true)).Resolve(context.Background(), id)
	require.NoError(t, err)
}

func TestResolveKey(t *testing.T) {
	p := crypto.NewDefaultProvider()

	kp, err := p.GenerateKeyPair(crypto.EdDSA)
	require.NoError(t, err)
	id, err := didkey.New(p, kp.Public, didkey.EncodingJWKJCS)
	require.NoError(t, err)

	// A client that fails every request proves did:key never touches the network.
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected network access")
		return nil, nil
	})}

	res, err := New(p, WithHTTPClient(client)).Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, res.Document.ID)
	assert.Equal(t, did.MethodKey, res.Metadata.Method)
	assert.Empty(t, res.Metadata.URL)
	assert.True(t, res.Metadata.Canonical)
}

func TestResolveErrors(t *testing.T) {
	r := New(crypto.NewDefaultProvider())

	tests := []struct {
		id   string
		want error
	}{
		{id: "not-a-did", want: did.ErrMalformedDid},
		{id: "did:key:zzzz", want: did.ErrMalformedDid},
		{id: "did:example:123", want: did.ErrUnsupportedMethod},
		{id: "did:web:example.com::", want: did.ErrMalformedDid},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.id)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
