package builder

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

const (
	// DefaultCertificatePath is where the X.509 certificate of the host is
	// looked up.
	DefaultCertificatePath = "public_cert.pem"
	// DefaultHostname is used when GaiaXConfig.Hostname is empty.
	DefaultHostname = "localhost"
)

// GaiaXConfig binds the web-gaiaX builder to a host and an X.509-bound
// public key issued out of band.
type GaiaXConfig struct {
	Hostname string `yaml:"hostname"`
	// PublicKeyPEM is the SPKI (or certificate) PEM of the host key.
	PublicKeyPEM string `yaml:"publicKey"`
	// CertificatePath is the local certificate file. When it exists its
	// public key must equal PublicKeyPEM.
	CertificatePath string `yaml:"certificatePath"`
	// CertificateURL overrides the published x5u.
	CertificateURL string `yaml:"certificateUrl"`
}

// Configured reports whether a public key was supplied.
func (c GaiaXConfig) Configured() bool {
	return strings.TrimSpace(c.PublicKeyPEM) != ""
}

// WebGaiaXBuilder publishes the host's single Gaia-X identity. The key and
// hostname are bound at construction, so every build returns the same
// identity.
type WebGaiaXBuilder struct {
	provider crypto.Provider
	id       string
	x5u      string
	key      *keymaterial.KeyMaterial
	// err is returned by every build when the builder is unusable.
	err error
}

// NewWebGaiaX creates a web-gaiaX builder. Without a configured public key
// the builder is still returned and every build fails with MissingPublicKey.
// A configured key that does not decode, or that differs from the key of an
// existing certificate file, is an error.
func NewWebGaiaX(p crypto.Provider, cfg GaiaXConfig) (*WebGaiaXBuilder, error) {
	b := &WebGaiaXBuilder{provider: p}

	if !cfg.Configured() {
		b.err = did.Errorf(did.KindMissingPublicKey, "%s requires an X.509 public key", MethodWebGaiaX)
		return b, nil
	}

	if cfg.Hostname == "" {
		cfg.Hostname = DefaultHostname
	}
	if cfg.CertificatePath == "" {
		cfg.CertificatePath = DefaultCertificatePath
	}

	id, err := did.WebDIDFromURL("https://" + cfg.Hostname)
	if err != nil {
		return nil, err
	}

	key, err := keymaterial.ImportPublic(p, cfg.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	if err := checkCertificate(p, cfg.CertificatePath, key); err != nil {
		return nil, err
	}

	b.id = id
	b.key = key
	b.x5u = cfg.CertificateURL
	if b.x5u == "" {
		b.x5u = "https://" + cfg.Hostname + "/.well-known/" + filepath.Base(cfg.CertificatePath)
	}

	return b, nil
}

func checkCertificate(p crypto.Provider, path string, key *keymaterial.KeyMaterial) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return did.Errorf(did.KindMalformedKey, "failed to read certificate %s: %w", path, err)
	}

	certKey, err := p.ImportSPKIPEM(string(data))
	if err != nil {
		return did.Wrap(did.KindMalformedKey, err, "invalid certificate "+path)
	}

	if !crypto.EqualPublicKeys(certKey, key.PublicKey) {
		return did.Errorf(did.KindMalformedKey, "certificate %s does not hold the configured public key", path)
	}

	return nil
}

func (b *WebGaiaXBuilder) Method() Method {
	return MethodWebGaiaX
}

// DID returns the bound identifier, or "" when the builder is unconfigured.
func (b *WebGaiaXBuilder) DID() string {
	return b.id
}

func (b *WebGaiaXBuilder) Build(_ context.Context, params Params) (*Result, error) {
	if b.err != nil {
		return nil, b.err
	}

	if params.Identifier != "" {
		requested, err := did.NormalizeWebIdentifier(params.Identifier)
		if err != nil {
			return nil, err
		}
		if requested != b.id {
			return nil, did.Errorf(did.KindInvalidIdentifier, "%s only serves %s, not %s", MethodWebGaiaX, b.id, requested)
		}
	}

	jwk := *b.key.Encodings.JWK
	jwk.X5u = b.x5u

	vm := did.VerificationMethod{
		ID:           b.id + "#JWK2020-" + jwk.Kty,
		Type:         did.TypeJSONWebKey2020,
		Controller:   b.id,
		PublicKeyJwk: &jwk,
	}

	ref := []did.Relationship{did.Ref(vm.ID)}
	doc := &did.Document{
		Context:            did.Context{did.ContextDIDv1, did.ContextJWS2020},
		ID:                 b.id,
		VerificationMethod: []did.VerificationMethod{vm},
		AssertionMethod:    ref,
		Authentication:     ref,
	}

	return &Result{
		DID:      b.id,
		Document: doc,
		Keys:     []Key{{ID: vm.ID, Type: vm.Type, Controller: b.id, Material: b.key}},
	}, nil
}

var _ Builder = (*WebGaiaXBuilder)(nil)
