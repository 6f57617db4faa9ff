package did

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-did-sdk/crypto"
)

// JSON-LD contexts used by generated documents.
const (
	ContextDIDv1        = "https://www.w3.org/ns/did/v1"
	ContextJWS2020      = "https://w3id.org/security/suites/jws-2020/v1"
	ContextEd25519_2020 = "https://w3id.org/security/suites/ed25519-2020/v1"
	ContextX25519_2020  = "https://w3id.org/security/suites/x25519-2020/v1"
)

// Verification method types.
const (
	TypeJSONWebKey2020             = "JsonWebKey2020"
	TypeEd25519VerificationKey2020 = "Ed25519VerificationKey2020"
	TypeX25519KeyAgreementKey2020  = "X25519KeyAgreementKey2020"
)

// Document is a DID Document.
type Document struct {
	Context              Context              `json:"@context,omitempty"`
	ID                   string               `json:"id"`
	AlsoKnownAs          []string             `json:"alsoKnownAs,omitempty"`
	Controller           StringOrList         `json:"controller,omitempty"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []Relationship       `json:"authentication,omitempty"`
	AssertionMethod      []Relationship       `json:"assertionMethod,omitempty"`
	KeyAgreement         []Relationship       `json:"keyAgreement,omitempty"`
	CapabilityInvocation []Relationship       `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []Relationship       `json:"capabilityDelegation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
}

// VerificationMethod is a key entry of a DID Document.
type VerificationMethod struct {
	ID                 string      `json:"id"`
	Type               string      `json:"type"`
	Controller         string      `json:"controller"`
	PublicKeyJwk       *crypto.JWK `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string      `json:"publicKeyMultibase,omitempty"`
}

// Service is a service endpoint entry.
type Service struct {
	ID              string `json:"id"`
	Type            any    `json:"type"`
	ServiceEndpoint any    `json:"serviceEndpoint"`
}

// Relationship is a verification relationship entry: either a reference to
// a verification method id or an embedded method.
type Relationship struct {
	Reference string
	Embedded  *VerificationMethod
}

// Ref returns a reference relationship.
func Ref(id string) Relationship {
	return Relationship{Reference: id}
}

// Embed returns an embedded relationship.
func Embed(vm VerificationMethod) Relationship {
	return Relationship{Embedded: &vm}
}

// IsEmbedded reports whether the entry carries its own method.
func (r Relationship) IsEmbedded() bool {
	return r.Embedded != nil
}

func (r Relationship) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.Reference)
}

func (r *Relationship) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		r.Embedded = nil
		return json.Unmarshal(data, &r.Reference)
	}

	var vm VerificationMethod
	if err := json.Unmarshal(data, &vm); err != nil {
		return fmt.Errorf("failed to unmarshal verification relationship: %w", err)
	}
	r.Reference = ""
	r.Embedded = &vm

	return nil
}

// Context is a JSON-LD @context: a single IRI, or a list of IRIs and
// context objects.
type Context []any

func (c *Context) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = Context{single}
		return nil
	}

	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("@context must be a string or an array: %w", err)
	}
	*c = list

	return nil
}

// Has reports whether the context lists iri.
func (c Context) Has(iri string) bool {
	for _, entry := range c {
		if s, ok := entry.(string); ok && s == iri {
			return true
		}
	}
	return false
}

// StringOrList is a JSON value that may be one string or an array of them.
type StringOrList []string

func (s StringOrList) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrList{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected a string or an array of strings: %w", err)
	}
	*s = list

	return nil
}

// ParseDocument decodes a JSON DID Document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Errorf(KindMalformedDocument, "failed to parse did document: %w", err)
	}
	if doc.ID == "" {
		return nil, Errorf(KindMalformedDocument, "did document has no id")
	}
	return &doc, nil
}

// MethodByID looks up a verification method by absolute or relative id.
func (d *Document) MethodByID(id string) (*VerificationMethod, bool) {
	id = AbsoluteURL(d.ID, id)
	for i := range d.VerificationMethod {
		if AbsoluteURL(d.ID, d.VerificationMethod[i].ID) == id {
			return &d.VerificationMethod[i], true
		}
	}
	return nil, false
}

// Dereference returns the method a relationship entry points at.
func (d *Document) Dereference(r Relationship) (*VerificationMethod, bool) {
	if r.Embedded != nil {
		return r.Embedded, true
	}
	return d.MethodByID(r.Reference)
}

// AuthenticationMethods returns the methods listed under authentication, in
// document order. References that do not resolve are dropped.
func (d *Document) AuthenticationMethods() []VerificationMethod {
	methods := make([]VerificationMethod, 0, len(d.Authentication))
	for _, r := range d.Authentication {
		if vm, ok := d.Dereference(r); ok {
			methods = append(methods, *vm)
		}
	}
	return methods
}

// Validate checks the structural invariants of a document: a parseable id,
// complete and unique verification methods, and relationships that either
// resolve or embed a method controlled by the document subject.
func (d *Document) Validate() error {
	if _, err := Parse(d.ID); err != nil {
		return Errorf(KindMalformedDocument, "invalid document id: %w", err)
	}

	seen := make(map[string]struct{}, len(d.VerificationMethod))
	for _, vm := range d.VerificationMethod {
		if err := vm.validate(); err != nil {
			return err
		}
		id := AbsoluteURL(d.ID, vm.ID)
		if _, dup := seen[id]; dup {
			return Errorf(KindMalformedDocument, "duplicate verification method %s", id)
		}
		seen[id] = struct{}{}
	}

	relationships := map[string][]Relationship{
		"authentication":       d.Authentication,
		"assertionMethod":      d.AssertionMethod,
		"keyAgreement":         d.KeyAgreement,
		"capabilityInvocation": d.CapabilityInvocation,
		"capabilityDelegation": d.CapabilityDelegation,
	}
	for name, entries := range relationships {
		for _, r := range entries {
			if r.Embedded != nil {
				if err := r.Embedded.validate(); err != nil {
					return err
				}
				if r.Embedded.Controller != d.ID {
					return Errorf(KindMalformedDocument, "%s entry %s is controlled by %s", name, r.Embedded.ID, r.Embedded.Controller)
				}
				continue
			}
			if _, ok := d.MethodByID(r.Reference); !ok {
				return Errorf(KindMalformedDocument, "%s references unknown verification method %q", name, r.Reference)
			}
		}
	}

	return nil
}

func (vm *VerificationMethod) validate() error {
	if vm.ID == "" || vm.Type == "" || vm.Controller == "" {
		return Errorf(KindMalformedDocument, "verification method %q is missing id, type or controller", vm.ID)
	}
	if (vm.PublicKeyJwk == nil) == (vm.PublicKeyMultibase == "") {
		return Errorf(KindMalformedDocument, "verification method %s must carry exactly one public key", vm.ID)
	}
	return nil
}
