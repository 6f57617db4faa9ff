package crypto

import (
	gocrypto "crypto"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSignature is returned when a compact JWS cannot be parsed.
var ErrMalformedSignature = errors.New("malformed signature")

// Header is the protected header of a signature envelope.
type Header struct {
	Alg Algorithm `json:"alg"`
	Kid string    `json:"kid,omitempty"`
}

// Envelope is a signed payload serialized as a compact JWS.
type Envelope struct {
	Header    Header
	Payload   []byte
	Signature []byte

	headerSegment  string
	payloadSegment string
}

// Sign produces an envelope over payload. kid is optional.
func Sign(p Provider, alg Algorithm, priv gocrypto.PrivateKey, payload []byte, kid string) (*Envelope, error) {
	header := Header{Alg: alg, Kid: kid}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jws header: %w", err)
	}

	env := &Envelope{
		Header:         header,
		Payload:        payload,
		headerSegment:  base64.RawURLEncoding.EncodeToString(headerJSON),
		payloadSegment: base64.RawURLEncoding.EncodeToString(payload),
	}

	sig, err := p.Sign(alg, priv, env.SigningInput())
	if err != nil {
		return nil, err
	}
	env.Signature = sig

	return env, nil
}

// ParseCompact parses a compact JWS. A detached payload (empty middle
// segment) is left empty; attach it with Detached.
func ParseCompact(s string) (*Envelope, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedSignature, len(parts))
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid header: %v", ErrMalformedSignature, err)
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("%w: invalid header: %v", ErrMalformedSignature, err)
	}
	if header.Alg == "" {
		return nil, fmt.Errorf("%w: header has no alg", ErrMalformedSignature)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payload: %v", ErrMalformedSignature, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(sig) == 0 {
		return nil, fmt.Errorf("%w: invalid signature segment", ErrMalformedSignature)
	}

	return &Envelope{
		Header:         header,
		Payload:        payload,
		Signature:      sig,
		headerSegment:  parts[0],
		payloadSegment: parts[1],
	}, nil
}

// IsDetached reports whether the envelope was parsed without a payload.
func (e *Envelope) IsDetached() bool {
	return e.payloadSegment == ""
}

// Detached attaches a payload to an envelope parsed in detached form.
func (e *Envelope) Detached(payload []byte) {
	e.Payload = payload
	e.payloadSegment = base64.RawURLEncoding.EncodeToString(payload)
}

// SigningInput returns the bytes covered by the signature.
func (e *Envelope) SigningInput() []byte {
	return []byte(e.headerSegment + "." + e.payloadSegment)
}

// Compact serializes the envelope as a compact JWS.
func (e *Envelope) Compact() string {
	return e.headerSegment + "." + e.payloadSegment + "." + base64.RawURLEncoding.EncodeToString(e.Signature)
}

// VerifyWith checks the envelope signature against pub.
func (e *Envelope) VerifyWith(p Provider, pub gocrypto.PublicKey) (bool, error) {
	return p.Verify(e.Header.Alg, pub, e.SigningInput(), e.Signature)
}
