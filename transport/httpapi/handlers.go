package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pilacorp/go-did-sdk/builder"
	"github.com/pilacorp/go-did-sdk/crypto"
	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/didkey"
	"github.com/pilacorp/go-did-sdk/keymaterial"
)

// Legacy /generate-did-web modes.
const (
	ModeJWK      = "JWK"
	ModeGaiaX    = "Gaia-x"
	ModeCryptoLD = "cryptoLD"
)

// Message encodings accepted by sign and verify.
const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

type generateDidKeyRequest struct {
	Algorithm   string `json:"algorithm"`
	KeyEncoding string `json:"keyEncoding"`
}

type generateDidWebRequest struct {
	Mode      string `json:"mode"`
	DID       string `json:"did"`
	Algorithm string `json:"algorithm"`
}

type identityRequest struct {
	Method      string `json:"method"`
	DID         string `json:"did"`
	Algorithm   string `json:"algorithm"`
	KeyEncoding string `json:"keyEncoding"`
}

type signRequest struct {
	Message    string `json:"message"`
	Encoding   string `json:"encoding"`
	PrivateKey string `json:"privateKey"`
	Algorithm  string `json:"algorithm"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

type verifyRequest struct {
	DID       string `json:"did"`
	Message   string `json:"message"`
	Encoding  string `json:"encoding"`
	Signature string `json:"signature"`
	Algorithm string `json:"algorithm"`
}

// pemIdentity is the legacy response of the key and JWK modes.
type pemIdentity struct {
	DID        string        `json:"did"`
	Document   *did.Document `json:"didDocument"`
	PublicKey  string        `json:"publicKey"`
	PrivateKey string        `json:"privateKey,omitempty"`
}

// linkedDataIdentity is the legacy response of the cryptoLD mode.
type linkedDataIdentity struct {
	DID             string               `json:"did"`
	Document        *did.Document        `json:"didDocument"`
	VerificationKey *builder.ExportedKey `json:"verificationKey"`
	AgreementKey    *builder.ExportedKey `json:"agreementKey"`
}

type identityKey struct {
	builder.Key
	Algorithm crypto.Algorithm      `json:"algorithm,omitempty"`
	Encodings keymaterial.Encodings `json:"encodings"`
}

type identityResponse struct {
	DID      string        `json:"did"`
	Document *did.Document `json:"didDocument"`
	Keys     []identityKey `json:"keys"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"status":  "ok",
		"methods": s.svc.Methods(),
	})
}

func (s *Server) generateDidKey(w http.ResponseWriter, r *http.Request) {
	var req generateDidKeyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	enc, err := didkey.ParseEncoding(req.KeyEncoding)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.GenerateIdentity(r.Context(), builder.MethodKey, builder.Params{
		Algorithm:   crypto.Algorithm(req.Algorithm),
		KeyEncoding: enc,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPEMIdentity(res))
}

// LegacyMethod maps a /generate-did-web mode onto its builder method. Any
// mode other than JWK and Gaia-x selects cryptoLD.
func LegacyMethod(mode string) builder.Method {
	switch {
	case strings.EqualFold(mode, ModeJWK):
		return builder.MethodWebJWK
	case strings.EqualFold(mode, ModeGaiaX):
		return builder.MethodWebGaiaX
	default:
		return builder.MethodWebCryptoLD
	}
}

func (s *Server) generateDidWeb(w http.ResponseWriter, r *http.Request) {
	var req generateDidWebRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	method := LegacyMethod(req.Mode)
	res, err := s.svc.GenerateIdentity(r.Context(), method, builder.Params{
		Identifier: req.DID,
		Algorithm:  crypto.Algorithm(req.Algorithm),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch method {
	case builder.MethodWebJWK:
		writeJSON(w, http.StatusOK, toPEMIdentity(res))
	case builder.MethodWebGaiaX:
		writeJSON(w, http.StatusOK, map[string]any{"did": res.DID, "didDocument": res.Document})
	default:
		out, err := s.toLinkedDataIdentity(res)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) generateIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	method, err := builder.ParseMethod(req.Method)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var enc didkey.Encoding
	if method == builder.MethodKey {
		if enc, err = didkey.ParseEncoding(req.KeyEncoding); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	res, err := s.svc.GenerateIdentity(r.Context(), method, builder.Params{
		Identifier:  req.DID,
		Algorithm:   crypto.Algorithm(req.Algorithm),
		KeyEncoding: enc,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := identityResponse{DID: res.DID, Document: res.Document, Keys: make([]identityKey, 0, len(res.Keys))}
	for _, k := range res.Keys {
		out.Keys = append(out.Keys, identityKey{
			Key:       k,
			Algorithm: k.Material.Algorithm,
			Encodings: k.Material.Encodings,
		})
	}

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) resolveIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(mux.Vars(r)["did"])
	if err != nil {
		s.writeError(w, r, did.Errorf(did.KindInvalidArgument, "invalid did in path: %w", err))
		return
	}

	res, err := s.svc.ResolveIdentity(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) sign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	message, err := decodeMessage(req.Message, req.Encoding)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	signature, err := s.svc.Sign(r.Context(), message, req.PrivateKey, crypto.Algorithm(req.Algorithm))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, signResponse{Signature: signature})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	message, err := decodeMessage(req.Message, req.Encoding)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Verify(r.Context(), req.DID, message, req.Signature, crypto.Algorithm(req.Algorithm))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// decode reads a JSON request body into v. An empty body leaves v zeroed.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return did.Errorf(did.KindInvalidArgument, "invalid request body: %w", err)
}

func decodeMessage(message, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8, "utf8":
		return []byte(message), nil
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(message)
		if err != nil {
			return nil, did.Errorf(did.KindInvalidArgument, "message is not valid base64: %w", err)
		}
		return b, nil
	default:
		return nil, did.Errorf(did.KindInvalidArgument, "unknown message encoding %q", encoding)
	}
}

func toPEMIdentity(res *builder.Result) pemIdentity {
	key := res.SigningKey()
	return pemIdentity{
		DID:        res.DID,
		Document:   res.Document,
		PublicKey:  key.Material.Encodings.PEM.Public,
		PrivateKey: key.Material.Encodings.PEM.Private,
	}
}

func (s *Server) toLinkedDataIdentity(res *builder.Result) (*linkedDataIdentity, error) {
	if len(res.Keys) != 2 {
		return nil, fmt.Errorf("expected a verification and an agreement key, got %d keys", len(res.Keys))
	}

	verification, err := res.Keys[0].Export(s.svc.Provider())
	if err != nil {
		return nil, err
	}
	agreement, err := res.Keys[1].Export(s.svc.Provider())
	if err != nil {
		return nil, err
	}

	return &linkedDataIdentity{
		DID:             res.DID,
		Document:        res.Document,
		VerificationKey: verification,
		AgreementKey:    agreement,
	}, nil
}
