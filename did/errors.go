package did

import (
	"errors"
	"fmt"

	"github.com/pilacorp/go-did-sdk/crypto"
)

// Kind is the stable tag carried by every error of this module.
type Kind string

// Error kinds.
const (
	KindUnsupportedAlgorithm    Kind = "UnsupportedAlgorithm"
	KindMalformedKey            Kind = "MalformedKey"
	KindInvalidIdentifier       Kind = "InvalidIdentifier"
	KindMissingPublicKey        Kind = "MissingPublicKey"
	KindMalformedDid            Kind = "MalformedDid"
	KindResolutionFailed        Kind = "ResolutionFailed"
	KindMalformedDocument       Kind = "MalformedDocument"
	KindNoAuthenticationKeys    Kind = "NoAuthenticationKeys"
	KindSelfCertificationFailed Kind = "SelfCertificationFailed"
	KindUnsupportedMethod       Kind = "UnsupportedMethod"
	KindInvalidArgument         Kind = "InvalidArgument"
)

// Sentinels for errors.Is matching. A sentinel matches every *Error of the
// same kind.
var (
	ErrUnsupportedAlgorithm    = &Error{Kind: KindUnsupportedAlgorithm}
	ErrMalformedKey            = &Error{Kind: KindMalformedKey}
	ErrInvalidIdentifier       = &Error{Kind: KindInvalidIdentifier}
	ErrMissingPublicKey        = &Error{Kind: KindMissingPublicKey}
	ErrMalformedDid            = &Error{Kind: KindMalformedDid}
	ErrResolutionFailed        = &Error{Kind: KindResolutionFailed}
	ErrMalformedDocument       = &Error{Kind: KindMalformedDocument}
	ErrNoAuthenticationKeys    = &Error{Kind: KindNoAuthenticationKeys}
	ErrSelfCertificationFailed = &Error{Kind: KindSelfCertificationFailed}
	ErrUnsupportedMethod       = &Error{Kind: KindUnsupportedMethod}
	ErrInvalidArgument         = &Error{Kind: KindInvalidArgument}
)

// Error is a categorized failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Errorf builds an *Error of the given kind. A %w verb in format sets Err.
func Errorf(kind Kind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{
		Kind:    kind,
		Message: wrapped.Error(),
		Err:     errors.Unwrap(wrapped),
	}
}

// Wrap categorizes err under kind. Errors already carrying a kind keep it.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return err
	}

	if message == "" {
		message = err.Error()
	} else {
		message = message + ": " + err.Error()
	}

	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" for uncategorized errors. Provider
// errors are mapped onto their kinds.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	switch {
	case errors.Is(err, crypto.ErrUnsupportedAlgorithm):
		return KindUnsupportedAlgorithm
	case errors.Is(err, crypto.ErrMalformedKey):
		return KindMalformedKey
	case errors.Is(err, crypto.ErrMalformedSignature):
		return KindInvalidArgument
	}

	return ""
}

// FromProvider categorizes an error returned by a crypto.Provider.
func FromProvider(err error) error {
	if err == nil {
		return nil
	}

	kind := KindOf(err)
	if kind == "" {
		return err
	}

	return Wrap(kind, err, "")
}
