// Package did models Decentralized Identifiers, DID Documents and the error
// taxonomy shared by the builder, resolver and verifier packages.
package did

import (
	"regexp"
	"strings"
)

// DID methods understood by this module.
const (
	MethodKey = "key"
	MethodWeb = "web"
)

const scheme = "did"

var (
	methodNamePattern = regexp.MustCompile(`^[a-z0-9]+$`)
	// idchar = ALPHA / DIGIT / "." / "-" / "_" / pct-encoded, segments split by ":".
	methodSpecificIDPattern = regexp.MustCompile(`^(?:(?:[A-Za-z0-9._-]|%[0-9A-Fa-f]{2})*:)*(?:[A-Za-z0-9._-]|%[0-9A-Fa-f]{2})+$`)
)

// DID is a parsed decentralized identifier.
type DID struct {
	Method           string
	MethodSpecificID string
}

// Parse parses a bare DID (no path, query or fragment).
func Parse(s string) (*DID, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != scheme {
		return nil, Errorf(KindMalformedDid, "%q is not a did", s)
	}

	if !methodNamePattern.MatchString(parts[1]) {
		return nil, Errorf(KindMalformedDid, "invalid method name in %q", s)
	}

	if !methodSpecificIDPattern.MatchString(parts[2]) {
		return nil, Errorf(KindMalformedDid, "invalid method-specific id in %q", s)
	}

	return &DID{Method: parts[1], MethodSpecificID: parts[2]}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *DID {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *DID) String() string {
	return scheme + ":" + d.Method + ":" + d.MethodSpecificID
}

// URL returns the DID URL of fragment within d.
func (d *DID) URL(fragment string) string {
	return d.String() + "#" + fragment
}

// SplitFragment splits a DID URL into its DID and fragment parts.
func SplitFragment(didURL string) (string, string) {
	base, fragment, _ := strings.Cut(didURL, "#")
	return base, fragment
}

// AbsoluteURL resolves a possibly relative DID URL ("#key-1") against base.
func AbsoluteURL(base, ref string) string {
	if strings.HasPrefix(ref, "#") {
		return base + ref
	}
	return ref
}
