package did

import (
	"net/url"
	"strings"
)

const (
	webPrefix = "did:web:"

	wellKnownPath = "/.well-known/did.json"
	documentPath  = "/did.json"
)

// WebURL maps a did:web identifier to the location of its DID Document:
// did:web:example.com -> https://example.com/.well-known/did.json and
// did:web:example.com:a:b -> https://example.com/a/b/did.json.
func WebURL(d *DID, useHTTP bool) (string, error) {
	if d.Method != MethodWeb {
		return "", Errorf(KindMalformedDid, "%s is not a did:web", d)
	}

	segments := strings.Split(d.MethodSpecificID, ":")
	for i, segment := range segments {
		unescaped, err := url.PathUnescape(segment)
		if err != nil {
			return "", Errorf(KindMalformedDid, "invalid did:web segment %q: %w", segment, err)
		}
		segments[i] = unescaped
	}

	host := segments[0]
	if host == "" || strings.ContainsAny(host, "/?#@") {
		return "", Errorf(KindMalformedDid, "invalid did:web host %q", host)
	}

	protocol := "https://"
	if useHTTP {
		protocol = "http://"
	}

	if len(segments) == 1 {
		return protocol + host + wellKnownPath, nil
	}

	for _, segment := range segments[1:] {
		if segment == "" || segment == "." || segment == ".." {
			return "", Errorf(KindMalformedDid, "invalid did:web path in %s", d)
		}
	}

	return protocol + strings.Join(segments, "/") + documentPath, nil
}

// NormalizeWebIdentifier turns a did:web identifier or an https:// URL into
// the canonical did:web form.
func NormalizeWebIdentifier(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)

	switch {
	case strings.HasPrefix(identifier, webPrefix):
		d, err := Parse(identifier)
		if err != nil {
			return "", Errorf(KindInvalidIdentifier, "invalid did:web identifier: %w", err)
		}
		if _, err := WebURL(d, false); err != nil {
			return "", Errorf(KindInvalidIdentifier, "invalid did:web identifier: %w", err)
		}
		return d.String(), nil
	case strings.HasPrefix(identifier, "https://"):
		return WebDIDFromURL(identifier)
	default:
		return "", Errorf(KindInvalidIdentifier, "identifier %q must start with did:web: or https://", identifier)
	}
}

// WebDIDFromURL derives the did:web identifier served at an https URL.
func WebDIDFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", Errorf(KindInvalidIdentifier, "invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "https" || u.Host == "" || u.User != nil {
		return "", Errorf(KindInvalidIdentifier, "url %q is not an https origin", rawURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", Errorf(KindInvalidIdentifier, "url %q must not carry a query or fragment", rawURL)
	}

	segments := []string{strings.ReplaceAll(strings.ToLower(u.Host), ":", "%3A")}

	path := strings.TrimSuffix(u.Path, wellKnownPath)
	path = strings.TrimSuffix(path, documentPath)
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		segments = append(segments, strings.ReplaceAll(url.PathEscape(segment), ":", "%3A"))
	}

	id := webPrefix + strings.Join(segments, ":")
	if _, err := Parse(id); err != nil {
		return "", Errorf(KindInvalidIdentifier, "url %q does not map to a did:web: %w", rawURL, err)
	}

	return id, nil
}
