package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// KeyMaterialLocation represents the URI of a certificate, private key or TLS root.
// A bare path without a scheme is treated as a local file.
type KeyMaterialLocation struct {
	Raw    string        // Original URI
	Scheme string        // file, vault or s3
	User   *url.Userinfo // Embedded credentials, if any
	Host   string        // Hostname or bucket
	Path   string        // Resource path
	Query  url.Values    // Query parameters
}

// NewKeyMaterialLocation parses and validates a key material URI.
func NewKeyMaterialLocation(uri string) (KeyMaterialLocation, error) {
	if uri == "" {
		return KeyMaterialLocation{}, fmt.Errorf("%w: empty location", ErrInvalidLocationURI)
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return KeyMaterialLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "":
		return KeyMaterialLocation{Raw: uri, Scheme: "file", Path: uri, Query: url.Values{}}, nil
	case "file", "vault", "s3":
	default:
		return KeyMaterialLocation{}, fmt.Errorf("%w: unsupported scheme %s", ErrInvalidLocationURI, scheme)
	}

	return KeyMaterialLocation{
		Raw:    uri,
		Scheme: scheme,
		User:   parsed.User,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}, nil
}

// String returns the original URI string.
func (loc KeyMaterialLocation) String() string {
	return loc.Raw
}

// Redacted returns the URI with any embedded password masked.
func (loc KeyMaterialLocation) Redacted() string {
	parsed, err := url.Parse(loc.Raw)
	if err != nil {
		return loc.Raw
	}
	return parsed.Redacted()
}

// GetParam returns a query parameter value.
func (loc KeyMaterialLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc KeyMaterialLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrKeyMaterialNotFound is returned when the referenced object does not exist.
	ErrKeyMaterialNotFound = errors.New("key material not found")

	// ErrSourceUnavailable is returned when a key material source is not accessible.
	ErrSourceUnavailable = errors.New("key material source unavailable")

	// ErrInvalidLocationURI is returned when a key material URI is malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid key material location URI")
)

// KeyMaterialSource reads one PEM or key blob from a backing store.
type KeyMaterialSource interface {
	// Fetch returns the raw bytes of the referenced object.
	Fetch(ctx context.Context) ([]byte, error)

	// Name returns a short identifier of the source kind.
	Name() string

	// LocationURI returns the URI the source was created from, with secrets redacted.
	LocationURI() string
}
