package sources

import "errors"

var (
	// ErrSourceExists signals an import with failOnDuplicate against a URL
	// that is already registered. Recoverable: the caller should skip.
	ErrSourceExists = errors.New("download source with this URL already exists")

	// ErrManifestInvalid signals a fetched manifest that does not match the
	// download source schema. Nothing is written for that import.
	ErrManifestInvalid = errors.New("manifest does not match download source schema")

	// ErrSourceNotFound signals a lookup for an id with no stored source.
	ErrSourceNotFound = errors.New("download source not found")
)
