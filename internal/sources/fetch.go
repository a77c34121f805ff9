package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ManifestDownload is one downloadable entry in a remote manifest.
type ManifestDownload struct {
	Title      string   `json:"title" validate:"required,max=255"`
	URIs       []string `json:"uris" validate:"required,min=1,dive,required"`
	UploadDate string   `json:"uploadDate" validate:"required,max=255"`
	FileSize   string   `json:"fileSize" validate:"required,max=255"`
}

// Manifest is the document a download source URL must serve. A manifest
// with zero downloads is valid; it just registers an empty source.
type Manifest struct {
	Name      string             `json:"name" validate:"required,max=255"`
	Downloads []ManifestDownload `json:"downloads" validate:"dive"`
}

// fetchManifest downloads and validates the manifest at url, returning
// the parsed document and the response ETag (empty if the server sent
// none). Network and schema failures leave no state behind.
func fetchManifest(ctx context.Context, client *http.Client, validate *validator.Validate, url string) (*Manifest, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch manifest: %w", err)
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, "", fmt.Errorf("read manifest body: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch manifest: status %d", resp.StatusCode)
	}

	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, "", fmt.Errorf("%w: decode: %v", ErrManifestInvalid, err)
	}

	if err := validate.Struct(&manifest); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	// A missing downloads key decodes to a nil slice the dive rule never
	// sees; the key itself is mandatory even though the array may be empty.
	if manifest.Downloads == nil {
		return nil, "", fmt.Errorf("%w: downloads is required", ErrManifestInvalid)
	}

	return &manifest, resp.Header.Get("ETag"), nil
}
