package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"repackhub/internal/catalog"
	"repackhub/pkg/models"
)

// CatalogProvider supplies the read-only matching inputs: the reference
// catalog entries and the exact-match title-hash table.
type CatalogProvider interface {
	Entries(ctx context.Context) ([]catalog.Entry, error)
	TitleHashMapping(ctx context.Context) (catalog.TitleHashMapping, error)
}

// Service owns the import/refresh flow for download sources. All mutating
// operations are serialized by an internal mutex: the id allocator's
// cached maxima make concurrent imports to the same collections unsafe,
// so the single-flight constraint is enforced here rather than documented
// away.
type Service struct {
	mu       sync.Mutex
	repo     *Repo
	catalog  CatalogProvider
	client   *http.Client
	validate *validator.Validate
	alloc    *Allocator
}

func NewService(repo *Repo, cat CatalogProvider, fetchTimeout time.Duration) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		client:   &http.Client{Timeout: fetchTimeout},
		validate: validator.New(),
		alloc:    NewAllocator(),
	}
}

// ImportSource registers the manifest at url as a new download source and
// ingests its items.
//
// If the URL is already registered it returns (nil, nil), or
// ErrSourceExists when failOnDuplicate is set. Fetch and validation
// failures propagate with nothing written. On success the returned source
// carries the aggregated catalog ids matched across all its items.
func (s *Service) ImportSource(ctx context.Context, url string, failOnDuplicate bool) (*models.DownloadSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.repo.URLExists(url)
	if err != nil {
		return nil, err
	}
	if exists {
		if failOnDuplicate {
			return nil, ErrSourceExists
		}
		return nil, nil
	}

	manifest, etag, err := fetchManifest(ctx, s.client, s.validate, url)
	if err != nil {
		return nil, err
	}

	entries, err := s.catalog.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	index := catalog.BuildIndex(entries)

	hashes, err := s.catalog.TitleHashMapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("load title hashes: %w", err)
	}

	id, err := s.alloc.NextID(sourcesCollection, s.repo.Sources)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	source := &models.DownloadSource{
		ID:            id,
		URL:           url,
		Name:          manifest.Name,
		ETag:          etag,
		Status:        models.DownloadSourceUpToDate,
		DownloadCount: len(manifest.Downloads),
		ObjectIDs:     []string{},
		Fingerprint:   uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.PutSource(source); err != nil {
		return nil, err
	}

	objectIDs, ingestErr := s.ingest(source, manifest.Downloads, hashes, index)

	// The ingest loop consumed repack ids (and a failed batch still
	// advanced the cache), so the cached maxima are dropped either way.
	s.alloc.Invalidate()

	if ingestErr != nil {
		// The source record already exists without its repacks; callers
		// detect this via a repack-count mismatch and retry ingestion.
		return nil, ingestErr
	}

	imported := *source
	imported.ObjectIDs = objectIDs
	return &imported, nil
}

// ingest converts manifest downloads into stored repacks: one catalog
// match per item, one allocator-assigned id per item, one shared batch
// timestamp, and a single atomic batch write. Afterwards the source's
// aggregated objectIds are overwritten with the union of everything
// matched. Returns that union.
func (s *Service) ingest(source *models.DownloadSource, downloads []ManifestDownload, hashes catalog.TitleHashMapping, index catalog.ByLetter) ([]string, error) {
	now := time.Now()

	var tally matchTally
	union := make([]string, 0)
	seen := make(map[string]struct{})

	batch := s.repo.Repacks.Batch()

	for _, download := range downloads {
		objectIDs := matchTitle(download.Title, hashes, index, &tally)
		if objectIDs == nil {
			objectIDs = []string{}
		}

		for _, id := range objectIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				union = append(union, id)
			}
		}

		repackID, err := s.alloc.NextID(repacksCollection, s.repo.Repacks)
		if err != nil {
			return nil, err
		}

		repack := models.Repack{
			ID:               repackID,
			ObjectIDs:        objectIDs,
			Title:            download.Title,
			URIs:             download.URIs,
			FileSize:         download.FileSize,
			Repacker:         source.Name,
			UploadDate:       download.UploadDate,
			DownloadSourceID: source.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		value, err := json.Marshal(repack)
		if err != nil {
			return nil, fmt.Errorf("encode repack %d: %w", repack.ID, err)
		}
		batch.Put(strconv.Itoa(repack.ID), value)
	}

	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("write repack batch: %w", err)
	}

	log.Printf("[sources] matching stats for %s: hash=%d fuzzy=%d none=%d",
		source.Name, tally.Hash, tally.Fuzzy, tally.None)

	existing, err := s.repo.GetSource(source.ID)
	if err != nil {
		return nil, err
	}
	existing.ObjectIDs = union
	if err := s.repo.PutSource(existing); err != nil {
		return nil, err
	}

	return union, nil
}

// RefreshSource re-fetches the manifest at url and updates the mutable
// fields of existing: name, etag, status, download count and UpdatedAt.
// CreatedAt and Fingerprint are preserved exactly. Items are NOT
// re-ingested on a refresh; picking up new items requires routing through
// the importer instead.
func (s *Service) RefreshSource(ctx context.Context, existing *models.DownloadSource, url string) (*models.DownloadSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, etag, err := fetchManifest(ctx, s.client, s.validate, url)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Name = manifest.Name
	updated.ETag = etag
	updated.Status = models.DownloadSourceUpToDate
	updated.DownloadCount = len(manifest.Downloads)
	updated.UpdatedAt = time.Now()

	if err := s.repo.PutSource(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveSource deletes the source and all of its repacks.
func (s *Service) RemoveSource(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteSource(id); err != nil {
		return err
	}
	// Deleting repacks shrinks the collections out of band.
	s.alloc.Invalidate()
	return nil
}
