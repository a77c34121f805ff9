package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"repackhub/pkg/kvstore"
	"repackhub/pkg/models"
)

// Repo wraps the two kv sublevels the engine persists into. Records are
// stored as JSON keyed by their decimal id.
type Repo struct {
	Sources kvstore.Sublevel
	Repacks kvstore.Sublevel
}

func NewRepo(sources, repacks kvstore.Sublevel) *Repo {
	return &Repo{Sources: sources, Repacks: repacks}
}

func sourceKey(id int) string { return strconv.Itoa(id) }

func (r *Repo) GetSource(id int) (*models.DownloadSource, error) {
	value, err := r.Sources.Get(sourceKey(id))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("get source %d: %w", id, err)
	}

	var source models.DownloadSource
	if err := json.Unmarshal(value, &source); err != nil {
		return nil, fmt.Errorf("decode source %d: %w", id, err)
	}
	return &source, nil
}

func (r *Repo) PutSource(source *models.DownloadSource) error {
	value, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("encode source %d: %w", source.ID, err)
	}
	if err := r.Sources.Put(sourceKey(source.ID), value); err != nil {
		return fmt.Errorf("put source %d: %w", source.ID, err)
	}
	return nil
}

func (r *Repo) ListSources() ([]models.DownloadSource, error) {
	var list []models.DownloadSource
	var decodeErr error

	err := r.Sources.Iterate(func(key string, value []byte) bool {
		var source models.DownloadSource
		if err := json.Unmarshal(value, &source); err != nil {
			decodeErr = fmt.Errorf("decode source %s: %w", key, err)
			return false
		}
		list = append(list, source)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return list, nil
}

// URLExists reports whether any stored source already uses url.
func (r *Repo) URLExists(url string) (bool, error) {
	list, err := r.ListSources()
	if err != nil {
		return false, err
	}
	for _, source := range list {
		if source.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) ListRepacksForSource(sourceID int) ([]models.Repack, error) {
	var list []models.Repack
	var decodeErr error

	err := r.Repacks.Iterate(func(key string, value []byte) bool {
		var repack models.Repack
		if err := json.Unmarshal(value, &repack); err != nil {
			decodeErr = fmt.Errorf("decode repack %s: %w", key, err)
			return false
		}
		if repack.DownloadSourceID == sourceID {
			list = append(list, repack)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate repacks: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return list, nil
}

// RepackCountForSource counts the stored repacks referencing sourceID.
// A count below the source's DownloadCount means a previous ingest batch
// failed after the source record was written; the fix is to re-run
// ingestion, not to re-import.
func (r *Repo) RepackCountForSource(sourceID int) (int, error) {
	repacks, err := r.ListRepacksForSource(sourceID)
	if err != nil {
		return 0, err
	}
	return len(repacks), nil
}

// DeleteSource removes the source record and every repack belonging to
// it, the repacks in one atomic batch.
func (r *Repo) DeleteSource(id int) error {
	repacks, err := r.ListRepacksForSource(id)
	if err != nil {
		return err
	}

	batch := r.Repacks.Batch()
	for _, repack := range repacks {
		batch.Delete(strconv.Itoa(repack.ID))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("delete repacks for source %d: %w", id, err)
	}

	if err := r.Sources.Delete(sourceKey(id)); err != nil {
		return fmt.Errorf("delete source %d: %w", id, err)
	}
	return nil
}
