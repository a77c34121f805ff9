package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repackhub/internal/catalog"
	"repackhub/pkg/kvstore"
)

type stubCatalog struct {
	entries []catalog.Entry
	hashes  catalog.TitleHashMapping
}

func (s *stubCatalog) Entries(ctx context.Context) ([]catalog.Entry, error) {
	return s.entries, nil
}

func (s *stubCatalog) TitleHashMapping(ctx context.Context) (catalog.TitleHashMapping, error) {
	if s.hashes == nil {
		return catalog.TitleHashMapping{}, nil
	}
	return s.hashes, nil
}

func newTestService(t *testing.T, cat *stubCatalog) (*Service, *Repo) {
	t.Helper()

	store, err := kvstore.Open(filepath.Join(t.TempDir(), "sources.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sourcesSub, err := store.Sublevel("sources")
	require.NoError(t, err)
	repacksSub, err := store.Sublevel("repacks")
	require.NoError(t, err)

	repo := NewRepo(sourcesSub, repacksSub)
	return NewService(repo, cat, 5*time.Second), repo
}

// manifestServer serves body as-is with an optional ETag header.
func manifestServer(t *testing.T, body string, etag string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if etag != "" {
			w.Header().Set("ETag", etag)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const widgetManifest = `{
	"name": "Foo",
	"downloads": [
		{"title": "Widget Pro", "uris": ["http://x"], "uploadDate": "2024-01-01", "fileSize": "10 MB"}
	]
}`

func TestImportSourcePersistsSourceAndRepacks(t *testing.T) {
	srv := manifestServer(t, widgetManifest, `"v1"`)
	service, repo := newTestService(t, &stubCatalog{
		entries: []catalog.Entry{{ID: "1", Name: "Widget"}},
	})

	source, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)
	require.NotNil(t, source)

	assert.Equal(t, 1, source.ID)
	assert.Equal(t, "Foo", source.Name)
	assert.Equal(t, srv.URL, source.URL)
	assert.Equal(t, `"v1"`, source.ETag)
	assert.Equal(t, 1, source.DownloadCount)
	assert.Equal(t, []string{"1"}, source.ObjectIDs)
	assert.NotEmpty(t, source.Fingerprint)
	assert.Equal(t, source.CreatedAt, source.UpdatedAt)

	// the aggregate was written back to the stored record too
	stored, err := repo.GetSource(source.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, stored.ObjectIDs)

	repacks, err := repo.ListRepacksForSource(source.ID)
	require.NoError(t, err)
	require.Len(t, repacks, 1)

	repack := repacks[0]
	assert.Equal(t, 1, repack.ID)
	assert.Equal(t, "Widget Pro", repack.Title)
	assert.Equal(t, []string{"http://x"}, repack.URIs)
	assert.Equal(t, "10 MB", repack.FileSize)
	assert.Equal(t, "2024-01-01", repack.UploadDate)
	assert.Equal(t, "Foo", repack.Repacker)
	assert.Equal(t, source.ID, repack.DownloadSourceID)
	assert.Equal(t, []string{"1"}, repack.ObjectIDs)
	assert.Equal(t, repack.CreatedAt, repack.UpdatedAt)
}

func TestImportSourceNoCatalogMatch(t *testing.T) {
	srv := manifestServer(t, widgetManifest, "")
	service, repo := newTestService(t, &stubCatalog{})

	source, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Empty(t, source.ObjectIDs)

	repacks, err := repo.ListRepacksForSource(source.ID)
	require.NoError(t, err)
	require.Len(t, repacks, 1)
	assert.Empty(t, repacks[0].ObjectIDs)
}

func TestImportDuplicateURLSkips(t *testing.T) {
	srv := manifestServer(t, widgetManifest, "")
	service, repo := newTestService(t, &stubCatalog{})

	first, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.Nil(t, second)

	list, err := repo.ListSources()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImportDuplicateURLFails(t *testing.T) {
	srv := manifestServer(t, widgetManifest, "")
	service, _ := newTestService(t, &stubCatalog{})

	_, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)

	_, err = service.ImportSource(context.Background(), srv.URL, true)
	require.ErrorIs(t, err, ErrSourceExists)
}

func TestImportInvalidManifestWritesNothing(t *testing.T) {
	// download entry without uris fails schema validation
	srv := manifestServer(t, `{"name": "Foo", "downloads": [{"title": "Widget Pro"}]}`, "")
	service, repo := newTestService(t, &stubCatalog{})

	_, err := service.ImportSource(context.Background(), srv.URL, false)
	require.ErrorIs(t, err, ErrManifestInvalid)

	list, err := repo.ListSources()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportManifestWithoutDownloadsKeyWritesNothing(t *testing.T) {
	// the downloads key is mandatory; a manifest omitting it must not
	// register an empty source
	srv := manifestServer(t, `{"name": "Foo"}`, "")
	service, repo := newTestService(t, &stubCatalog{})

	_, err := service.ImportSource(context.Background(), srv.URL, false)
	require.ErrorIs(t, err, ErrManifestInvalid)

	list, err := repo.ListSources()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportManifestWithEmptyDownloadsArray(t *testing.T) {
	// an explicitly empty array is a valid manifest with zero items
	srv := manifestServer(t, `{"name": "Foo", "downloads": []}`, "")
	service, repo := newTestService(t, &stubCatalog{})

	source, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Zero(t, source.DownloadCount)

	repacks, err := repo.ListRepacksForSource(source.ID)
	require.NoError(t, err)
	assert.Empty(t, repacks)
}

func TestImportNetworkErrorWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	service, repo := newTestService(t, &stubCatalog{})

	_, err := service.ImportSource(context.Background(), url, false)
	require.Error(t, err)

	list, err := repo.ListSources()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRefreshPreservesCreatedAt(t *testing.T) {
	srv := manifestServer(t, widgetManifest, `"v1"`)
	service, repo := newTestService(t, &stubCatalog{})

	imported, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)
	srv.Close()

	renamed := manifestServer(t, `{
		"name": "Foo Renamed",
		"downloads": [
			{"title": "Widget Pro", "uris": ["http://x"], "uploadDate": "2024-01-01", "fileSize": "10 MB"},
			{"title": "Widget Lite", "uris": ["http://y"], "uploadDate": "2024-02-01", "fileSize": "2 MB"}
		]
	}`, `"v2"`)

	existing, err := repo.GetSource(imported.ID)
	require.NoError(t, err)

	updated, err := service.RefreshSource(context.Background(), existing, renamed.URL)
	require.NoError(t, err)

	assert.Equal(t, "Foo Renamed", updated.Name)
	assert.Equal(t, `"v2"`, updated.ETag)
	assert.Equal(t, 2, updated.DownloadCount)
	assert.True(t, updated.CreatedAt.Equal(existing.CreatedAt), "CreatedAt must be preserved exactly")
	assert.True(t, updated.UpdatedAt.After(existing.UpdatedAt), "UpdatedAt must advance")
	assert.Equal(t, existing.Fingerprint, updated.Fingerprint)

	// refresh never re-ingests items
	repacks, err := repo.ListRepacksForSource(imported.ID)
	require.NoError(t, err)
	assert.Len(t, repacks, 1)
}

func TestSequentialImportsGetDistinctIDs(t *testing.T) {
	srvA := manifestServer(t, `{"name": "A", "downloads": [
		{"title": "Alpha", "uris": ["http://a"], "uploadDate": "2024-01-01", "fileSize": "1 MB"},
		{"title": "Beta", "uris": ["http://b"], "uploadDate": "2024-01-02", "fileSize": "2 MB"},
		{"title": "Gamma", "uris": ["http://c"], "uploadDate": "2024-01-03", "fileSize": "3 MB"}
	]}`, "")
	srvB := manifestServer(t, `{"name": "B", "downloads": [
		{"title": "Delta", "uris": ["http://d"], "uploadDate": "2024-01-04", "fileSize": "4 MB"},
		{"title": "Epsilon", "uris": ["http://e"], "uploadDate": "2024-01-05", "fileSize": "5 MB"},
		{"title": "Zeta", "uris": ["http://f"], "uploadDate": "2024-01-06", "fileSize": "6 MB"}
	]}`, "")

	service, repo := newTestService(t, &stubCatalog{})

	a, err := service.ImportSource(context.Background(), srvA.URL, false)
	require.NoError(t, err)
	b, err := service.ImportSource(context.Background(), srvB.URL, false)
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)

	seen := make(map[int]bool)
	for _, sourceID := range []int{a.ID, b.ID} {
		repacks, err := repo.ListRepacksForSource(sourceID)
		require.NoError(t, err)
		require.Len(t, repacks, 3)
		for _, r := range repacks {
			require.False(t, seen[r.ID], "repack id %d assigned twice", r.ID)
			seen[r.ID] = true
		}
	}
	assert.Len(t, seen, 6)
}

func TestImportsAreSerialized(t *testing.T) {
	srvs := make([]*httptest.Server, 4)
	for i := range srvs {
		srvs[i] = manifestServer(t, widgetManifest, "")
	}

	service, repo := newTestService(t, &stubCatalog{})

	var wg sync.WaitGroup
	for _, srv := range srvs {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			_, err := service.ImportSource(context.Background(), url, false)
			assert.NoError(t, err)
		}(srv.URL)
	}
	wg.Wait()

	list, err := repo.ListSources()
	require.NoError(t, err)
	require.Len(t, list, 4)

	ids := make(map[int]bool)
	for _, s := range list {
		require.False(t, ids[s.ID], "source id %d assigned twice", s.ID)
		ids[s.ID] = true
	}
}

func TestRemoveSourceDeletesRepacks(t *testing.T) {
	srv := manifestServer(t, widgetManifest, "")
	service, repo := newTestService(t, &stubCatalog{})

	source, err := service.ImportSource(context.Background(), srv.URL, false)
	require.NoError(t, err)

	require.NoError(t, service.RemoveSource(source.ID))

	_, err = repo.GetSource(source.ID)
	require.ErrorIs(t, err, ErrSourceNotFound)

	var count int
	require.NoError(t, repo.Repacks.Iterate(func(string, []byte) bool {
		count++
		return true
	}))
	assert.Zero(t, count)
}
