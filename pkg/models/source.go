package models

import "time"

// DownloadSourceStatus tracks whether a source's manifest was synced
// successfully on its last fetch.
type DownloadSourceStatus int

const (
	DownloadSourceUpToDate DownloadSourceStatus = iota
	DownloadSourceErrored
)

// DownloadSource is a registered remote manifest origin. It is persisted
// as JSON in the "sources" sublevel, keyed by its decimal id.
//
// Invariants: URL is unique across all sources, ID never changes once
// assigned, and CreatedAt is written exactly once (refreshes only touch
// UpdatedAt and the mutable fields).
type DownloadSource struct {
	ID            int                  `json:"id"`
	URL           string               `json:"url"`
	Name          string               `json:"name"`
	ETag          string               `json:"etag"`
	Status        DownloadSourceStatus `json:"status"`
	DownloadCount int                  `json:"downloadCount"`
	ObjectIDs     []string             `json:"objectIds"`
	Fingerprint   string               `json:"fingerprint,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}
