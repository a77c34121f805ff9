package notify

import "time"

const (
	SourceImportedEventType  = "source.imported"
	SourceRefreshedEventType = "source.refreshed"
	SourceRemovedEventType   = "source.removed"
)

type SourceEvent struct {
	Type          string    `json:"type"`
	SourceID      int       `json:"source_id"`
	Name          string    `json:"name,omitempty"`
	DownloadCount int       `json:"download_count,omitempty"`
	MatchedCount  int       `json:"matched_count,omitempty"`
	At            time.Time `json:"at"`
}
