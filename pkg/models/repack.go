package models

import "time"

// Repack is one downloadable entry belonging to a DownloadSource. It is
// persisted as JSON in the "repacks" sublevel, keyed by its decimal id.
// Ids are global to the repacks collection, not per-source.
//
// ObjectIDs holds the catalog entry ids the title matched against; it may
// be empty when neither the hash table nor fuzzy matching found anything.
type Repack struct {
	ID               int       `json:"id"`
	ObjectIDs        []string  `json:"objectIds"`
	Title            string    `json:"title"`
	URIs             []string  `json:"uris"`
	FileSize         string    `json:"fileSize"`
	Repacker         string    `json:"repacker"`
	UploadDate       string    `json:"uploadDate"`
	DownloadSourceID int       `json:"downloadSourceId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
