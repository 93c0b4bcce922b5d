package cache

import "time"

// Entry maps a library URI to its downloaded image file.
type Entry struct {
	URI      string // album or track URI
	ImageURI string // image URI advertised by the server
	FilePath string // local thumbnail path
	Width    int
	Height   int
	FileSize int64
	// FetchedAt defaults to the time of Put.
	FetchedAt time.Time
}

// Stats describes the index content.
type Stats struct {
	ImageCount    int       `json:"imageCount"`
	TotalBytes    int64     `json:"totalBytes"`
	SchemaVersion string    `json:"schemaVersion"`
	LastUpdated   time.Time `json:"lastUpdated,omitempty"`
}
