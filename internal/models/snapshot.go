package models

import "time"

// Snapshot is the demo payload produced by the server for a tag.
type Snapshot struct {
	Tag         string    `json:"tag"`
	Sequence    int64     `json:"sequence"`
	GeneratedAt time.Time `json:"generatedAt"`
}
