package domain

import "time"

// ImageSource enumerates the terminal resolution states of a menu item.
// An item is claimed by exactly one source; states never move backward.
type ImageSource string

const (
	SourceUnresolved  ImageSource = "unresolved"
	SourceCached      ImageSource = "cached"
	SourceSemantic    ImageSource = "semantic"
	SourceSearch      ImageSource = "search"
	SourceGenerated   ImageSource = "generated"
	SourcePlaceholder ImageSource = "placeholder"
)

// ImageCandidate is one image URL resolved for a menu item.
type ImageCandidate struct {
	URL          string      `json:"url"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	Source       ImageSource `json:"source"`
	Title        string      `json:"title,omitempty"`
	Width        int         `json:"width,omitempty"`
	Height       int         `json:"height,omitempty"`
	Score        float64     `json:"score,omitempty"`
}

// CacheRecord is the persisted metadata row for one stored dish image.
// Key is deterministic: {category}/{slug}_{hash12}.jpg, where hash12 is
// the truncated content hash of the optimized bytes. Two records may
// share a Key when different dish names resolved to identical binaries.
type CacheRecord struct {
	ID             string
	DishName       string
	NormalizedName string
	Category       string
	Key            string
	URL            string
	ContentHash    string
	Source         ImageSource
	Width          int
	Height         int
	Bytes          int64
	CreatedAt      time.Time
}
