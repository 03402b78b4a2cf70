package domain

import "time"

// MenuStatus enumerates the lifecycle of an uploaded menu.
type MenuStatus string

const (
	MenuStatusProcessing MenuStatus = "processing"
	MenuStatusCompleted  MenuStatus = "completed"
	MenuStatusFailed     MenuStatus = "failed"
)

// Menu represents one uploaded menu photo and its extraction result.
type Menu struct {
	ID          string
	Status      MenuStatus
	SourceKey   string
	Currency    string
	Locale      string
	ItemCount   int
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// MenuItem is a persisted dish extracted from a menu.
type MenuItem struct {
	ID          string
	MenuID      string
	Name        string
	Description string
	Price       string
	Section     string
	Position    int
	CreatedAt   time.Time
}

// MenuItemRequest is the unit of work the resolution pipeline operates on.
// ID must be unique within one pipeline call.
type MenuItemRequest struct {
	ID          string
	Name        string
	Description string
}

// ExtractedItem is a dish as read off the menu photo, prior to persistence.
type ExtractedItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Section     string `json:"section"`
}

// ExtractedMenu is the vision extractor output for one menu photo.
type ExtractedMenu struct {
	Items []ExtractedItem `json:"items"`
	// CurrencyHints carries currency symbols or codes the extractor saw
	// next to prices, in reading order.
	CurrencyHints []string `json:"currency_hints"`
}
