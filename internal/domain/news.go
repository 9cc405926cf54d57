package domain

import "time"

// NewsItem is one entry of the unified news list, merged from the local
// article store and the external note.com feed.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Href        string    `json:"href"`
	IsExternal  bool      `json:"isExternal"`
}
