package sync

import "time"

// BookmarkEvent is fanned out to every connected sync client when a user's
// shelf changes. Type is "bookmark.update" or "bookmark.delete".
type BookmarkEvent struct {
	Type    string    `json:"type"`
	UserID  string    `json:"user_id"`
	BookID  int64     `json:"book_id"`
	Chapter int64     `json:"chapter,omitempty"`
	Shelf   string    `json:"shelf,omitempty"`
	At      time.Time `json:"at"`
}
