package models

import "time"

// Bookmark is a user's shelf entry for one book: which chapter they are on
// and which shelf it sits in.
type Bookmark struct {
	UserID    string    `json:"user_id"`
	BookID    int64     `json:"book_id"`
	Chapter   int64     `json:"chapter"`
	Shelf     string    `json:"shelf"` // reading, finished, wishlist, dropped
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry records one reading-progress change; appended on every
// bookmark upsert.
type HistoryEntry struct {
	ID      int64     `json:"id"`
	UserID  string    `json:"user_id"`
	BookID  int64     `json:"book_id"`
	Chapter int64     `json:"chapter"`
	At      time.Time `json:"at"`
}

type Review struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    int64     `json:"book_id"`
	Rating    int       `json:"rating"` // 1..5
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
