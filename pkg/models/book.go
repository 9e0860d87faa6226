package models

import "time"

// Status is the publication state of a book as reported by its source
// collection. The numeric values are stored as-is in the database; the gap
// at 1 is historical (a retired "licensed" state) and must be preserved.
type Status int

const (
	StatusOngoing   Status = 0
	StatusCompleted Status = 2
	StatusPaused    Status = 3
)

func (s Status) Valid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusPaused:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusOngoing:
		return "ongoing"
	case StatusCompleted:
		return "completed"
	case StatusPaused:
		return "paused"
	}
	return "unknown"
}

// Source identifies which upstream collection a book was ingested from.
type Source = string

const (
	SourceTruyenFull Source = "truyenfull"
	SourceThuQuan    Source = "thuquan"
	SourceImport     Source = "import"
)

// Book is a catalog row. AuthorName is populated by list/detail queries that
// join the authors table; it is never written back.
type Book struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Synopsis      string    `json:"synopsis,omitempty"`
	Status        Status    `json:"status"`
	Source        Source    `json:"source"`
	AuthorID      *int64    `json:"author_id,omitempty"`
	AuthorName    string    `json:"author_name,omitempty"`
	ViewCount     int64     `json:"view_count"`
	BookmarkCount int64     `json:"bookmark_count"`
	CommentCount  int64     `json:"comment_count"`
	VoteCount     int64     `json:"vote_count"`
	ReviewScore   float64   `json:"review_score"`
	ReviewCount   int64     `json:"review_count"`
	ChapterCount  int64     `json:"chapter_count"`
	WordCount     int64     `json:"word_count"`
	CoverURL      string    `json:"cover_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookDetail is the full catalog view of one book.
type BookDetail struct {
	Book
	Author *Author `json:"author,omitempty"`
	Genres []Genre `json:"genres"`
	Tags   []Tag   `json:"tags"`
}

type Author struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
}

// Genre carries BookCount only in aggregate listings; it is zero elsewhere.
type Genre struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	BookCount int64  `json:"book_count,omitempty"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Chapter holds reading content. Idx is the 1-based position within the book.
type Chapter struct {
	ID      int64  `json:"id"`
	BookID  int64  `json:"book_id"`
	Idx     int64  `json:"idx"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}
