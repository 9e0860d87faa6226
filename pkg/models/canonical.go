package models

// BookCanonical is the normalized, internal form of a book entry used by the
// crawler and the CSV import path.
//
// Every upstream collection is mapped into this structure first; the catalog
// tables are only ever written from this representation.
type BookCanonical struct {
	Name          string         `json:"name"`
	AltNames      []string       `json:"alt_names,omitempty"`
	Author        string         `json:"author,omitempty"`
	AuthorLocal   string         `json:"author_local,omitempty"`
	Synopsis      string         `json:"synopsis,omitempty"`
	Status        Status         `json:"status"`
	Source        Source         `json:"source"`
	Genres        []string       `json:"genres,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	ChapterCount  int64          `json:"chapter_count"`
	WordCount     int64          `json:"word_count"`
	ViewCount     int64          `json:"view_count"`
	BookmarkCount int64          `json:"bookmark_count"`
	CommentCount  int64          `json:"comment_count"`
	VoteCount     int64          `json:"vote_count"`
	ReviewScore   float64        `json:"review_score"`
	ReviewCount   int64          `json:"review_count"`
	CoverURL      string         `json:"cover_url,omitempty"`
	Chapters      []ChapterDraft `json:"chapters,omitempty"`
}

// ChapterDraft is chapter content carried by sources that expose full text
// (the local mirror does; the live API reports counts only).
type ChapterDraft struct {
	Idx     int64  `json:"idx"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}
