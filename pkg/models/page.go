package models

// Page is the envelope for page-based listings. TotalPages is
// ceil(Total/limit); zero when the filtered set is empty.
type Page struct {
	Data       any `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

func NewPage(data any, total, page, limit int) Page {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page{
		Data:       data,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
}
