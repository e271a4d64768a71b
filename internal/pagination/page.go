package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is the page/limit pair bound from list request query strings.
type Query struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in defaults for zero values and caps the limit.
func (q Query) Normalize() Query {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q Query) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Limit
}

// TotalPages is the number of pages needed for count items; never below 1.
func TotalPages(count, limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if count <= 0 {
		return 1
	}
	return (count + limit - 1) / limit
}

// Meta describes one page of a list response.
type Meta struct {
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Window     []Entry `json:"window"`
}

// NewMeta builds the paging metadata for q over count items.
func NewMeta(q Query, count int) Meta {
	q = q.Normalize()
	pages := TotalPages(count, q.Limit)
	return Meta{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      count,
		TotalPages: pages,
		Window:     Window(q.Page, pages, DefaultRadius),
	}
}
