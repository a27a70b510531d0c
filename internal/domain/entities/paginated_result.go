package entities

// PaginatedResult is the listing envelope returned to callers and stored in
// the cache.
type PaginatedResult struct {
	Data []Facility `json:"data"`
	Meta PageMeta   `json:"meta"`
}

// PageMeta describes where a page sits within the full result set
type PageMeta struct {
	Total           int64 `json:"total"`
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}
