package util

const DefaultPageSize = 10

// Calculate clamps page/size and returns the query offset and limit.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}

type Page struct {
	TotalPages  int  `json:"total_pages"`
	CurrentPage int  `json:"current_page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Paginate clamps the requested page into the valid range and returns the
// page metadata plus the offset/limit to query with. An empty result set
// still has one (empty) page, and an out-of-range page resolves to the
// nearest valid one.
func Paginate(total int64, page, size int) (Page, int, int) {
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return Page{
		TotalPages:  totalPages,
		CurrentPage: page,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, (page - 1) * size, size
}
