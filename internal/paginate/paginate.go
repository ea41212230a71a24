package paginate

type Meta struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	PerPage     int  `json:"per_page"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// Page slices items into the requested fixed-size page. page and perPage
// must be positive; that is the caller's contract, not validated here.
// A page past the end returns an empty slice with accurate metadata.
func Page[T any](items []T, page, perPage int) ([]T, Meta) {
	totalItems := len(items)
	totalPages := (totalItems + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}

	meta := Meta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PerPage:     perPage,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}

	start := (page - 1) * perPage
	if start >= totalItems {
		return []T{}, meta
	}

	end := start + perPage
	if end > totalItems {
		end = totalItems
	}

	return items[start:end], meta
}
