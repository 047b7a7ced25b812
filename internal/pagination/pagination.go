// Package pagination reads page and limit query parameters for list endpoints
// and turns them into an offset into the stored order.
package pagination

import (
	"math"
	"net/url"
	"strconv"
)

// Params represents pagination parameters extracted from a request.
type Params struct {
	Page   int // Current page number (1-based)
	Limit  int // Number of items per page
	Offset int // Number of stored records to skip
}

const (
	// MaxLimit is the maximum number of items allowed per page
	MaxLimit = 1000
	// DefaultPage is the default page number when not specified
	DefaultPage = 1
	// DefaultLimit is the default number of items per page when not specified
	DefaultLimit = MaxLimit
)

// calculateOffset computes the offset for a given page and limit.
// It ensures page is at least 1 to avoid negative offsets.
func calculateOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// GetPaginationParams extracts pagination parameters from URL query values.
// Invalid values fall back to the defaults and the limit is capped at MaxLimit.
// The page is capped so the offset cannot overflow.
func GetPaginationParams(q url.Values) *Params {
	params := &Params{
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if val, err := strconv.Atoi(pageStr); err == nil && val > 0 {
			params.Page = val
		}
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		if val, err := strconv.Atoi(limitStr); err == nil && val > 0 {
			params.Limit = val
		}
	}

	// enforce max limit
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}

	if maxPage := math.MaxInt / params.Limit; params.Page > maxPage {
		params.Page = maxPage
	}

	params.Offset = calculateOffset(params.Page, params.Limit)
	return params
}
