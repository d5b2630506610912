package shared

import (
	"math"
	"strconv"
)

// Page size bounds for list endpoints.
const (
	DefaultPageSize = 500
	MaxPageSize     = 500
)

// ClampPage forces perPage into [1, MaxPageSize] and page into [1, math.MaxInt/perPage]
// so the row offset cannot overflow.
func ClampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return page, perPage
}

// ParsePage reads raw query values, falling back to page 1 and the default
// size when a value is missing or not an integer, then clamps.
func ParsePage(rawPage, rawSize string) (int, int) {
	page, err := strconv.Atoi(rawPage)
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(rawSize)
	if err != nil {
		size = DefaultPageSize
	}
	return ClampPage(page, size)
}

// Offset returns the row offset for a clamped page.
func Offset(page, perPage int) int {
	page, perPage = ClampPage(page, perPage)
	return (page - 1) * perPage
}
