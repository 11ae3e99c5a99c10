package services

import "gorm.io/gorm"

const (
	maxPageSize = 100
	// maxPage keeps Offset far from int overflow; any page past it is empty
	// for every table this API serves.
	maxPage = 1 << 20
)

// PageParams selects one page of a list. Page is 1-based.
type PageParams struct {
	Page int
	Size int
}

// Normalize clamps p into a usable range, using defaultSize when Size is
// unset.
func (p PageParams) Normalize(defaultSize int) PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Size
}

// Paginate returns a GORM scope applying p's limit and offset.
func Paginate(p PageParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Size)
	}
}
