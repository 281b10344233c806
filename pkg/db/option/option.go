package option

import (
	"strings"
	"time"

	"github.com/chatrank/chatrank/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption customizes a gorm query built from a struct filter.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination applies cursor pagination over (created_at, id). The query
// fetches one extra row so callers can detect whether more pages exist.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		size := p.PageSize
		if size <= 0 {
			size = 10
		}

		if token := strings.TrimSpace(p.PageToken); token != "" {
			cursor, err := pagination.DecodeCursor(token)
			if err == nil && cursor != nil {
				if at, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
					db = db.Where("(created_at, id) < (?, ?)", at, cursor.ID)
				}
			}
		}

		return db.Order("created_at DESC, id DESC").Limit(size + 1)
	})
}
