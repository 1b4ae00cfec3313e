package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size" validate:"omitempty,gte=1,lte=250"`
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

func EncodeCursor(data Cursor) string {
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// Scope applies keyset pagination over a descending snowflake id column.
// One extra row is fetched so HasMore can be computed without a count.
func Scope(p Pagination) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.PageToken != "" {
			if cursor, err := DecodeCursor(p.PageToken); err == nil {
				if id, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
					db = db.Where("id < ?", id)
				}
			}
		}
		return db.Order("id desc").Limit(p.Size() + 1)
	}
}

// Trim cuts the extra row fetched by Scope and builds the page info.
func Trim[T any](items []T, p Pagination, idOf func(T) string) ([]T, PageInfo) {
	size := p.Size()
	if len(items) <= size {
		return items, PageInfo{}
	}
	items = items[:size]
	return items, PageInfo{
		HasMore:       true,
		NextPageToken: EncodeCursor(Cursor{ID: idOf(items[len(items)-1])}),
	}
}
