package server

import (
	"strings"
	"time"

	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
)

const dateOnlyLayout = "2006-01-02"

var errInvalidDate = errkind.New(errkind.InvalidInput, "invalid_date", "dates must be RFC3339 or YYYY-MM-DD")

type pageQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

func (q pageQuery) pagination() pagination.Pagination {
	return pagination.Pagination{
		PageToken: strings.TrimSpace(q.PageToken),
		PageSize:  q.PageSize,
	}
}

func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return &parsed, nil
	}
	return nil, errInvalidDate
}
