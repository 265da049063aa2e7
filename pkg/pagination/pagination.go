package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds validated pagination parameters.
type Params struct {
	Page  int
	Limit int
}

// Parse extracts and clamps page/limit from query parameters.
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Envelope wraps a page of results with its paging metadata for list
// responses.
func Envelope(items interface{}, total int64, p Params) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}
}
