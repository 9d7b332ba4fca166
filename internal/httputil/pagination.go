package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page bounds a listing request.
type Page struct {
	Offset       int
	DefaultLimit int
	MaxLimit     int
}

// Parse reads offset and limit from the query string, falling back to the page defaults.
func (p Page) Parse(c *gin.Context) (offset, limit int, err error) {
	offset, err = queryInt(c, "offset", p.Offset)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limit, err = queryInt(c, "limit", p.DefaultLimit)
	if err != nil || limit < 1 || limit > p.MaxLimit {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", p.MaxLimit)
	}

	return offset, limit, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
