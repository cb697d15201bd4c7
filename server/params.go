package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// testDateLayouts are tried in order when parsing the test_date parameter.
var testDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTestDate(raw string) (time.Time, bool) {
	for _, layout := range testDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func paging(c echo.Context) (limit, offset int) {
	limit = defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
