package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// queryDays reads the optional days window. 0 lets the service pick its default.
func queryDays(c *gin.Context) (int, bool) {
	days, err := parseOptionalInt(c.Query("days"))
	if err != nil {
		AbortWithError(c, newValidationError("days", "invalid_days", "invalid days"))
		return 0, false
	}
	if days == nil {
		return 0, true
	}
	return *days, true
}
