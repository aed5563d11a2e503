package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomjwalt/subterrain1/services"

	"github.com/gin-gonic/gin"
)

// abortWithServiceError converts a service error into the JSON error body the
// external interface promises. Unknown errors become a generic 500.
func abortWithServiceError(c *gin.Context, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// coerceAmount accepts the JSON shapes clients actually send for "amount" and
// rejects anything that is not a strictly positive integer: floats with a
// fractional part, non-numeric strings, booleans, null.
func coerceAmount(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n <= 0 || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil || parsed <= 0 {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
