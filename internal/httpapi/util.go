package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// paramID reads a positive integer path parameter, answering 400 itself
// when it is malformed.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter; absent or malformed
// values yield 0.
func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
