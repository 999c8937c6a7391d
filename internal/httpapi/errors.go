package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nascon-platform/internal/apperr"
)

const internalMessage = "Internal server error"

// respondError writes err as {"error", "code"}. Unknown errors are logged
// with their cause and reported with a generic message.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("route", c.FullPath()).
			Msg("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": internalMessage, "code": string(apperr.Unknown)})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err, internalMessage), "code": string(kind)})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, apperr.New(apperr.InvalidInput, msg))
}
