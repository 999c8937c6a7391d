package httpapi

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/model"
	"nascon-platform/internal/telemetry"
)

const (
	headerRequestID = "X-Request-ID"
	ctxActor        = "actor"
	ctxRequestID    = "request_id"
)

// RequestID propagates an incoming X-Request-ID or mints a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// Logger attaches a request-scoped logger to the request context and writes
// one line per request.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With().Str("request_id", c.GetString(ctxRequestID)).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		ev := reqLog.Info()
		if status >= 500 {
			ev = reqLog.Error()
		}
		if a, ok := actorFrom(c); ok {
			ev = ev.Int("user_id", a.UserID)
		}
		ev.Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}

func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Timeout bounds the request context; services see the deadline through ctx.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Auth requires a valid token from the Authorization header or the session
// cookie and stores the caller as the request actor.
func Auth(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(cookieName)
		}
		if tokenStr == "" {
			respondError(c, errNoToken)
			return
		}
		cl, err := tokens.Parse(tokenStr)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(ctxActor, model.Actor{UserID: cl.UserID, Role: cl.Role})
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// RequireRole lets through callers holding one of roles. Must run after Auth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actorFrom(c)
		if !ok {
			respondError(c, errNoToken)
			return
		}
		if !slices.Contains(roles, a.Role) {
			respondError(c, apperr.New(apperr.Forbidden, "Insufficient permissions"))
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return model.Actor{}, false
	}
	a, ok := v.(model.Actor)
	return a, ok
}

// actor returns the authenticated caller. Only valid behind Auth.
func actor(c *gin.Context) model.Actor {
	a, _ := actorFrom(c)
	return a
}

// selfOrAdmin resolves the user a request acts for: the caller by default,
// another user only for admins.
func selfOrAdmin(c *gin.Context, userID *int) (int, bool) {
	a := actor(c)
	if userID == nil || *userID == a.UserID {
		return a.UserID, true
	}
	if !a.IsAdmin() {
		respondError(c, apperr.New(apperr.Forbidden, "Cannot act on behalf of another user"))
		return 0, false
	}
	return *userID, true
}
