// Package httpapi exposes the NASCON services over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"nascon-platform/internal/config"
	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
	"nascon-platform/internal/telemetry"
)

type Deps struct {
	Service  *service.Service
	Tokens   *TokenIssuer
	Log      zerolog.Logger
	Metrics  *telemetry.Metrics
	Registry *prometheus.Registry
	Server   config.ServerConfig
	// Ping reports database health for /healthz.
	Ping func(context.Context) error
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		RequestID(),
		Logger(d.Log.With().Str("component", "http").Logger()),
		Metrics(d.Metrics),
		cors.New(corsConfig(d.Server.CORSOrigins)),
		Timeout(d.Server.RequestTimeout),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(telemetry.Handler(d.Registry)))
	}

	if dir := d.Server.StaticDir; dir != "" {
		r.Static("/static", dir)
		r.GET("/", func(c *gin.Context) { c.File(filepath.Join(dir, "index.html")) })
		r.GET("/login", func(c *gin.Context) { c.File(filepath.Join(dir, "login.html")) })
		r.GET("/signup", func(c *gin.Context) { c.File(filepath.Join(dir, "signup.html")) })
		r.GET("/dashboard", func(c *gin.Context) { c.File(filepath.Join(dir, "dashboard.html")) })
	}

	s := d.Service
	auth := Auth(d.Tokens)
	admin := RequireRole(model.RoleAdmin)
	organizer := RequireRole(model.RoleAdmin, model.RoleOrganizer)
	judge := RequireRole(model.RoleAdmin, model.RoleJudge)
	sponsor := RequireRole(model.RoleAdmin, model.RoleSponsor)

	api := r.Group("/api")
	{
		limited := RateLimit(NewIPRateLimiter(d.Server.AuthRatePerMinute))
		api.POST("/users/register", limited, Register(s, d.Tokens))
		api.POST("/users/login", limited, Login(s, d.Tokens))
		api.POST("/users/refresh-token", limited, RefreshToken(s, d.Tokens))
		api.POST("/users/logout", Logout())

		users := api.Group("/users", auth)
		{
			users.GET("/profile", Profile(s))
			users.PUT("/profile", UpdateProfile(s))
			users.GET("/:id/events", UserEvents(s))
			users.GET("/:id/payments", UserPayments(s))

			users.GET("", admin, ListUsers(s))
			users.GET("/stats", admin, UserStats(s))
			users.GET("/:id", admin, GetUser(s))
			users.POST("", admin, CreateUser(s))
			users.PATCH("/:id", admin, PatchUser(s))
			users.DELETE("/:id", admin, DeleteUser(s))
		}

		events := api.Group("/events")
		{
			events.GET("/categories", Categories())
			events.GET("", ListEvents(s))
			events.GET("/:id", GetEvent(s))
			events.GET("/:id/participants", auth, EventParticipants(s))
			events.GET("/:id/stats", auth, EventStats(s))

			events.POST("", auth, organizer, CreateEvent(s))
			events.PUT("/:id", auth, organizer, UpdateEvent(s))
			events.DELETE("/:id", auth, organizer, DeleteEvent(s))

			events.GET("/:id/rounds", EventRounds(s))
			events.POST("/:id/rounds", auth, organizer, ScheduleRounds(s))

			events.GET("/:id/judges", auth, EventJudges(s))
			events.POST("/:id/judges", auth, organizer, AssignJudge(s))
			events.DELETE("/:id/judges/:judge_id", auth, organizer, UnassignJudge(s))

			events.POST("/:id/register", auth, RegisterForEvent(s))
			events.DELETE("/:id/register", auth, UnregisterFromEvent(s))
		}

		venues := api.Group("/venues")
		{
			venues.GET("", ListVenues(s))
			venues.GET("/:id", GetVenue(s))
			venues.GET("/:id/schedule", VenueSchedule(s))
			venues.POST("", auth, admin, CreateVenue(s))
			venues.PUT("/:id", auth, admin, UpdateVenue(s))
			venues.DELETE("/:id", auth, admin, DeleteVenue(s))
		}

		acc := api.Group("/accommodations")
		{
			acc.GET("", ListAccommodations(s, false))
			acc.GET("/available", ListAccommodations(s, true))
			acc.GET("/stats", auth, admin, AccommodationStats(s))
			acc.GET("/user/:user_id", auth, UserBookings(s))
			acc.GET("/:id", GetAccommodation(s))
			acc.POST("", auth, admin, CreateAccommodation(s))
			acc.PUT("/:id", auth, admin, UpdateAccommodation(s))
			acc.DELETE("/:id", auth, admin, DeleteAccommodation(s))
			acc.POST("/:id/book", auth, BookAccommodation(s))
			acc.DELETE("/:id/book", auth, CancelBooking(s))
		}

		sponsors := api.Group("/sponsors")
		{
			sponsors.GET("", ListSponsors(s))
			sponsors.GET("/:id", GetSponsor(s))
			sponsors.GET("/:id/sponsorships", SponsorSponsorships(s))
			sponsors.POST("", auth, sponsor, CreateSponsor(s))
			sponsors.PUT("/:id", auth, sponsor, UpdateSponsor(s))
			sponsors.DELETE("/:id", auth, admin, DeleteSponsor(s))
		}

		ships := api.Group("/sponsorships")
		{
			ships.GET("", ListSponsorships(s))
			ships.GET("/stats", auth, admin, SponsorshipStats(s))
			ships.GET("/event/:event_id", EventSponsorships(s))
			ships.POST("", auth, sponsor, CreateSponsorship(s))
			ships.PUT("/:id/status", auth, organizer, UpdateSponsorshipStatus(s))
			ships.DELETE("/:id", auth, admin, DeleteSponsorship(s))
		}

		payments := api.Group("/payments", auth, admin)
		{
			payments.GET("", ListPayments(s))
			payments.GET("/stats", PaymentStats(s))
			payments.GET("/:id", GetPayment(s))
			payments.PUT("/:id/status", UpdatePaymentStatus(s))
		}

		judging := api.Group("/judging", auth)
		{
			judging.POST("", judge, SubmitScore(s))
			judging.GET("/overview", judge, JudgeOverview(s))
			judging.GET("/assigned-events", judge, AssignedEvents(s))
			judging.GET("/results", judge, JudgeResults(s))
			judging.GET("/event/:id/scores", judge, EventScores(s))
			judging.GET("/event/:id/leaderboard", Leaderboard(s))
			judging.GET("/event/:id/stats", JudgingStats(s))
		}

		api.GET("/admin/logs", auth, admin, ActivityLog(s))
	}

	return r
}
