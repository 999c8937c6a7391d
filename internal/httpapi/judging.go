package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

type scoreRequest struct {
	EventID       int      `json:"event_id" validate:"required,gt=0"`
	ParticipantID int      `json:"participant_id" validate:"required,gt=0"`
	Score         *float64 `json:"score" validate:"required,gte=0,lte=100"`
	Comments      string   `json:"comments" validate:"max=2000"`
	// JudgeID lets an admin score on behalf of an assigned judge.
	JudgeID *int `json:"judge_id" validate:"omitempty,gt=0"`
}

// POST /api/judging
func SubmitScore(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scoreRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		judgeID, ok := selfOrAdmin(c, req.JudgeID)
		if !ok {
			return
		}
		sc, err := s.SubmitScore(c.Request.Context(), judgeID, model.ScoreInput{
			EventID:       req.EventID,
			ParticipantID: req.ParticipantID,
			Score:         *req.Score,
			Comments:      req.Comments,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sc)
	}
}

func JudgeOverview(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ov, err := s.JudgeOverview(c.Request.Context(), actor(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ov)
	}
}

func AssignedEvents(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.AssignedEvents(c.Request.Context(), actor(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func JudgeResults(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.JudgeResults(c.Request.Context(), actor(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/judging/event/:id/scores. Judges see their own rows; admins see
// every row, or one judge's with ?judge_id=.
func EventScores(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		a := actor(c)
		judgeID := a.UserID
		if a.IsAdmin() {
			judgeID = queryInt(c, "judge_id")
		}
		out, err := s.EventScores(c.Request.Context(), eventID, judgeID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func Leaderboard(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		out, err := s.Leaderboard(c.Request.Context(), eventID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func JudgingStats(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		st, err := s.EventJudgingStats(c.Request.Context(), eventID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

/* ===================== ADMIN ===================== */

// GET /api/admin/logs?actor_id=&limit=
func ActivityLog(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ActivityLog(c.Request.Context(), queryInt(c, "actor_id"), queryInt(c, "limit"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
