package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

func Categories() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.Categories())
	}
}

// GET /api/events?category=&status=&organizer_id=
func ListEvents(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListEvents(c.Request.Context(), model.EventFilter{
			Category:    c.Query("category"),
			Status:      c.Query("status"),
			OrganizerID: queryInt(c, "organizer_id"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetEvent(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		e, err := s.GetEvent(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func EventParticipants(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		out, err := s.EventParticipants(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func EventStats(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		st, err := s.EventStats(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

type eventRequest struct {
	Name            string  `json:"event_name" validate:"required,max=200"`
	Description     string  `json:"description" validate:"max=5000"`
	Category        string  `json:"category" validate:"required,category"`
	Date            string  `json:"event_date" validate:"required,date"`
	VenueID         int     `json:"venue_id" validate:"required,gt=0"`
	MaxParticipants int     `json:"max_participants" validate:"required,gt=0"`
	RegistrationFee float64 `json:"registration_fee" validate:"gte=0"`
	Status          string  `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

func (r eventRequest) input() (model.EventInput, error) {
	d, err := parseDate(r.Date)
	if err != nil {
		return model.EventInput{}, err
	}
	return model.EventInput{
		Name:            r.Name,
		Description:     r.Description,
		Category:        r.Category,
		Date:            d,
		VenueID:         r.VenueID,
		MaxParticipants: r.MaxParticipants,
		RegistrationFee: r.RegistrationFee,
		Status:          r.Status,
	}, nil
}

func CreateEvent(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req eventRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		in, err := req.input()
		if err != nil {
			respondError(c, err)
			return
		}
		e, err := s.CreateEvent(c.Request.Context(), actor(c), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

func UpdateEvent(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req eventRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		in, err := req.input()
		if err != nil {
			respondError(c, err)
			return
		}
		e, err := s.UpdateEvent(c.Request.Context(), actor(c), id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func DeleteEvent(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.DeleteEvent(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
	}
}

/* ===================== ROUNDS ===================== */

func EventRounds(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		out, err := s.EventRounds(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type roundsRequest struct {
	Prelims    string `json:"prelims_date" validate:"required,date"`
	Semifinals string `json:"semifinals_date" validate:"required,date"`
	Finals     string `json:"finals_date" validate:"required,date"`
}

// POST /api/events/:id/rounds
func ScheduleRounds(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req roundsRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		var sched model.RoundSchedule
		for _, f := range []struct {
			raw string
			dst *time.Time
		}{
			{req.Prelims, &sched.Prelims},
			{req.Semifinals, &sched.Semifinals},
			{req.Finals, &sched.Finals},
		} {
			d, err := parseDate(f.raw)
			if err != nil {
				respondError(c, err)
				return
			}
			*f.dst = d
		}
		rounds, err := s.ScheduleRounds(c.Request.Context(), actor(c), id, sched)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Event rounds scheduled successfully",
			"rounds":  rounds,
		})
	}
}

/* ===================== REGISTRATION ===================== */

type onBehalfRequest struct {
	UserID *int `json:"user_id" validate:"omitempty,gt=0"`
}

// POST /api/events/:id/register
func RegisterForEvent(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req onBehalfRequest
		if err := bindOptional(c, &req); err != nil {
			respondError(c, err)
			return
		}
		userID, ok := selfOrAdmin(c, req.UserID)
		if !ok {
			return
		}
		pid, err := s.Register(c.Request.Context(), userID, eventID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":        "Successfully registered for event",
			"participant_id": pid,
		})
	}
}

func UnregisterFromEvent(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req onBehalfRequest
		if err := bindOptional(c, &req); err != nil {
			respondError(c, err)
			return
		}
		userID, ok := selfOrAdmin(c, req.UserID)
		if !ok {
			return
		}
		if err := s.Unregister(c.Request.Context(), userID, eventID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Registration cancelled"})
	}
}

/* ===================== JUDGES ===================== */

type assignJudgeRequest struct {
	JudgeID int `json:"judge_id" validate:"required,gt=0"`
}

func AssignJudge(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req assignJudgeRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		if err := s.AssignJudge(c.Request.Context(), actor(c), eventID, req.JudgeID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Judge assigned", "event_id": eventID, "judge_id": req.JudgeID})
	}
}

func UnassignJudge(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		judgeID, ok := paramID(c, "judge_id")
		if !ok {
			return
		}
		if err := s.UnassignJudge(c.Request.Context(), actor(c), eventID, judgeID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Judge unassigned"})
	}
}

func EventJudges(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := paramID(c, "id")
		if !ok {
			return
		}
		out, err := s.EventJudges(c.Request.Context(), eventID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
