package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

func ListSponsors(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListSponsors(c.Request.Context(), c.Query("level"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetSponsor(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		sp, err := s.GetSponsor(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sp)
	}
}

func SponsorSponsorships(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if _, err := s.GetSponsor(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		out, err := s.ListSponsorships(c.Request.Context(), id, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type sponsorRequest struct {
	CompanyName      string `json:"company_name" validate:"required,max=200"`
	ContactPerson    string `json:"contact_person" validate:"max=200"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Phone            string `json:"phone" validate:"max=50"`
	SponsorshipLevel string `json:"sponsorship_level" validate:"omitempty,oneof=Title Gold Silver"`
	UserID           *int   `json:"user_id" validate:"omitempty,gt=0"`
}

func (r sponsorRequest) input() model.SponsorInput {
	return model.SponsorInput{
		CompanyName:      r.CompanyName,
		ContactPerson:    r.ContactPerson,
		Email:            r.Email,
		Phone:            r.Phone,
		SponsorshipLevel: r.SponsorshipLevel,
		UserID:           r.UserID,
	}
}

func CreateSponsor(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sponsorRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		sp, err := s.CreateSponsor(c.Request.Context(), actor(c), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sp)
	}
}

func UpdateSponsor(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req sponsorRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		sp, err := s.UpdateSponsor(c.Request.Context(), actor(c), id, req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sp)
	}
}

func DeleteSponsor(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.DeleteSponsor(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Sponsor deleted successfully"})
	}
}

/* ===================== SPONSORSHIPS ===================== */

func ListSponsorships(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListSponsorships(c.Request.Context(), queryInt(c, "sponsor_id"), queryInt(c, "event_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/sponsorships/event/:event_id
func EventSponsorships(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "event_id")
		if !ok {
			return
		}
		if _, err := s.GetEvent(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		out, err := s.ListSponsorships(c.Request.Context(), 0, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func SponsorshipStats(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.SponsorshipStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type sponsorshipRequest struct {
	SponsorID int     `json:"sponsor_id" validate:"required,gt=0"`
	EventID   int     `json:"event_id" validate:"required,gt=0"`
	Package   string  `json:"package" validate:"required,oneof=Title Gold Silver"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

func CreateSponsorship(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sponsorshipRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ss, err := s.CreateSponsorship(c.Request.Context(), actor(c), model.SponsorshipInput{
			SponsorID: req.SponsorID,
			EventID:   req.EventID,
			Package:   req.Package,
			Amount:    req.Amount,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ss)
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateSponsorshipStatus(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req statusRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		ss, err := s.UpdateSponsorshipStatus(c.Request.Context(), actor(c), id, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ss)
	}
}

func DeleteSponsorship(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.DeleteSponsorship(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Sponsorship deleted successfully"})
	}
}
