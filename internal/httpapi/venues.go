package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

func ListVenues(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListVenues(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetVenue(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		v, err := s.GetVenue(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func VenueSchedule(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		out, err := s.VenueSchedule(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type venueRequest struct {
	Name       string `json:"venue_name" validate:"required,max=200"`
	Capacity   int    `json:"capacity" validate:"required,gt=0"`
	Facilities string `json:"facilities" validate:"max=2000"`
	Location   string `json:"location" validate:"max=500"`
}

func (r venueRequest) input() model.VenueInput {
	return model.VenueInput{Name: r.Name, Capacity: r.Capacity, Facilities: r.Facilities, Location: r.Location}
}

func CreateVenue(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req venueRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		v, err := s.CreateVenue(c.Request.Context(), actor(c), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

func UpdateVenue(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req venueRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		v, err := s.UpdateVenue(c.Request.Context(), actor(c), id, req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func DeleteVenue(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.DeleteVenue(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Venue deleted successfully"})
	}
}
