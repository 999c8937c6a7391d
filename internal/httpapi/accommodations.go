package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

func ListAccommodations(s *service.Service, onlyAvailable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListAccommodations(c.Request.Context(), onlyAvailable)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func AccommodationStats(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.AccommodationStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func GetAccommodation(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		a, err := s.GetAccommodation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// GET /api/accommodations/user/:user_id
func UserBookings(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "user_id")
		if !ok {
			return
		}
		if id, ok = selfOrAdmin(c, &id); !ok {
			return
		}
		out, err := s.UserBookings(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type accommodationRequest struct {
	RoomType      string  `json:"room_type" validate:"required,max=100"`
	Capacity      int     `json:"capacity" validate:"required,gt=0"`
	PricePerNight float64 `json:"price_per_night" validate:"gte=0"`
}

func (r accommodationRequest) input() model.AccommodationInput {
	return model.AccommodationInput{RoomType: r.RoomType, Capacity: r.Capacity, PricePerNight: r.PricePerNight}
}

func CreateAccommodation(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req accommodationRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		a, err := s.CreateAccommodation(c.Request.Context(), actor(c), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func UpdateAccommodation(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req accommodationRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		a, err := s.UpdateAccommodation(c.Request.Context(), actor(c), id, req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

func DeleteAccommodation(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.DeleteAccommodation(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Accommodation deleted successfully"})
	}
}

// POST /api/accommodations/:id/book {user_id}
func BookAccommodation(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		accID, ok := paramID(c, "id")
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
		b, err := s.Book(c.Request.Context(), userID, accID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Accommodation booked successfully", "booking": b})
	}
}

// DELETE /api/accommodations/:id/book {user_id}
func CancelBooking(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		accID, ok := paramID(c, "id")
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
		if err := s.Cancel(c.Request.Context(), userID, accID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully"})
	}
}
