package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

// GET /api/payments?status=&type=&user_id=&event_id=
func ListPayments(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListPayments(c.Request.Context(), model.PaymentFilter{
			UserID:      queryInt(c, "user_id"),
			EventID:     queryInt(c, "event_id"),
			Status:      c.Query("status"),
			PaymentType: c.Query("type"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func PaymentStats(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.PaymentStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetPayment(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		p, err := s.GetPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func UpdatePaymentStatus(s *service.Service) gin.HandlerFunc {
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
		p, err := s.UpdatePaymentStatus(c.Request.Context(), actor(c), id, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
