package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

func Profile(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.GetUser(c.Request.Context(), actor(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

type profileRequest struct {
	Name            string `json:"name" validate:"omitempty,max=100"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

func UpdateProfile(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		u, err := s.UpdateProfile(c.Request.Context(), actor(c).UserID, model.ProfileUpdate{
			Name:            req.Name,
			Email:           req.Email,
			CurrentPassword: req.CurrentPassword,
			NewPassword:     req.NewPassword,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

/* ===================== ADMIN ===================== */

func ListUsers(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.ListUsers(c.Request.Context(), model.UserFilter{
			Role:   model.Role(c.Query("role")),
			Status: c.Query("status"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func UserStats(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.UserStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func GetUser(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		u, err := s.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,role"`
}

func CreateUser(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		u, err := s.CreateUser(c.Request.Context(), model.NewUser{
			Name: req.Name, Email: req.Email, Password: req.Password, Role: model.Role(req.Role),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

type patchUserRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Email  *string `json:"email" validate:"omitempty,email,max=255"`
	Role   *string `json:"role" validate:"omitempty,role"`
	Status *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func PatchUser(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req patchUserRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		patch := model.UserPatch{Name: req.Name, Email: req.Email, Status: req.Status}
		if req.Role != nil {
			r := model.Role(*req.Role)
			patch.Role = &r
		}
		u, err := s.UpdateUser(c.Request.Context(), actor(c), id, patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func DeleteUser(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id == actor(c).UserID {
			respondError(c, apperr.New(apperr.InvalidInput, "Cannot delete your own account"))
			return
		}
		if err := s.DeleteUser(c.Request.Context(), actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}

/* ===================== SELF OR ADMIN ===================== */

func UserEvents(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id, ok = selfOrAdmin(c, &id); !ok {
			return
		}
		out, err := s.UserEvents(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func UserPayments(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id, ok = selfOrAdmin(c, &id); !ok {
			return
		}
		out, err := s.ListPayments(c.Request.Context(), model.PaymentFilter{UserID: id})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
