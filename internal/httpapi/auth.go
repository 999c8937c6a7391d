package httpapi

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
)

const cookieName = "nascon_token"

var (
	errNoToken        = apperr.New(apperr.Unauthorized, "Access token required")
	errTokenExpired   = apperr.New(apperr.Unauthorized, "Token expired")
	errBadToken       = apperr.New(apperr.Forbidden, "Invalid token")
	errNoRefreshToken = apperr.New(apperr.Unauthorized, "Refresh token required")
	errBadRefresh     = apperr.New(apperr.Unauthorized, "Invalid refresh token")
)

// Token uses. A refresh token never authorizes an API call and an access
// token never renews a session.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

type Claims struct {
	UserID int        `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	Use    string     `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, refreshTTL: 30 * 24 * time.Hour, now: time.Now}
}

// WithRefreshTTL sets the lifetime of refresh tokens.
func (t *TokenIssuer) WithRefreshTTL(d time.Duration) *TokenIssuer {
	if d > 0 {
		t.refreshTTL = d
	}
	return t
}

// Issue signs an access token for u.
func (t *TokenIssuer) Issue(u model.User) (string, error) {
	return t.sign(u, useAccess, t.ttl)
}

// IssueRefresh signs a long-lived token that can only be exchanged for a
// new access token.
func (t *TokenIssuer) IssueRefresh(u model.User) (string, error) {
	return t.sign(u, useRefresh, t.refreshTTL)
}

func (t *TokenIssuer) sign(u model.User, use string, ttl time.Duration) (string, error) {
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "nascon-platform",
		},
	})
	return tok.SignedString(t.secret)
}

// Parse verifies an access token. Expired tokens yield errTokenExpired,
// anything else that fails verification errBadToken.
func (t *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	cl, err := t.verify(tokenStr)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errTokenExpired.With(err)
	}
	if err != nil {
		return nil, errBadToken.With(err)
	}
	if cl.Use != useAccess {
		return nil, errBadToken
	}
	return cl, nil
}

// ParseRefresh verifies a refresh token. Every failure, expiry included,
// is errBadRefresh.
func (t *TokenIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	cl, err := t.verify(tokenStr)
	if err != nil {
		return nil, errBadRefresh.With(err)
	}
	if cl.Use != useRefresh {
		return nil, errBadRefresh
	}
	return cl, nil
}

func (t *TokenIssuer) verify(tokenStr string) (*Claims, error) {
	cl := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, cl, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return cl, nil
}

// selfRoles are the roles open to public sign-up; admins are created by
// other admins or the seed command.
var selfRoles = []model.Role{model.RoleParticipant, model.RoleOrganizer, model.RoleJudge, model.RoleSponsor}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,role"`
}

type authResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	User         model.User `json:"user"`
}

func Register(s *service.Service, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		role := model.RoleParticipant
		if req.Role != "" {
			role = model.Role(req.Role)
		}
		if !slices.Contains(selfRoles, role) {
			respondError(c, apperr.New(apperr.Forbidden, "Role cannot be self-assigned"))
			return
		}

		u, err := s.CreateUser(c.Request.Context(), model.NewUser{
			Name: req.Name, Email: req.Email, Password: req.Password, Role: role,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		issueSession(c, tokens, u, http.StatusCreated)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(s *service.Service, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			respondError(c, err)
			return
		}
		u, err := s.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		issueSession(c, tokens, u, http.StatusOK)
	}
}

func issueSession(c *gin.Context, tokens *TokenIssuer, u model.User, status int) {
	tok, err := tokens.Issue(u)
	if err != nil {
		respondError(c, err)
		return
	}
	refresh, err := tokens.IssueRefresh(u)
	if err != nil {
		respondError(c, err)
		return
	}
	setSessionCookie(c, tokens, tok)
	c.JSON(status, authResponse{Token: tok, RefreshToken: refresh, User: u})
}

func setSessionCookie(c *gin.Context, tokens *TokenIssuer, tok string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, tok, int(tokens.ttl.Seconds()), "/", "", c.Request.TLS != nil, true)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a refresh token for a new access token. The account
// is reloaded so a role change or deactivation takes effect.
func RefreshToken(s *service.Service, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := bindOptional(c, &req); err != nil {
			respondError(c, err)
			return
		}
		if req.RefreshToken == "" {
			respondError(c, errNoRefreshToken)
			return
		}
		cl, err := tokens.ParseRefresh(req.RefreshToken)
		if err != nil {
			respondError(c, err)
			return
		}
		u, err := s.Reauthenticate(c.Request.Context(), cl.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		tok, err := tokens.Issue(u)
		if err != nil {
			respondError(c, err)
			return
		}
		setSessionCookie(c, tokens, tok)
		c.JSON(http.StatusOK, gin.H{"token": tok})
	}
}

func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(cookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
