package handlers

import (
	"context"
	"errors"
	"net/http"

	"f2f-dating-app/internal/config"
	"f2f-dating-app/internal/database"
	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Accounts stores registered profiles.
type Accounts interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

type AuthHandler struct {
	accounts Accounts
	cfg      *config.Config
	log      *logrus.Entry
}

type RegisterRequest struct {
	Name      string        `json:"name" binding:"required,max=100"`
	Email     string        `json:"email" binding:"required,email"`
	Password  string        `json:"password" binding:"required,min=8"`
	Age       int           `json:"age" binding:"required,min=18,max=99"`
	Gender    models.Gender `json:"gender" binding:"required,oneof=male female"`
	Interests []string      `json:"interests" binding:"required,min=2"`
	Bio       string        `json:"bio" binding:"max=500"`
	City      string        `json:"city"`
	Latitude  float64       `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64       `json:"longitude" binding:"min=-180,max=180"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func NewAuthHandler(accounts Accounts, cfg *config.Config, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		cfg:      cfg,
		log:      log.WithField("component", "auth"),
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.accounts.FindByEmail(ctx, req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists with this email"})
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		respondError(c, err)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Age:          req.Age,
		Gender:       req.Gender,
		Bio:          req.Bio,
		Interests:    models.NewTagSet(req.Interests...),
		City:         req.City,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}
	if err := h.accounts.Create(ctx, &user); err != nil {
		h.log.WithError(err).Error("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.accounts.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, err)
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(user.ID, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: user})
}
