package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"f2f-dating-app/internal/config"
	"f2f-dating-app/internal/middleware"
	"f2f-dating-app/internal/services"
	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
)

// PhotoStorage keeps profile photos behind public URLs.
type PhotoStorage interface {
	UploadFile(ctx context.Context, file io.Reader, size int64, key, contentType string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}

// PushTokens records the device token used for push notifications.
type PushTokens interface {
	SetPushToken(ctx context.Context, userID, token string) error
}

type UserHandler struct {
	sessions Sessions
	storage  PhotoStorage
	tokens   PushTokens
	cfg      *config.Config
}

type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

type PushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func NewUserHandler(sessions Sessions, storage PhotoStorage, tokens PushTokens, cfg *config.Config) *UserHandler {
	return &UserHandler{
		sessions: sessions,
		storage:  storage,
		tokens:   tokens,
		cfg:      cfg,
	}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		user, err := coord.Viewer(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var patch session.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		user, err := coord.UpdateProfile(c.Request.Context(), patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
	})
}

// UploadPhoto stores the image and makes it the profile photo. The previous
// photo is deleted best-effort.
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo storage is not configured"})
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo provided"})
		return
	}
	defer file.Close()

	if err := h.validateImageFile(header); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := services.PhotoKey(middleware.UserID(c), header.Filename)
	url, err := h.storage.UploadFile(c.Request.Context(), file, header.Size, key, header.Header.Get("Content-Type"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo"})
		return
	}

	withSession(c, h.sessions, func(coord *session.Coordinator) {
		ctx := c.Request.Context()
		previous, err := coord.Viewer(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		user, err := coord.UpdateProfile(ctx, session.ProfilePatch{PhotoURL: &url})
		if err != nil {
			respondError(c, err)
			return
		}
		if previous.PhotoURL != "" && previous.PhotoURL != url {
			if err := h.storage.DeleteFile(ctx, previous.PhotoURL); err != nil {
				_ = c.Error(err)
			}
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Photo uploaded successfully", "url": url, "user": user})
	})
}

func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if !bindJSON(c, &req) {
		return
	}
	withSession(c, h.sessions, func(coord *session.Coordinator) {
		if err := coord.UpdateLocation(c.Request.Context(), *req.Latitude, *req.Longitude); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"latitude": *req.Latitude, "longitude": *req.Longitude})
	})
}

func (h *UserHandler) SetPushToken(c *gin.Context) {
	var req PushTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.tokens.SetPushToken(c.Request.Context(), middleware.UserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) validateImageFile(header *multipart.FileHeader) error {
	if header.Size > h.cfg.MaxFileSize {
		return fmt.Errorf("file too large, maximum size is %d bytes", h.cfg.MaxFileSize)
	}

	contentType := header.Header.Get("Content-Type")
	for _, allowedType := range h.cfg.AllowedImageTypes {
		if contentType == allowedType {
			return nil
		}
	}
	return fmt.Errorf("invalid file type, allowed types are: %s", strings.Join(h.cfg.AllowedImageTypes, ", "))
}
