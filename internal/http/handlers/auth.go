package handlers

import (
	"net/http"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"
	"github.com/debdutta777/noobwriter-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// DevTokenRequest asks for a token for an arbitrary user. Only served when
// DEV_MODE is on; real tokens are minted by the main platform's auth flow.
type DevTokenRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// DevToken issues a JWT for local development and integration testing.
func (h *Handler) DevToken(c *gin.Context) {
	if !h.Cfg.DevMode {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req DevTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ctx := c.Request.Context()
	profiles := repository.NewProfileRepository(h.DB)

	profile, err := profiles.GetByID(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	if profile == nil {
		username := req.Username
		if username == "" {
			username = "devuser"
		}
		role := domain.Role(req.Role)
		if role == "" {
			role = domain.RoleReader
		}
		profile = &domain.Profile{ID: req.UserID, Username: username, Role: role}
		if err := profiles.Create(ctx, profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
			return
		}
	}

	token, err := service.GenerateJWT(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       profile.ID,
			"username": profile.Username,
			"role":     profile.Role,
		},
	})
}
