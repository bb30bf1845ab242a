package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procurechat/dealengine/internal/services"
	"github.com/procurechat/dealengine/pkg/models"
)

type AuthHandler struct {
	logger      *logrus.Logger
	authService *services.AuthService
}

func NewAuthHandler(logger *logrus.Logger, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		authService: authService,
	}
}

// Login exchanges a configured API key for a short-lived JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request format",
				"details": err.Error(),
			},
		})
		return
	}

	role, err := h.authService.ValidateAPIKey(req.APIKey)
	if err != nil {
		h.logger.WithError(err).Warn("Login with invalid API key")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "INVALID_API_KEY",
				"message": "Invalid API key",
			},
		})
		return
	}

	userID := uuid.New()
	token, err := h.authService.GenerateToken(userID, req.APIKey, role)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "TOKEN_GENERATION_FAILED",
				"message": "Failed to generate token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": models.AuthResponse{
			Token:     token,
			ExpiresIn: int64(h.authService.TokenTTL().Seconds()),
		},
	})
}

// Logout revokes the caller's session.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "No authenticated session",
			},
		})
		return
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "Invalid session state",
			},
		})
		return
	}

	if err := h.authService.RevokeToken(id); err != nil {
		h.logger.WithError(err).Error("Failed to revoke token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "TOKEN_REVOCATION_FAILED",
				"message": "Failed to revoke session",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session revoked"})
}
