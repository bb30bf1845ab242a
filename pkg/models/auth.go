package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	APIKey string    `json:"api_key"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

type AuthRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
