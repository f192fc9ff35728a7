package dto

import "github.com/google/uuid"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CreateUserRequest struct {
	Email    string     `json:"email"    validate:"required,email"`
	Name     string     `json:"name"     validate:"required,min=2,max=120"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     string     `json:"role"     validate:"required,oneof=USER LEADER COORDINATOR DIRECTOR ADMIN AUDITOR DEVELOPER"`
	AreaID   *uuid.UUID `json:"areaId"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID     string  `json:"id"`
	Email  string  `json:"email"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	AreaID *string `json:"areaId"`
	Active bool    `json:"active"`
}

type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"` // seconds
	User         UserResponse `json:"user"`
}
