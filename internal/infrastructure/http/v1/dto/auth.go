package dto

import (
	"pharmaledger/internal/domain/auth"
)

// SaveStaffRequest creates or updates a staff member.
type SaveStaffRequest struct {
	Name     string   `json:"name" binding:"required,max=200"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Roles    []string `json:"roles" binding:"required,min=1,dive,oneof=admin manager pharmacist cashier"`
	IsActive *bool    `json:"isActive"`
}

func (r SaveStaffRequest) ToDomain(userID string) auth.StaffInput {
	return auth.StaffInput{
		ID:       userID,
		Name:     r.Name,
		Email:    r.Email,
		Roles:    r.Roles,
		IsActive: r.IsActive,
	}
}

// SetPINRequest sets a staff member's override PIN.
type SetPINRequest struct {
	PIN string `json:"pin" binding:"required,numeric,min=4,max=12"`
}

type StaffListQuery struct {
	Role     string `form:"role" binding:"omitempty,oneof=admin manager pharmacist cashier"`
	IsActive *bool  `form:"isActive"`
}

func (q StaffListQuery) ToFilter() auth.StaffFilter {
	return auth.StaffFilter{Role: q.Role, IsActive: q.IsActive}
}

// TokenResponse is an issued access token.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
	TokenType   string `json:"tokenType"`
}
