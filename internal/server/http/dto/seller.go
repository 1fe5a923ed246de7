package dto

import "time"

// AddSellerRequest registers a seller on the roster.
type AddSellerRequest struct {
	TelegramID string `json:"telegram_id" binding:"required"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	Nickname   string `json:"nickname"`
}

// SetSellerActiveRequest toggles a seller's roster membership.
type SetSellerActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SellerResponse is the external representation of a roster entry.
type SellerResponse struct {
	TelegramID   string     `json:"telegram_id"`
	Username     string     `json:"username,omitempty"`
	FirstName    string     `json:"first_name,omitempty"`
	Nickname     string     `json:"nickname,omitempty"`
	Active       bool       `json:"active"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}
