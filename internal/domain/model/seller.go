package model

import "time"

// Seller is a fulfillment operator identified by messenger chat id.
type Seller struct {
	ID           string
	Username     string
	FirstName    string
	Nickname     string
	Active       bool
	LastActiveAt *time.Time
}

// DisplayName returns the best available human-readable name.
func (s *Seller) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	if s.FirstName != "" {
		if s.Username != "" {
			return s.FirstName + " (@" + s.Username + ")"
		}
		return s.FirstName
	}
	if s.Username != "" {
		return "@" + s.Username
	}
	return "seller " + s.ID
}
