package dto

import "time"

type IssueTokenRequest struct {
	ExpiryDays int    `json:"expiry_days"`
	Email      string `json:"email"`
}

type RegistrationTokenResponse struct {
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expires_at"`
	ExpiresIn     string    `json:"expires_in"`
	ActivationURL string    `json:"activation_url"`
}

type TokenVerification struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email,omitempty"`
}
