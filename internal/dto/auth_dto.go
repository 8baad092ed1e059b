package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ShaykhRegistrationRequest is used both by admins registering a shaykh
// directly and by shaykhs redeeming a registration token.
type ShaykhRegistrationRequest struct {
	Email                  string `json:"email"`
	Password               string `json:"password"`
	Username               string `json:"username"`
	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	PhoneNumber            string `json:"phone_number"`
	Address                string `json:"address"`
	YearsOfExperience      int    `json:"years_of_experience"`
	EducationalInstitution string `json:"educational_institution"`
	About                  string `json:"about"`
}

// UpdateSettingsRequest changes only the preferences that are present.
type UpdateSettingsRequest struct {
	Language           *string `json:"language"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
	DarkMode           *bool   `json:"dark_mode"`
}

type UpdateProfileRequest struct {
	Username               *string `json:"username"`
	FirstName              *string `json:"first_name"`
	LastName               *string `json:"last_name"`
	PhoneNumber            *string `json:"phone_number"`
	Address                *string `json:"address"`
	YearsOfExperience      *int    `json:"years_of_experience"`
	EducationalInstitution *string `json:"educational_institution"`
	About                  *string `json:"about"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

// ShaykhSummary is the public view of a shaykh. Contact details are left
// out.
type ShaykhSummary struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	YearsOfExperience      int       `json:"years_of_experience,omitempty"`
	EducationalInstitution string    `json:"educational_institution,omitempty"`
	About                  string    `json:"about,omitempty"`
}
