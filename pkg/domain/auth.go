package domain

// LoginRequest is the payload for authenticating with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the payload for creating a new account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by a successful login or registration.
type AuthResponse struct {
	User       User   `json:"user"`
	Credential string `json:"credential"`
}
