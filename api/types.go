package api

import "time"

// User is the profile snapshot returned by the server at login or profile
// fetch time. It is a cache of server state, never a source of truth.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// TokenPair is the credential pair minted by the login and refresh endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Registration is the payload for POST /auth/register. ConfirmPassword is
// validated client-side before submission but still sent, as the server
// re-validates it.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
	Role            string `json:"role,omitempty"`
}
