package dto

import "time"

// CrewLoginRequest payload for crew login.
type CrewLoginRequest struct {
	CrewName string `json:"crew_name"`
	Password string `json:"password"`
}

// AdminLoginRequest payload for admin login.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ActorID   string    `json:"actor_id"`
	Role      string    `json:"role"`
}
