package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/worklist-service/internal/config"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// Credentials holds the shared crew password and the admin login. Plain text
// from config is hashed once at startup and dropped.
type Credentials struct {
	crewHash      string
	adminUsername string
	adminHash     string
}

// NewCredentials hashes the configured passwords.
func NewCredentials(cfg config.AuthConfig) (*Credentials, error) {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	crewHash, err := HashPassword(cfg.CrewPassword, cost)
	if err != nil {
		return nil, err
	}
	adminHash, err := HashPassword(cfg.AdminPassword, cost)
	if err != nil {
		return nil, err
	}
	return &Credentials{crewHash: crewHash, adminUsername: cfg.AdminUsername, adminHash: adminHash}, nil
}

// CheckCrew reports whether password is the shared crew password.
func (c *Credentials) CheckCrew(password string) bool {
	return ComparePassword(c.crewHash, password) == nil
}

// CheckAdmin reports whether username and password match the admin login.
func (c *Credentials) CheckAdmin(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.adminUsername)) == 1
	passOK := ComparePassword(c.adminHash, password) == nil
	return userOK && passOK
}
