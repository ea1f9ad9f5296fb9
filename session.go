package auth

import (
	"time"

	"github.com/google/uuid"
)

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetRole() string
	GetIssuer() string
	GetAudience() []string
	GetIssuedAt() *time.Time
}

var _ Session = &SessionObject{}

type SessionObject struct {
	UserID   string     `json:"user_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	Role     string     `json:"role,omitempty"`
	Issuer   string     `json:"issuer,omitempty"`
	Audience []string   `json:"audience,omitempty"`
	IssuedAt *time.Time `json:"issued_at,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetRole() string {
	return s.Role
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func sessionFromClaims(claims *JWTClaims) *SessionObject {
	session := &SessionObject{
		UserID:   claims.UID,
		Email:    claims.Email,
		Role:     claims.UserRole,
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
	}

	if claims.IssuedAt != nil {
		at := claims.IssuedAt.Time
		session.IssuedAt = &at
	}

	return session
}

// SessionFromToken validates a raw session token and maps it to a Session.
func SessionFromToken(tokens TokenService, raw string) (Session, error) {
	claims, err := tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return sessionFromClaims(claims), nil
}
