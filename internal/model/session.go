package model

import "time"

// Session is one refresh-token grant for one (user, device) pair.
type Session struct {
	ID           string
	UserID       string
	DeviceID     string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// View strips the refresh token before a session leaves the server.
func (s Session) View() SessionView {
	return SessionView{
		SessionID: s.ID,
		DeviceID:  s.DeviceID,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

type SessionView struct {
	SessionID string    `json:"sessionId"`
	DeviceID  string    `json:"deviceId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewSession struct {
	UserID       string
	DeviceID     string
	RefreshToken string
	ExpiresAt    time.Time
}

// PreAuthSession holds a pending email verification issued at signup.
type PreAuthSession struct {
	ID        string
	Email     string
	DeviceID  string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is what a successful sign-in, verification or explicit refresh
// hands back; handlers put it into response headers.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	DeviceID     string
}
