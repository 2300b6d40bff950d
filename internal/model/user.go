package model

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

type AccountType string

const (
	AccountTypeInvestor  AccountType = "investor"
	AccountTypeDeveloper AccountType = "developer"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeInvestor || t == AccountTypeDeveloper
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "Active"
	AccountStatusInactive  AccountStatus = "Inactive"
	AccountStatusSuspended AccountStatus = "Suspended"
	AccountStatusWaitlist  AccountStatus = "Waitlist"
	AccountStatusClosed    AccountStatus = "Closed"
)

type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Role         Role          `json:"role"`
	AccountType  AccountType   `json:"account_type"`
	Status       AccountStatus `json:"status"`
	IsConfirmed  bool          `json:"is_confirmed"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Identity is the authenticated caller as established by the auth gate. It is
// passed by value into service calls; nothing reads it from global state.
type Identity struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	AccountType AccountType `json:"accountType"`
}

func (u User) Identity() Identity {
	return Identity{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		AccountType: u.AccountType,
	}
}

// UserSummary is the non-sensitive view of a user returned to clients.
type UserSummary struct {
	UserID      string      `json:"userId"`
	Email       string      `json:"email"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Role        Role        `json:"role"`
	AccountType AccountType `json:"accountType"`
	DeviceID    string      `json:"deviceId,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		UserID:      u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		AccountType: u.AccountType,
	}
}
