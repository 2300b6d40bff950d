package model

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}

type LogoutRequest struct {
	SessionID    string `json:"sessionId"`
	LogoutAll    bool   `json:"logoutAll"`
	DeviceID     string `json:"-"`
	RefreshToken string `json:"-"`
}

type SignupRequest struct {
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	AccountType AccountType `json:"accountType"`
}

type VerifySignupRequest struct {
	PreAuthSessionID string `json:"preAuthSessionId"`
	Code             string `json:"code"`
	DeviceID         string `json:"deviceId"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

type SignupResponse struct {
	PreAuthSessionID string `json:"preAuthSessionId"`
	Email            string `json:"email"`
	DeviceID         string `json:"deviceId"`
}

type LogoutMode string

const (
	LogoutAll     LogoutMode = "all"
	LogoutSession LogoutMode = "session"
	LogoutDevice  LogoutMode = "device"
	LogoutToken   LogoutMode = "token"
)

type LogoutResult struct {
	Mode      LogoutMode `json:"mode"`
	SessionID string     `json:"sessionId,omitempty"`
}
