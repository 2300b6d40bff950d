package model

type AuditActor struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	IP     string `json:"ip,omitempty"`
}

type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt string     `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type AuditQuery struct {
	Page    int
	Limit   int
	Action  string
	ActorID string
	Status  string
	From    string
	To      string
}

const (
	AuditSignIn  = "auth.signin"
	AuditRefresh = "auth.refresh"
	AuditLogout  = "auth.logout"
	AuditSignup  = "auth.signup"
	AuditVerify  = "auth.verify"
	AuditRole    = "user.role"

	AuditSuccess = "success"
	AuditFailure = "failure"
)

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
