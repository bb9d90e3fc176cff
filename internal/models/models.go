package models

import "time"

type Role string

const (
	RoleResident Role = "resident"
	RoleOfficial Role = "official"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleOfficial, RoleAdmin:
		return true
	}
	return false
}

// Privileged reports whether the role may triage reports.
func (r Role) Privileged() bool {
	return r == RoleOfficial || r == RoleAdmin
}

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type Session struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	TokenHash     string     `db:"token_hash"`
	IPAddress     string     `db:"ip_address"`
	UserAgent     string     `db:"user_agent"`
	ExpiresAt     time.Time  `db:"expires_at"`
	IdleExpiresAt time.Time  `db:"idle_expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	LastSeenAt    time.Time  `db:"last_seen_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
}

type ReportStatus string

const (
	StatusSubmitted  ReportStatus = "submitted"
	StatusReviewed   ReportStatus = "reviewed"
	StatusInProgress ReportStatus = "in_progress"
	StatusValidation ReportStatus = "validation"
	StatusResolved   ReportStatus = "resolved"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Report struct {
	ID                   string       `db:"id" json:"id"`
	Category             string       `db:"category" json:"category"`
	Description          string       `db:"description" json:"description"`
	Priority             Priority     `db:"priority" json:"priority"`
	Location             string       `db:"location" json:"location"`
	Status               ReportStatus `db:"status" json:"status"`
	Images               StringList   `db:"images" json:"images"`
	AdditionalInfo       *string      `db:"additional_info" json:"additionalInfo"`
	AdditionalInfoImages StringList   `db:"additional_info_images" json:"additionalInfoImages"`
	AdminFeedback        *string      `db:"admin_feedback" json:"adminFeedback"`
	SubmittedBy          string       `db:"submitted_by" json:"submittedBy"`
	SubmitterName        *string      `db:"submitter_name" json:"submitterName"`
	SubmittedAt          time.Time    `db:"submitted_at" json:"submittedAt"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updatedAt"`
}

// ReportPatch carries the columns an update may touch. Nil fields are left as stored.
type ReportPatch struct {
	Status               *ReportStatus
	AdminFeedback        *string
	AdditionalInfo       *string
	AdditionalInfoImages StringList
	UpdatedAt            time.Time
}

type ReportQuery struct {
	SubmittedBy string
	Status      ReportStatus
	Category    string
}

type ReportMessage struct {
	ID         string     `db:"id" json:"id"`
	ReportID   string     `db:"report_id" json:"reportId"`
	Seq        int64      `db:"seq" json:"seq"`
	SenderID   string     `db:"sender_id" json:"senderId"`
	SenderRole Role       `db:"sender_role" json:"senderRole"`
	SenderName *string    `db:"sender_name" json:"senderName"`
	Message    string     `db:"message" json:"message"`
	Images     StringList `db:"images" json:"images"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

type MemoStatus string

const (
	MemoPending  MemoStatus = "pending"
	MemoApproved MemoStatus = "approved"
	MemoRejected MemoStatus = "rejected"
)

type MemoCategory string

const (
	CategoryMemo      MemoCategory = "memo"
	CategoryOrdinance MemoCategory = "ordinance"
)

func (c MemoCategory) Valid() bool {
	return c == CategoryMemo || c == CategoryOrdinance
}

type Memo struct {
	ID            string       `db:"id" json:"id"`
	Title         string       `db:"title" json:"title"`
	Description   string       `db:"description" json:"description"`
	Category      MemoCategory `db:"category" json:"category"`
	Status        MemoStatus   `db:"status" json:"status"`
	EffectiveDate *time.Time   `db:"effective_date" json:"effectiveDate"`
	FileURL       *string      `db:"file_url" json:"fileUrl"`
	IssuedBy      string       `db:"issued_by" json:"issuedBy"`
	IssuerName    *string      `db:"issuer_name" json:"issuerName"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}

type MemoQuery struct {
	OnlyApproved bool
	Status       MemoStatus
	Category     MemoCategory
}

type SystemLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"userId"`
	UserName     *string   `db:"user_name" json:"userName"`
	UserRole     *string   `db:"user_role" json:"userRole"`
	Action       string    `db:"action" json:"action"`
	AffectedData *string   `db:"affected_data" json:"affectedData"`
	Module       string    `db:"module" json:"module"`
	IPAddress    string    `db:"ip_address" json:"ipAddress"`
	UserAgent    string    `db:"user_agent" json:"userAgent"`
	Metadata     Metadata  `db:"metadata" json:"metadata"`
	Timestamp    time.Time `db:"logged_at" json:"timestamp"`
}

// LogQuery filters are conjunctive; Search is OR-ed across action, affected data and user name.
type LogQuery struct {
	Role   string
	Module string
	UserID string
	Search string
	Limit  int
}
