package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of a research session. Transitions
// are monotonic: PENDING -> RUNNING -> {COMPLETED, FAILED}.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Terminal reports whether the status is a final state.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// LogLevel classifies a session log line.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ResearchSession represents one end-to-end research run.
type ResearchSession struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	Label          string         `gorm:"not null;index" json:"label"`
	Segment        string         `json:"segment"`
	Status         SessionStatus  `gorm:"not null;default:PENDING" json:"status"`
	MaxCompanies   int            `json:"max_companies"`
	CompaniesFound int            `gorm:"not null;default:0" json:"companies_found"`
	Charts         datatypes.JSON `json:"charts,omitempty"`
	ScoringConfig  datatypes.JSON `json:"scoring_config,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the ResearchSession model.
func (ResearchSession) TableName() string {
	return "research_sessions"
}

// SessionLog is an append-only progress event owned by a session. Logs are
// ordered by Ts ascending; ID is monotonic and breaks timestamp ties.
type SessionLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SessionID string         `gorm:"not null;index" json:"session_id"`
	Ts        time.Time      `gorm:"autoCreateTime;index" json:"ts"`
	Level     LogLevel       `gorm:"default:info" json:"level"`
	Message   string         `gorm:"not null" json:"message"`
	Meta      datatypes.JSON `json:"meta,omitempty"`
}

// TableName specifies the table name for the SessionLog model.
func (SessionLog) TableName() string {
	return "research_session_logs"
}
