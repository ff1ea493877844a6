package entity

import (
	"time"

	"gorm.io/datatypes"
)

// TrendAnalysis is a derived narrative plus bar-chart dataset for a
// session. Only the most recently created row is authoritative.
type TrendAnalysis struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	SessionID string         `gorm:"not null;index" json:"session_id"`
	Overview  string         `json:"overview,omitempty"`
	Bars      datatypes.JSON `json:"bars,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the TrendAnalysis model.
func (TrendAnalysis) TableName() string {
	return "trend_analyses"
}
