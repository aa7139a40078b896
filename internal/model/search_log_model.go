package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SearchLog struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId     string         `gorm:"type:varchar(64);not null;index"`
	Query         string         `gorm:"type:text;not null"`
	ExpandedQuery string         `gorm:"type:text"`
	Sql           string         `gorm:"type:text"`
	Outcome       string         `gorm:"type:varchar(32);not null;index"`
	Attempts      int            `gorm:"not null;default:0"`
	ParcelCount   int            `gorm:"not null;default:0"`
	Summary       string         `gorm:"type:text"`
	Error         string         `gorm:"type:text"`
	DurationMs    int64          `gorm:"not null;default:0"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index"`
}

func (SearchLog) TableName() string {
	return "search_logs"
}

func (s *SearchLog) BeforeCreate(*gorm.DB) error {
	if s.Id == uuid.Nil {
		s.Id = uuid.New()
	}
	return nil
}
