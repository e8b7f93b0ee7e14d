package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title        string         `json:"title" gorm:"not null;size:200"`
	Standard     string         `json:"standard" gorm:"not null;size:100;index"` // e.g. "ISO 9001:2015"
	Description  string         `json:"description" gorm:"type:text"`
	StartDate    datatypes.Date `json:"start_date" gorm:"not null;index"`
	DurationDays int            `json:"duration_days" gorm:"not null;default:1"`
	Format       string         `json:"format" gorm:"size:50"` // "In-person", "Online", "Hybrid"
	PriceUSD     float64        `json:"price_usd" gorm:"type:numeric(12,2);not null;default:0"`
	SeatsTotal   int            `json:"seats_total" gorm:"not null;default:0"`
	SeatsTaken   int            `json:"seats_taken" gorm:"not null;default:0"`
	IsActive     bool           `json:"is_active" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Course) SeatsRemaining() int {
	remaining := c.SeatsTotal - c.SeatsTaken
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Course) IsFull() bool {
	return c.SeatsRemaining() == 0
}

func (c *Course) StartTime() time.Time {
	return time.Time(c.StartDate)
}
