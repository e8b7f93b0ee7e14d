package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConsultingInquiry is a certification-support enquiry sent from the consulting form.
type ConsultingInquiry struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:100"`
	Company   string    `json:"company" gorm:"not null;size:200"`
	Email     string    `json:"email" gorm:"not null;size:255;index"`
	Phone     string    `json:"phone" gorm:"size:40"`
	Standard  string    `json:"standard" gorm:"not null;size:100"`
	Message   string    `json:"message" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (ConsultingInquiry) TableName() string {
	return "consulting_inquiries"
}

func (i *ConsultingInquiry) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&Course{},
		&Enrollment{},
		&ConsultingInquiry{},
	}
}
