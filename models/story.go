package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultMaxSenders = 6

type Story struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganiserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organiser"`
	Organiser   *Organiser `gorm:"foreignKey:OrganiserID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string     `gorm:"not null;size:255" json:"title"`
	MainMessage string     `gorm:"not null" json:"main_message"`
	RevealDate  time.Time  `gorm:"type:date;not null" json:"reveal_date"`
	QRCodeURL   *string    `gorm:"size:500" json:"qr_code_url"`
	// Printed on the physical topper's QR code; set once at creation.
	TopperIdentifier string    `gorm:"uniqueIndex;not null;size:100" json:"topper_identifier"`
	MaxSenders       int       `gorm:"not null;default:6" json:"max_senders"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.MaxSenders == 0 {
		s.MaxSenders = DefaultMaxSenders
	}
	return nil
}

// Request structs
type CreateStoryRequest struct {
	Title            string  `json:"title" binding:"required"`
	MainMessage      string  `json:"main_message" binding:"required"`
	RevealDate       string  `json:"reveal_date" binding:"required"` // YYYY-MM-DD
	QRCodeURL        *string `json:"qr_code_url"`
	TopperIdentifier string  `json:"topper_identifier" binding:"required"`
	MaxSenders       int     `json:"max_senders"`
}

type UpdateStoryRequest struct {
	Title       *string `json:"title"`
	MainMessage *string `json:"main_message"`
	RevealDate  *string `json:"reveal_date"`
	QRCodeURL   *string `json:"qr_code_url"`
	MaxSenders  *int    `json:"max_senders"`
}
