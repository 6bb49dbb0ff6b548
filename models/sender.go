package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Sender struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name      *string   `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Sender) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SenderResponse struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func (s *Sender) ToResponse() SenderResponse {
	return SenderResponse{Email: s.Email, Name: s.Name}
}

func (s *Sender) DisplayName() string {
	if s.Name != nil && *s.Name != "" {
		return *s.Name
	}
	return s.Email
}
