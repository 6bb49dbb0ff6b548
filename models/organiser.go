package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Organiser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string    `gorm:"not null;size:200" json:"first_name"`
	LastName     string    `gorm:"not null;size:200" json:"last_name"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string    `gorm:"not null;size:255" json:"-"`
	Address      string    `json:"address,omitempty"`
	PhoneNumber  string    `gorm:"size:50" json:"phone_number,omitempty"`
	FCMToken     string    `json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	DateJoined   time.Time `gorm:"autoCreateTime" json:"date_joined"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (o *Organiser) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *Organiser) FullName() string {
	return o.FirstName + " " + o.LastName
}

func (o *Organiser) ShortName() string {
	return o.FirstName
}

// Public fields only; credentials never leave the service.
type OrganiserResponse struct {
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
}

func (o *Organiser) ToResponse() OrganiserResponse {
	return OrganiserResponse{
		FirstName:  o.FirstName,
		LastName:   o.LastName,
		Email:      o.Email,
		DateJoined: o.DateJoined,
	}
}
