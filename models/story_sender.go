package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationSent     InvitationStatus = "sent"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationUploaded InvitationStatus = "uploaded"
	InvitationRevoked  InvitationStatus = "revoked"
)

// StorySender links a Sender to a Story and carries the invitation lifecycle.
// A sender is invited to a given story at most once.
type StorySender struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	StoryID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_story_sender_pair" json:"story"`
	Story            *Story           `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_story_sender_pair;index" json:"sender_id"`
	Sender           *Sender          `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	InvitationStatus InvitationStatus `gorm:"not null;default:pending;size:50;index" json:"invitation_status"`
	InvitationToken  *string          `gorm:"uniqueIndex;size:255" json:"-"`
	TokenExpiresAt   *time.Time       `json:"token_expires_at,omitempty"`
	InvitedAt        time.Time        `gorm:"autoCreateTime" json:"invited_at"`
	LastRemindedAt   *time.Time       `json:"last_reminded_at,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (s *StorySender) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.InvitationStatus == "" {
		s.InvitationStatus = InvitationPending
	}
	return nil
}

// IsActive reports whether the invitation counts against the story's capacity.
func (s *StorySender) IsActive() bool {
	return s.InvitationStatus != InvitationRevoked
}

func (s *StorySender) IsTokenExpired(now time.Time) bool {
	return s.TokenExpiresAt != nil && now.After(*s.TokenExpiresAt)
}

func (s *StorySender) CanContribute() bool {
	return s.InvitationStatus == InvitationAccepted || s.InvitationStatus == InvitationUploaded
}

// CanRevoke follows the state machine: uploaded content pins the invitation.
func (s *StorySender) CanRevoke() bool {
	switch s.InvitationStatus {
	case InvitationPending, InvitationSent, InvitationAccepted, InvitationRevoked:
		return true
	}
	return false
}

func (s *StorySender) CanRemind() bool {
	return s.InvitationStatus != InvitationRevoked && s.InvitationStatus != InvitationUploaded
}

type StorySenderResponse struct {
	ID               uuid.UUID        `json:"id"`
	Story            uuid.UUID        `json:"story"`
	Sender           SenderResponse   `json:"sender"`
	InvitationStatus InvitationStatus `json:"invitation_status"`
	InvitedAt        time.Time        `json:"invited_at"`
	TokenExpiresAt   *time.Time       `json:"token_expires_at,omitempty"`
	LastRemindedAt   *time.Time       `json:"last_reminded_at,omitempty"`
}

func (s *StorySender) ToResponse() StorySenderResponse {
	resp := StorySenderResponse{
		ID:               s.ID,
		Story:            s.StoryID,
		InvitationStatus: s.InvitationStatus,
		InvitedAt:        s.InvitedAt,
		TokenExpiresAt:   s.TokenExpiresAt,
		LastRemindedAt:   s.LastRemindedAt,
	}
	if s.Sender != nil {
		resp.Sender = s.Sender.ToResponse()
	}
	return resp
}

// Request structs
type InviteSenderRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// TTLHours is capped at one year.
type SendInvitationRequest struct {
	TTLHours int `json:"ttl_hours" binding:"omitempty,min=1,max=8760"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}
