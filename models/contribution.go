package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ContributionKind string

const (
	KindImage ContributionKind = "image"
	KindVideo ContributionKind = "video"
	KindText  ContributionKind = "text"
)

func (k ContributionKind) Valid() bool {
	return k == KindImage || k == KindVideo || k == KindText
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationIgnored  ModerationStatus = "ignored"
)

// Contribution is a tagged variant: Kind selects which payload field is meaningful.
//   - image: MediaURL
//   - video: MediaURL or YouTubeVideoID
//   - text:  Content
type Contribution struct {
	ID             uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	StorySenderID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"story_sender"`
	StorySender    *StorySender     `gorm:"foreignKey:StorySenderID;constraint:OnDelete:CASCADE" json:"-"`
	Kind           ContributionKind `gorm:"not null;size:10;index" json:"kind"`
	MediaURL       *string          `gorm:"size:1000" json:"media_url,omitempty"`
	YouTubeVideoID *string          `gorm:"column:youtube_video_id;size:20" json:"youtube_video_id,omitempty"`
	Content        *string          `json:"content,omitempty"`
	Caption        *string          `gorm:"size:500" json:"caption"`
	Status         ModerationStatus `gorm:"not null;default:pending;size:10" json:"status"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

var (
	errUnknownKind    = errors.New("kind must be one of image, video, text")
	errImagePayload   = errors.New("image contribution requires media_url")
	errVideoPayload   = errors.New("video contribution requires media_url or youtube_video_id")
	errTextPayload    = errors.New("text contribution requires content")
	errMixedPayload   = errors.New("payload fields do not match contribution kind")
	errYouTubeTooLong = errors.New("youtube_video_id must be at most 20 characters")
)

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Validate checks that exactly the payload belonging to Kind is present.
func (c *Contribution) Validate() error {
	switch c.Kind {
	case KindImage:
		if !nonEmpty(c.MediaURL) {
			return errImagePayload
		}
		if nonEmpty(c.YouTubeVideoID) || nonEmpty(c.Content) {
			return errMixedPayload
		}
	case KindVideo:
		if !nonEmpty(c.MediaURL) && !nonEmpty(c.YouTubeVideoID) {
			return errVideoPayload
		}
		if nonEmpty(c.Content) {
			return errMixedPayload
		}
		if c.YouTubeVideoID != nil && len(*c.YouTubeVideoID) > 20 {
			return errYouTubeTooLong
		}
	case KindText:
		if !nonEmpty(c.Content) {
			return errTextPayload
		}
		if nonEmpty(c.MediaURL) || nonEmpty(c.YouTubeVideoID) {
			return errMixedPayload
		}
	default:
		return errUnknownKind
	}
	return nil
}

// StoryBundle is the reveal view of a story and everything contributed to it.
type StoryBundle struct {
	Story              Story          `json:"story_details"`
	ImageContributions []Contribution `json:"image_contributions"`
	VideoContributions []Contribution `json:"video_contributions"`
	TextContributions  []Contribution `json:"text_contributions"`
}

// Request structs
type SubmitContributionRequest struct {
	Kind           ContributionKind `json:"kind" binding:"required"`
	MediaURL       *string          `json:"media_url"`
	YouTubeVideoID *string          `json:"youtube_video_id"`
	Content        *string          `json:"content"`
	Caption        *string          `json:"caption"`
}

type ModerateContributionRequest struct {
	Decision string `json:"decision" binding:"required"`
}
