package services

import (
	"context"
	"strings"
	"time"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type CreateStoryInput struct {
	Title            string    `validate:"required,max=255"`
	MainMessage      string    `validate:"required"`
	RevealDate       time.Time `validate:"required"`
	QRCodeURL        *string   `validate:"omitempty,url,max=500"`
	TopperIdentifier string    `validate:"required,max=100"`
	MaxSenders       int       `validate:"gte=0"`
}

// UpdateStoryInput has no topper identifier: it is fixed at creation.
type UpdateStoryInput struct {
	Title       *string    `validate:"omitempty,min=1,max=255"`
	MainMessage *string    `validate:"omitempty,min=1"`
	RevealDate  *time.Time `validate:"omitempty"`
	QRCodeURL   *string    `validate:"omitempty,url,max=500"`
	MaxSenders  *int       `validate:"omitempty,gte=1"`
}

// ParseRevealDate accepts the YYYY-MM-DD form used by the API.
func ParseRevealDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, validationError("reveal_date must be YYYY-MM-DD", map[string]string{"RevealDate": "failed on 'date' tag"})
	}
	return t, nil
}

type StoryService struct {
	db    *gorm.DB
	cache *BundleCache
}

func NewStoryService(db *gorm.DB, cache *BundleCache) *StoryService {
	return &StoryService{db: db, cache: cache}
}

func (s *StoryService) Create(ctx context.Context, organiserID uuid.UUID, in CreateStoryInput) (*models.Story, error) {
	in.TopperIdentifier = strings.TrimSpace(in.TopperIdentifier)
	if fields, err := utils.ValidateStruct(in); err != nil {
		return nil, validationError("invalid story details", fields)
	}
	if in.MaxSenders == 0 {
		in.MaxSenders = models.DefaultMaxSenders
	}

	db := s.db.WithContext(ctx)

	var organiser models.Organiser
	if err := db.Select("id").First(&organiser, "id = ?", organiserID).Error; err != nil {
		return nil, notFoundOr(err, "organiser not found")
	}

	var taken int64
	if err := db.Model(&models.Story{}).Where("topper_identifier = ?", in.TopperIdentifier).Count(&taken).Error; err != nil {
		return nil, storageFailure(err)
	}
	if taken > 0 {
		return nil, newError(KindDuplicateTopper, "topper identifier already in use")
	}

	story := models.Story{
		OrganiserID:      organiserID,
		Title:            in.Title,
		MainMessage:      in.MainMessage,
		RevealDate:       in.RevealDate,
		QRCodeURL:        in.QRCodeURL,
		TopperIdentifier: in.TopperIdentifier,
		MaxSenders:       in.MaxSenders,
	}
	if err := db.Create(&story).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(KindDuplicateTopper, "topper identifier already in use")
		}
		return nil, storageFailure(err)
	}

	return &story, nil
}

func (s *StoryService) Update(ctx context.Context, organiserID, storyID uuid.UUID, in UpdateStoryInput) (*models.Story, error) {
	if fields, err := utils.ValidateStruct(in); err != nil {
		return nil, validationError("invalid story details", fields)
	}

	var story models.Story
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockStory(tx, storyID, &story); err != nil {
			return err
		}
		if story.OrganiserID != organiserID {
			return newError(KindForbidden, "story belongs to another organiser")
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.MainMessage != nil {
			updates["main_message"] = *in.MainMessage
		}
		if in.RevealDate != nil {
			updates["reveal_date"] = *in.RevealDate
		}
		if in.QRCodeURL != nil {
			updates["qr_code_url"] = *in.QRCodeURL
		}
		if in.MaxSenders != nil {
			active, err := activeInvitationCount(tx, storyID)
			if err != nil {
				return err
			}
			if int64(*in.MaxSenders) < active {
				return newError(KindInvalidState, "max_senders is below the number of active invitations")
			}
			updates["max_senders"] = *in.MaxSenders
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&story).Updates(updates).Error; err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	s.cache.Invalidate(ctx, storyID)
	return s.Get(ctx, storyID)
}

func (s *StoryService) Get(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := s.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "story not found")
	}
	return &story, nil
}

func (s *StoryService) GetByTopper(ctx context.Context, topper string) (*models.Story, error) {
	var story models.Story
	err := s.db.WithContext(ctx).Where("topper_identifier = ?", strings.TrimSpace(topper)).First(&story).Error
	if err != nil {
		return nil, notFoundOr(err, "story not found")
	}
	return &story, nil
}

func (s *StoryService) List(ctx context.Context) ([]models.Story, error) {
	stories := []models.Story{}
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&stories).Error; err != nil {
		return nil, storageFailure(err)
	}
	return stories, nil
}

func (s *StoryService) ListByOrganiser(ctx context.Context, organiserID uuid.UUID) ([]models.Story, error) {
	stories := []models.Story{}
	err := s.db.WithContext(ctx).Where("organiser_id = ?", organiserID).Order("created_at ASC").Find(&stories).Error
	if err != nil {
		return nil, storageFailure(err)
	}
	return stories, nil
}

// Delete removes the story with all invitations and contributions under it.
func (s *StoryService) Delete(ctx context.Context, organiserID, storyID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var story models.Story
		if err := tx.First(&story, "id = ?", storyID).Error; err != nil {
			return notFoundOr(err, "story not found")
		}
		if story.OrganiserID != organiserID {
			return newError(KindForbidden, "story belongs to another organiser")
		}
		return deleteStories(tx, []uuid.UUID{storyID})
	})
	if err != nil {
		return asServiceError(err)
	}
	s.cache.Invalidate(ctx, storyID)
	return nil
}
