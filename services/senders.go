package services

import (
	"context"
	"errors"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SenderService struct {
	db    *gorm.DB
	cache *BundleCache
}

func NewSenderService(db *gorm.DB, cache *BundleCache) *SenderService {
	return &SenderService{db: db, cache: cache}
}

func validateSender(email, name string) error {
	if fields, err := utils.ValidateStruct(struct {
		Email string `validate:"required,email,max=255"`
		Name  string `validate:"max=255"`
	}{email, name}); err != nil {
		return validationError("invalid sender details", fields)
	}
	return nil
}

// GetOrCreate returns the one Sender record for email, creating it on first
// use. A non-empty name fills in a previously unnamed sender.
func (s *SenderService) GetOrCreate(ctx context.Context, email, name string) (*models.Sender, error) {
	email = utils.NormalizeEmail(email)
	if err := validateSender(email, name); err != nil {
		return nil, err
	}
	return getOrCreateSender(s.db.WithContext(ctx), email, name)
}

// getOrCreateSender is safe inside a caller's transaction: a concurrent
// creator of the same email makes the insert a no-op instead of an error
// that would abort the transaction on Postgres.
func getOrCreateSender(db *gorm.DB, email, name string) (*models.Sender, error) {
	var sender models.Sender
	err := db.Where("email = ?", email).First(&sender).Error
	if err == nil {
		if name != "" && (sender.Name == nil || *sender.Name == "") {
			if err := db.Model(&sender).Update("name", name).Error; err != nil {
				return nil, storageFailure(err)
			}
			sender.Name = &name
		}
		return &sender, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageFailure(err)
	}

	sender = models.Sender{Email: email}
	if name != "" {
		sender.Name = &name
	}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&sender)
	if res.Error != nil {
		return nil, storageFailure(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with another creator; use theirs.
		var existing models.Sender
		if err := db.Where("email = ?", email).First(&existing).Error; err != nil {
			return nil, storageFailure(err)
		}
		return &existing, nil
	}
	return &sender, nil
}

func (s *SenderService) Get(ctx context.Context, id uuid.UUID) (*models.Sender, error) {
	var sender models.Sender
	if err := s.db.WithContext(ctx).First(&sender, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "sender not found")
	}
	return &sender, nil
}

func (s *SenderService) List(ctx context.Context) ([]models.Sender, error) {
	senders := []models.Sender{}
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&senders).Error; err != nil {
		return nil, storageFailure(err)
	}
	return senders, nil
}

// Delete removes the sender and every invitation (with its contributions)
// that references them.
func (s *SenderService) Delete(ctx context.Context, id uuid.UUID) error {
	var storyIDs []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sender models.Sender
		if err := tx.First(&sender, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "sender not found")
		}

		var invitations []models.StorySender
		if err := tx.Select("id", "story_id").Where("sender_id = ?", id).Find(&invitations).Error; err != nil {
			return storageFailure(err)
		}
		invitationIDs := make([]uuid.UUID, len(invitations))
		for i, inv := range invitations {
			invitationIDs[i] = inv.ID
			storyIDs = append(storyIDs, inv.StoryID)
		}
		if err := deleteInvitations(tx, invitationIDs); err != nil {
			return err
		}
		if err := tx.Delete(&sender).Error; err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return asServiceError(err)
	}

	for _, storyID := range storyIDs {
		s.cache.Invalidate(ctx, storyID)
	}
	return nil
}
