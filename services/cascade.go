package services

import (
	"topper-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ownership is enforced here rather than by database cascades so every backend
// behaves the same: Story -> StorySender -> Contribution, children first.
// All helpers expect to run inside the caller's transaction.

func deleteInvitations(tx *gorm.DB, invitationIDs []uuid.UUID) error {
	if len(invitationIDs) == 0 {
		return nil
	}
	if err := tx.Where("story_sender_id IN ?", invitationIDs).Delete(&models.Contribution{}).Error; err != nil {
		return storageFailure(err)
	}
	if err := tx.Where("id IN ?", invitationIDs).Delete(&models.StorySender{}).Error; err != nil {
		return storageFailure(err)
	}
	return nil
}

func deleteStories(tx *gorm.DB, storyIDs []uuid.UUID) error {
	if len(storyIDs) == 0 {
		return nil
	}
	var invitationIDs []uuid.UUID
	if err := tx.Model(&models.StorySender{}).Where("story_id IN ?", storyIDs).Pluck("id", &invitationIDs).Error; err != nil {
		return storageFailure(err)
	}
	if err := deleteInvitations(tx, invitationIDs); err != nil {
		return err
	}
	if err := tx.Where("id IN ?", storyIDs).Delete(&models.Story{}).Error; err != nil {
		return storageFailure(err)
	}
	return nil
}
