package services

import (
	"context"
	"errors"
	"log"
	"time"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxTokenAttempts = 5

var errTokenCollision = errors.New("invitation token collision")

type InvitationService struct {
	db       *gorm.DB
	notifier Notifier
	cache    *BundleCache
	now      func() time.Time
	newToken func() (string, error)
}

func NewInvitationService(db *gorm.DB, notifier Notifier, cache *BundleCache) *InvitationService {
	return &InvitationService{
		db:       db,
		notifier: notifier,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: utils.GenerateInvitationToken,
	}
}

// forUpdate adds SELECT ... FOR UPDATE on Postgres. SQLite has no row locks and
// already serialises writers.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockStory loads the story, holding a row lock on Postgres so capacity checks
// for the same story run one at a time.
func lockStory(tx *gorm.DB, storyID uuid.UUID, story *models.Story) error {
	if err := forUpdate(tx).First(story, "id = ?", storyID).Error; err != nil {
		return notFoundOr(err, "story not found")
	}
	return nil
}

func activeInvitationCount(tx *gorm.DB, storyID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.StorySender{}).
		Where("story_id = ? AND invitation_status <> ?", storyID, models.InvitationRevoked).
		Count(&count).Error
	if err != nil {
		return 0, storageFailure(err)
	}
	return count, nil
}

func updateInvitation(tx *gorm.DB, id uuid.UUID, values map[string]interface{}) error {
	return tx.Model(&models.StorySender{}).Where("id = ?", id).Updates(values).Error
}

func loadInvitation(tx *gorm.DB, id uuid.UUID) (*models.StorySender, error) {
	var inv models.StorySender
	if err := tx.Preload("Sender").First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "invitation not found")
	}
	return &inv, nil
}

// Invite creates a pending invitation for (story, sender).
func (s *InvitationService) Invite(ctx context.Context, storyID, senderID uuid.UUID) (*models.StorySender, error) {
	var inv *models.StorySender
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sender models.Sender
		if err := tx.First(&sender, "id = ?", senderID).Error; err != nil {
			return notFoundOr(err, "sender not found")
		}
		created, err := invite(tx, storyID, &sender)
		inv = created
		return err
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	log.Printf("✅ Invitation %s created for sender %s on story %s", inv.ID, senderID, storyID)
	return inv, nil
}

// InviteByEmail resolves (or creates) the sender by email and invites them to
// a story owned by organiserID. Both writes share one transaction, so a
// rejected invite leaves no new sender behind.
func (s *InvitationService) InviteByEmail(ctx context.Context, organiserID, storyID uuid.UUID, email, name string) (*models.StorySender, error) {
	email = utils.NormalizeEmail(email)
	if err := validateSender(email, name); err != nil {
		return nil, err
	}

	var inv *models.StorySender
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var story models.Story
		if err := tx.Select("id", "organiser_id").First(&story, "id = ?", storyID).Error; err != nil {
			return notFoundOr(err, "story not found")
		}
		if story.OrganiserID != organiserID {
			return newError(KindForbidden, "story belongs to another organiser")
		}

		sender, err := getOrCreateSender(tx, email, name)
		if err != nil {
			return err
		}
		created, err := invite(tx, storyID, sender)
		inv = created
		return err
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	log.Printf("✅ Invitation %s created for %s on story %s", inv.ID, email, storyID)
	return inv, nil
}

// invite runs the capacity and duplicate checks and inserts the invitation.
// It must run inside the caller's transaction.
func invite(tx *gorm.DB, storyID uuid.UUID, sender *models.Sender) (*models.StorySender, error) {
	var story models.Story
	if err := lockStory(tx, storyID, &story); err != nil {
		return nil, err
	}

	var existing int64
	if err := tx.Model(&models.StorySender{}).
		Where("story_id = ? AND sender_id = ?", storyID, sender.ID).
		Count(&existing).Error; err != nil {
		return nil, storageFailure(err)
	}
	if existing > 0 {
		return nil, newError(KindDuplicateInvitation, "sender already invited to this story")
	}

	active, err := activeInvitationCount(tx, storyID)
	if err != nil {
		return nil, err
	}
	if active >= int64(story.MaxSenders) {
		return nil, newError(KindCapacityExceeded, "story has reached its maximum number of senders")
	}

	inv := models.StorySender{
		StoryID:          storyID,
		SenderID:         sender.ID,
		InvitationStatus: models.InvitationPending,
	}
	if err := tx.Create(&inv).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(KindDuplicateInvitation, "sender already invited to this story")
		}
		return nil, storageFailure(err)
	}
	inv.Sender = sender
	return &inv, nil
}

// IssueToken mints a fresh token for the invitation. Tokens are never reused:
// a collision with any existing token just triggers another attempt.
func (s *InvitationService) IssueToken(ctx context.Context, invitationID uuid.UUID, ttl time.Duration) (string, *models.StorySender, error) {
	if ttl <= 0 {
		return "", nil, validationError("token ttl must be positive", nil)
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", nil, &Error{Kind: KindStorageFailure, Message: "storage failure", Err: err}
		}

		var inv *models.StorySender
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			loaded, err := loadInvitation(forUpdate(tx), invitationID)
			if err != nil {
				return err
			}
			inv = loaded
			if inv.InvitationStatus == models.InvitationRevoked {
				return newError(KindInvalidState, "invitation has been revoked")
			}

			var clash int64
			if err := tx.Model(&models.StorySender{}).Where("invitation_token = ?", token).Count(&clash).Error; err != nil {
				return storageFailure(err)
			}
			if clash > 0 {
				return errTokenCollision
			}

			status := inv.InvitationStatus
			if status == models.InvitationPending {
				status = models.InvitationSent
			}
			expiresAt := s.now().Add(ttl)

			if err := updateInvitation(tx, inv.ID, map[string]interface{}{
				"invitation_token":  token,
				"token_expires_at":  expiresAt,
				"invitation_status": status,
			}); err != nil {
				return err
			}
			inv.InvitationToken = &token
			inv.TokenExpiresAt = &expiresAt
			inv.InvitationStatus = status
			return nil
		})
		if errors.Is(err, errTokenCollision) || isUniqueViolation(err) {
			log.Printf("⚠️  Invitation token collision for %s, retrying", invitationID)
			continue
		}
		if err != nil {
			return "", nil, asServiceError(err)
		}

		log.Printf("✅ Token issued for invitation %s (expires %s)", invitationID, inv.TokenExpiresAt.Format(time.RFC3339))
		return token, inv, nil
	}

	return "", nil, storageFailure(errors.New("could not mint a unique invitation token"))
}

// Send issues a token and emails it to the sender. Delivery failures are
// reported with the updated invitation; the token stays issued.
func (s *InvitationService) Send(ctx context.Context, organiserID, invitationID uuid.UUID, ttl time.Duration) (*models.StorySender, error) {
	if _, err := s.CheckOwner(ctx, organiserID, invitationID); err != nil {
		return nil, err
	}

	token, inv, err := s.IssueToken(ctx, invitationID, ttl)
	if err != nil {
		return nil, err
	}

	email, err := s.buildEmail(ctx, inv, token)
	if err != nil {
		return inv, err
	}
	if err := s.notifier.NotifyInvitation(ctx, email); err != nil {
		log.Printf("❌ Invitation email to %s failed: %v", email.ToEmail, err)
		return inv, &Error{Kind: KindNotificationFailure, Message: "token issued but the invitation email could not be sent", Err: err}
	}
	return inv, nil
}

// Accept moves an invitation to accepted. Accepting an already accepted
// invitation succeeds without changes. Revoked invitations have no token, so
// their old token reports TokenNotFound.
func (s *InvitationService) Accept(ctx context.Context, token string) (*models.StorySender, error) {
	if token == "" {
		return nil, newError(KindTokenNotFound, "invitation token not found")
	}

	var inv models.StorySender
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).Preload("Sender").Where("invitation_token = ?", token).First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindTokenNotFound, "invitation token not found")
		}
		if err != nil {
			return storageFailure(err)
		}

		if inv.InvitationStatus == models.InvitationRevoked {
			return newError(KindTokenNotFound, "invitation token not found")
		}
		if inv.IsTokenExpired(s.now()) {
			return newError(KindTokenExpired, "invitation token has expired")
		}

		switch inv.InvitationStatus {
		case models.InvitationAccepted:
			return nil
		case models.InvitationUploaded:
			return newError(KindInvalidState, "invitation has already been used to upload")
		}

		if err := updateInvitation(tx, inv.ID, map[string]interface{}{"invitation_status": models.InvitationAccepted}); err != nil {
			return storageFailure(err)
		}
		inv.InvitationStatus = models.InvitationAccepted
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	log.Printf("✅ Invitation %s accepted", inv.ID)
	return &inv, nil
}

// Revoke ends the invitation and clears its token. Revoking twice is a no-op;
// uploaded invitations cannot be revoked.
func (s *InvitationService) Revoke(ctx context.Context, invitationID uuid.UUID) (*models.StorySender, error) {
	var inv *models.StorySender
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := loadInvitation(forUpdate(tx), invitationID)
		if err != nil {
			return err
		}
		inv = loaded

		if inv.InvitationStatus == models.InvitationRevoked {
			return nil
		}
		if !inv.CanRevoke() {
			return newError(KindInvalidState, "invitation with uploaded content cannot be revoked")
		}

		if err := updateInvitation(tx, inv.ID, map[string]interface{}{
			"invitation_status": models.InvitationRevoked,
			"invitation_token":  nil,
			"token_expires_at":  nil,
		}); err != nil {
			return storageFailure(err)
		}
		inv.InvitationStatus = models.InvitationRevoked
		inv.InvitationToken = nil
		inv.TokenExpiresAt = nil
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	log.Printf("✅ Invitation %s revoked", invitationID)
	return inv, nil
}

// Remind records a reminder on an invitation that is still waiting on the sender.
func (s *InvitationService) Remind(ctx context.Context, invitationID uuid.UUID) (*models.StorySender, error) {
	var inv *models.StorySender
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := loadInvitation(forUpdate(tx), invitationID)
		if err != nil {
			return err
		}
		inv = loaded
		if !inv.CanRemind() {
			return newError(KindInvalidState, "invitation can no longer be reminded")
		}

		remindedAt := s.now()
		if err := updateInvitation(tx, inv.ID, map[string]interface{}{"last_reminded_at": remindedAt}); err != nil {
			return storageFailure(err)
		}
		inv.LastRemindedAt = &remindedAt
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}
	return inv, nil
}

// RemindAndNotify records the reminder and, when the sender still holds a
// live token, emails it again.
func (s *InvitationService) RemindAndNotify(ctx context.Context, organiserID, invitationID uuid.UUID) (*models.StorySender, error) {
	if _, err := s.CheckOwner(ctx, organiserID, invitationID); err != nil {
		return nil, err
	}

	inv, err := s.Remind(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InvitationToken == nil || inv.IsTokenExpired(s.now()) {
		return inv, nil
	}

	email, err := s.buildEmail(ctx, inv, *inv.InvitationToken)
	if err != nil {
		return inv, err
	}
	if err := s.notifier.NotifyReminder(ctx, email); err != nil {
		log.Printf("❌ Reminder email to %s failed: %v", email.ToEmail, err)
		return inv, &Error{Kind: KindNotificationFailure, Message: "reminder recorded but the email could not be sent", Err: err}
	}
	return inv, nil
}

func (s *InvitationService) buildEmail(ctx context.Context, inv *models.StorySender, token string) (InvitationEmail, error) {
	var story models.Story
	if err := s.db.WithContext(ctx).Preload("Organiser").First(&story, "id = ?", inv.StoryID).Error; err != nil {
		return InvitationEmail{}, notFoundOr(err, "story not found")
	}

	sender := inv.Sender
	if sender == nil {
		sender = &models.Sender{}
		if err := s.db.WithContext(ctx).First(sender, "id = ?", inv.SenderID).Error; err != nil {
			return InvitationEmail{}, notFoundOr(err, "sender not found")
		}
	}

	email := InvitationEmail{
		ToEmail:    sender.Email,
		ToName:     sender.DisplayName(),
		StoryTitle: story.Title,
		RevealDate: story.RevealDate,
		Token:      token,
	}
	if story.Organiser != nil {
		email.OrganiserName = story.Organiser.FullName()
	}
	if inv.TokenExpiresAt != nil {
		email.ExpiresAt = *inv.TokenExpiresAt
	}
	return email, nil
}

// CheckOwner loads the invitation and verifies its story belongs to organiserID.
func (s *InvitationService) CheckOwner(ctx context.Context, organiserID, invitationID uuid.UUID) (*models.StorySender, error) {
	db := s.db.WithContext(ctx)
	inv, err := loadInvitation(db, invitationID)
	if err != nil {
		return nil, err
	}

	var story models.Story
	if err := db.Select("id", "organiser_id").First(&story, "id = ?", inv.StoryID).Error; err != nil {
		return nil, notFoundOr(err, "story not found")
	}
	if story.OrganiserID != organiserID {
		return nil, newError(KindForbidden, "invitation belongs to another organiser")
	}
	return inv, nil
}

func (s *InvitationService) Get(ctx context.Context, id uuid.UUID) (*models.StorySender, error) {
	return loadInvitation(s.db.WithContext(ctx), id)
}

func (s *InvitationService) GetByToken(ctx context.Context, token string) (*models.StorySender, error) {
	if token == "" {
		return nil, newError(KindTokenNotFound, "invitation token not found")
	}
	var inv models.StorySender
	err := s.db.WithContext(ctx).Preload("Sender").Where("invitation_token = ?", token).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindTokenNotFound, "invitation token not found")
	}
	if err != nil {
		return nil, storageFailure(err)
	}
	return &inv, nil
}

func (s *InvitationService) List(ctx context.Context) ([]models.StorySender, error) {
	invitations := []models.StorySender{}
	if err := s.db.WithContext(ctx).Preload("Sender").Order("invited_at ASC").Find(&invitations).Error; err != nil {
		return nil, storageFailure(err)
	}
	return invitations, nil
}

func (s *InvitationService) ListForStory(ctx context.Context, storyID uuid.UUID) ([]models.StorySender, error) {
	invitations := []models.StorySender{}
	err := s.db.WithContext(ctx).Preload("Sender").
		Where("story_id = ?", storyID).
		Order("invited_at ASC").
		Find(&invitations).Error
	if err != nil {
		return nil, storageFailure(err)
	}
	return invitations, nil
}

func (s *InvitationService) ActiveCount(ctx context.Context, storyID uuid.UUID) (int64, error) {
	return activeInvitationCount(s.db.WithContext(ctx), storyID)
}

// Delete removes the invitation and all of its contributions.
func (s *InvitationService) Delete(ctx context.Context, organiserID, invitationID uuid.UUID) error {
	inv, err := s.CheckOwner(ctx, organiserID, invitationID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteInvitations(tx, []uuid.UUID{invitationID})
	})
	if err != nil {
		return asServiceError(err)
	}
	s.cache.Invalidate(ctx, inv.StoryID)
	return nil
}
