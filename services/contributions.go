package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path"
	"strings"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlobStore keeps uploaded media and returns a URL for it.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

type SubmitInput struct {
	Kind           models.ContributionKind `validate:"required,oneof=image video text"`
	MediaURL       *string                 `validate:"omitempty,max=1000"`
	YouTubeVideoID *string                 `validate:"omitempty,max=20"`
	Content        *string
	Caption        *string `validate:"omitempty,max=500"`
}

// UploadInput describes a media file sent by a sender.
type UploadInput struct {
	Kind        models.ContributionKind
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Caption     *string
}

var moderationDecisions = map[string]models.ModerationStatus{
	"approve": models.ModerationApproved,
	"ignore":  models.ModerationIgnored,
}

type ContributionService struct {
	db     *gorm.DB
	blobs  BlobStore
	pusher Pusher
	cache  *BundleCache
}

func NewContributionService(db *gorm.DB, blobs BlobStore, pusher Pusher, cache *BundleCache) *ContributionService {
	return &ContributionService{db: db, blobs: blobs, pusher: pusher, cache: cache}
}

// Submit records a contribution against an accepted (or already uploaded)
// invitation. The first contribution moves the invitation to uploaded in the
// same transaction.
func (s *ContributionService) Submit(ctx context.Context, invitationID uuid.UUID, in SubmitInput) (*models.Contribution, error) {
	if fields, err := utils.ValidateStruct(in); err != nil {
		return nil, validationError("invalid contribution", fields)
	}

	contribution := models.Contribution{
		StorySenderID:  invitationID,
		Kind:           in.Kind,
		MediaURL:       in.MediaURL,
		YouTubeVideoID: in.YouTubeVideoID,
		Content:        in.Content,
		Caption:        in.Caption,
		Status:         models.ModerationPending,
	}
	if err := contribution.Validate(); err != nil {
		return nil, validationError(err.Error(), map[string]string{"Kind": err.Error()})
	}

	var inv *models.StorySender
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := loadInvitation(forUpdate(tx), invitationID)
		if err != nil {
			return err
		}
		inv = loaded
		if !inv.CanContribute() {
			return newError(KindInvalidState, fmt.Sprintf("cannot contribute while invitation is %s", inv.InvitationStatus))
		}

		if err := tx.Create(&contribution).Error; err != nil {
			return storageFailure(err)
		}

		if inv.InvitationStatus == models.InvitationAccepted {
			if err := updateInvitation(tx, inv.ID, map[string]interface{}{"invitation_status": models.InvitationUploaded}); err != nil {
				return storageFailure(err)
			}
			inv.InvitationStatus = models.InvitationUploaded
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	log.Printf("✅ %s contribution %d added to invitation %s", contribution.Kind, contribution.ID, invitationID)
	s.cache.Invalidate(ctx, inv.StoryID)
	s.notifyOwner(ctx, inv, &contribution)
	return &contribution, nil
}

// SubmitWithToken resolves the sender's invitation from their token first.
func (s *ContributionService) SubmitWithToken(ctx context.Context, token string, in SubmitInput) (*models.Contribution, error) {
	inv, err := s.invitationForToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, inv.ID, in)
}

// Upload stores a media file and records it as a contribution. Only the
// resulting URL reaches the database.
func (s *ContributionService) Upload(ctx context.Context, token string, in UploadInput) (*models.Contribution, error) {
	var folder string
	switch in.Kind {
	case models.KindImage:
		folder = "images"
	case models.KindVideo:
		folder = "videos"
	default:
		return nil, validationError("only image and video contributions can be uploaded", map[string]string{"Kind": "failed on 'oneof' tag"})
	}
	if in.Body == nil {
		return nil, validationError("file is required", map[string]string{"File": "failed on 'required' tag"})
	}
	if s.blobs == nil {
		return nil, storageFailure(fmt.Errorf("no blob store configured"))
	}

	inv, err := s.invitationForToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !inv.CanContribute() {
		return nil, newError(KindInvalidState, fmt.Sprintf("cannot contribute while invitation is %s", inv.InvitationStatus))
	}

	key := fmt.Sprintf("contributions/%s/%s%s", folder, uuid.New().String(), mediaExtension(in.Filename, in.ContentType))
	url, err := s.blobs.Put(ctx, key, in.ContentType, in.Body, in.Size)
	if err != nil {
		log.Printf("❌ Media upload failed for invitation %s: %v", inv.ID, err)
		return nil, storageFailure(err)
	}

	contribution, err := s.Submit(ctx, inv.ID, SubmitInput{Kind: in.Kind, MediaURL: &url, Caption: in.Caption})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			log.Printf("⚠️  Could not remove orphaned upload %s: %v", key, delErr)
		}
		return nil, err
	}
	return contribution, nil
}

func (s *ContributionService) invitationForToken(ctx context.Context, token string) (*models.StorySender, error) {
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

func mediaExtension(filename, contentType string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && len(ext) <= 10 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// Moderate approves or ignores a contribution on one of the organiser's
// stories. Repeating a decision changes nothing, including updated_at.
func (s *ContributionService) Moderate(ctx context.Context, organiserID uuid.UUID, contributionID uint64, decision string) (*models.Contribution, error) {
	target, ok := moderationDecisions[strings.ToLower(strings.TrimSpace(decision))]
	if !ok {
		return nil, validationError("decision must be approve or ignore", map[string]string{"Decision": "failed on 'oneof' tag"})
	}

	var contribution models.Contribution
	var storyID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&contribution, "id = ?", contributionID).Error; err != nil {
			return notFoundOr(err, "contribution not found")
		}

		var inv models.StorySender
		if err := tx.Select("id", "story_id").First(&inv, "id = ?", contribution.StorySenderID).Error; err != nil {
			return notFoundOr(err, "invitation not found")
		}
		var story models.Story
		if err := tx.Select("id", "organiser_id").First(&story, "id = ?", inv.StoryID).Error; err != nil {
			return notFoundOr(err, "story not found")
		}
		if story.OrganiserID != organiserID {
			return newError(KindForbidden, "contribution belongs to another organiser's story")
		}
		storyID = story.ID

		if contribution.Status == target {
			return nil
		}
		if err := tx.Model(&models.Contribution{}).Where("id = ?", contribution.ID).
			Updates(map[string]interface{}{"status": target}).Error; err != nil {
			return storageFailure(err)
		}
		return tx.First(&contribution, "id = ?", contribution.ID).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	s.cache.Invalidate(ctx, storyID)
	return &contribution, nil
}

func (s *ContributionService) Get(ctx context.Context, id uint64) (*models.Contribution, error) {
	var contribution models.Contribution
	if err := s.db.WithContext(ctx).First(&contribution, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "contribution not found")
	}
	return &contribution, nil
}

// ListForStory returns every contribution on the story, oldest first. Rows
// created in the same instant keep insertion order.
func (s *ContributionService) ListForStory(ctx context.Context, storyID uuid.UUID) ([]models.Contribution, error) {
	return listContributions(s.db.WithContext(ctx), storyID)
}

func listContributions(db *gorm.DB, storyID uuid.UUID) ([]models.Contribution, error) {
	contributions := []models.Contribution{}
	invitations := db.Model(&models.StorySender{}).Select("id").Where("story_id = ?", storyID)
	err := db.Where("story_sender_id IN (?)", invitations).
		Order("created_at ASC").Order("id ASC").
		Find(&contributions).Error
	if err != nil {
		return nil, storageFailure(err)
	}
	return contributions, nil
}

func (s *ContributionService) notifyOwner(ctx context.Context, inv *models.StorySender, c *models.Contribution) {
	if s.pusher == nil {
		return
	}

	var story models.Story
	if err := s.db.WithContext(ctx).Preload("Organiser").First(&story, "id = ?", inv.StoryID).Error; err != nil {
		log.Printf("⚠️  Push skipped, story %s not loaded: %v", inv.StoryID, err)
		return
	}
	if story.Organiser == nil || story.Organiser.FCMToken == "" {
		return
	}

	who := "Someone"
	if inv.Sender != nil {
		who = inv.Sender.DisplayName()
	}
	body := fmt.Sprintf("%s added a %s to \"%s\"", who, c.Kind, story.Title)
	data := map[string]string{
		"type":            "contribution_added",
		"story_id":        story.ID.String(),
		"contribution_id": fmt.Sprint(c.ID),
	}

	if err := s.pusher.NotifyOrganiser(ctx, story.Organiser.FCMToken, "New contribution", body, data); err != nil {
		log.Printf("⚠️  Push to organiser %s failed: %v", story.OrganiserID, err)
	}
}
