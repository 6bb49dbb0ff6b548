package services

import (
	"context"
	"strings"
	"topper-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevealService assembles what a topper's QR code shows: the story and every
// contribution, grouped by kind. Moderation status is not filtered here.
type RevealService struct {
	db    *gorm.DB
	cache *BundleCache
}

func NewRevealService(db *gorm.DB, cache *BundleCache) *RevealService {
	return &RevealService{db: db, cache: cache}
}

func (s *RevealService) GetStoryBundle(ctx context.Context, storyID uuid.UUID) (*models.StoryBundle, error) {
	if bundle, ok := s.cache.Get(ctx, storyID); ok {
		return bundle, nil
	}

	version := s.cache.Version(ctx, storyID)
	db := s.db.WithContext(ctx)
	var story models.Story
	if err := db.First(&story, "id = ?", storyID).Error; err != nil {
		return nil, notFoundOr(err, "story not found")
	}

	contributions, err := listContributions(db, story.ID)
	if err != nil {
		return nil, err
	}
	bundle := newBundle(story, contributions)
	s.cache.Set(ctx, bundle, version)
	return bundle, nil
}

func (s *RevealService) GetBundleByTopper(ctx context.Context, topper string) (*models.StoryBundle, error) {
	var story models.Story
	err := s.db.WithContext(ctx).Select("id").
		Where("topper_identifier = ?", strings.TrimSpace(topper)).
		First(&story).Error
	if err != nil {
		return nil, notFoundOr(err, "story not found")
	}
	return s.GetStoryBundle(ctx, story.ID)
}

func newBundle(story models.Story, contributions []models.Contribution) *models.StoryBundle {
	bundle := &models.StoryBundle{
		Story:              story,
		ImageContributions: []models.Contribution{},
		VideoContributions: []models.Contribution{},
		TextContributions:  []models.Contribution{},
	}
	for _, c := range contributions {
		switch c.Kind {
		case models.KindImage:
			bundle.ImageContributions = append(bundle.ImageContributions, c)
		case models.KindVideo:
			bundle.VideoContributions = append(bundle.VideoContributions, c)
		case models.KindText:
			bundle.TextContributions = append(bundle.TextContributions, c)
		}
	}
	return bundle
}
