package services

import (
	"context"
	"errors"
	"log"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterOrganiserInput struct {
	FirstName   string `validate:"required,max=200"`
	LastName    string `validate:"required,max=200"`
	Email       string `validate:"required,email,max=255"`
	Password    string `validate:"required,min=8"`
	Address     string
	PhoneNumber string `validate:"max=50"`
}

type OrganiserService struct {
	db    *gorm.DB
	cache *BundleCache
}

func NewOrganiserService(db *gorm.DB, cache *BundleCache) *OrganiserService {
	return &OrganiserService{db: db, cache: cache}
}

func (s *OrganiserService) Register(ctx context.Context, in RegisterOrganiserInput) (*models.Organiser, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	if fields, err := utils.ValidateStruct(in); err != nil {
		return nil, validationError("invalid organiser details", fields)
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Organiser{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, storageFailure(err)
	}
	if count > 0 {
		return nil, newError(KindDuplicateEmail, "email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "password could not be hashed", Err: err}
	}

	organiser := models.Organiser{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hashed),
		Address:      in.Address,
		PhoneNumber:  in.PhoneNumber,
		IsActive:     true,
	}
	if err := db.Create(&organiser).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(KindDuplicateEmail, "email already registered")
		}
		return nil, storageFailure(err)
	}

	log.Printf("✅ Organiser registered: %s", organiser.Email)
	return &organiser, nil
}

// Authenticate returns the same Unauthorized error for every failure so the
// response never reveals which part was wrong.
func (s *OrganiserService) Authenticate(ctx context.Context, email, password string) (*models.Organiser, error) {
	var organiser models.Organiser
	err := s.db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&organiser).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindUnauthorized, "invalid email or password")
	}
	if err != nil {
		return nil, storageFailure(err)
	}

	if !organiser.IsActive {
		return nil, newError(KindUnauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(organiser.PasswordHash), []byte(password)); err != nil {
		return nil, newError(KindUnauthorized, "invalid email or password")
	}

	return &organiser, nil
}

func (s *OrganiserService) Get(ctx context.Context, id uuid.UUID) (*models.Organiser, error) {
	var organiser models.Organiser
	if err := s.db.WithContext(ctx).First(&organiser, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "organiser not found")
	}
	return &organiser, nil
}

func (s *OrganiserService) List(ctx context.Context) ([]models.Organiser, error) {
	organisers := []models.Organiser{}
	if err := s.db.WithContext(ctx).Order("date_joined ASC").Find(&organisers).Error; err != nil {
		return nil, storageFailure(err)
	}
	return organisers, nil
}

func (s *OrganiserService) UpdateFCMToken(ctx context.Context, id uuid.UUID, token string) error {
	res := s.db.WithContext(ctx).Model(&models.Organiser{}).Where("id = ?", id).Update("fcm_token", token)
	if res.Error != nil {
		return storageFailure(res.Error)
	}
	if res.RowsAffected == 0 {
		return newError(KindNotFound, "organiser not found")
	}
	return nil
}

// Delete removes the organiser together with every story they own.
func (s *OrganiserService) Delete(ctx context.Context, id uuid.UUID) error {
	var storyIDs []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var organiser models.Organiser
		if err := tx.First(&organiser, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "organiser not found")
		}

		if err := tx.Model(&models.Story{}).Where("organiser_id = ?", id).Pluck("id", &storyIDs).Error; err != nil {
			return storageFailure(err)
		}
		if err := deleteStories(tx, storyIDs); err != nil {
			return err
		}
		if err := tx.Delete(&organiser).Error; err != nil {
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
