package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"topper-backend/config"
	"topper-backend/database"
	"topper-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const TestPassword = "correct-horse-battery"

// SetupTestDB opens a private in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// One connection keeps the in-memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// SetupTestConfig installs a config suitable for tests as config.AppConfig.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	prev := config.AppConfig
	config.AppConfig = &config.Config{
		Port:           "0",
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		SendGridFrom:   "noreply@test.local",
		AppName:        "Topper Test",
		AppURL:         "http://localhost:3000",
		InvitationTTL:  24 * time.Hour,
		BundleCacheTTL: time.Minute,
		GinMode:        "test",
	}
	t.Cleanup(func() { config.AppConfig = prev })
	return config.AppConfig
}

func CreateTestOrganiser(t *testing.T, db *gorm.DB, email string) *models.Organiser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	organiser := models.Organiser{
		FirstName:    "Olive",
		LastName:     "Organiser",
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := db.Create(&organiser).Error; err != nil {
		t.Fatalf("Failed to create test organiser: %v", err)
	}
	return &organiser
}

func CreateTestStory(t *testing.T, db *gorm.DB, organiserID uuid.UUID, topper string, maxSenders int) *models.Story {
	t.Helper()

	story := models.Story{
		OrganiserID:      organiserID,
		Title:            "Test Story",
		MainMessage:      "Happy days",
		RevealDate:       time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
		TopperIdentifier: topper,
		MaxSenders:       maxSenders,
	}
	if err := db.Create(&story).Error; err != nil {
		t.Fatalf("Failed to create test story: %v", err)
	}
	return &story
}

func CreateTestSender(t *testing.T, db *gorm.DB, email string) *models.Sender {
	t.Helper()

	sender := models.Sender{Email: email}
	if err := db.Create(&sender).Error; err != nil {
		t.Fatalf("Failed to create test sender: %v", err)
	}
	return &sender
}

// CreateTestInvitation inserts an invitation directly in the given status,
// with a live token for any status past pending.
func CreateTestInvitation(t *testing.T, db *gorm.DB, storyID, senderID uuid.UUID, status models.InvitationStatus) *models.StorySender {
	t.Helper()

	inv := models.StorySender{StoryID: storyID, SenderID: senderID, InvitationStatus: status}
	if status != models.InvitationPending && status != models.InvitationRevoked {
		token := "tok-" + uuid.NewString()
		expires := time.Now().Add(24 * time.Hour)
		inv.InvitationToken = &token
		inv.TokenExpiresAt = &expires
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("Failed to create test invitation: %v", err)
	}
	return &inv
}

func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Fatalf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// Envelope mirrors utils.APIResponse with a raw data field.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
	Kind    string            `json:"kind"`
}

// DecodeEnvelope parses the response and, when data is non-nil, its data field.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response: %v. Body: %s", err, w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("Failed to decode data: %v. Body: %s", err, w.Body.String())
		}
	}
	return env
}
