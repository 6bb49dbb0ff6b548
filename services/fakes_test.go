package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
	"topper-backend/models"
	"topper-backend/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	mu          sync.Mutex
	invitations []InvitationEmail
	reminders   []InvitationEmail
	err         error
}

func (f *fakeNotifier) NotifyInvitation(_ context.Context, e InvitationEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invitations = append(f.invitations, e)
	return f.err
}

func (f *fakeNotifier) NotifyReminder(_ context.Context, e InvitationEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, e)
	return f.err
}

type pushed struct {
	token, title, body string
	data               map[string]string
}

type fakePusher struct {
	mu   sync.Mutex
	sent []pushed
	err  error
}

func (f *fakePusher) NotifyOrganiser(_ context.Context, token, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, pushed{token, title, body, data})
	return f.err
}

type fakeBlobs struct {
	objects map[string][]byte
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = b
	return "https://cdn.test/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(f.objects, key)
	return nil
}

// env wires every service against one fresh database.
type env struct {
	db            *gorm.DB
	notifier      *fakeNotifier
	pusher        *fakePusher
	blobs         *fakeBlobs
	organisers    *OrganiserService
	senders       *SenderService
	stories       *StoryService
	invitations   *InvitationService
	contributions *ContributionService
	reveal        *RevealService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	testutil.SetupTestConfig(t)
	db := testutil.SetupTestDB(t)

	e := &env{
		db:       db,
		notifier: &fakeNotifier{},
		pusher:   &fakePusher{},
		blobs:    newFakeBlobs(),
	}
	e.organisers = NewOrganiserService(db, nil)
	e.senders = NewSenderService(db, nil)
	e.stories = NewStoryService(db, nil)
	e.invitations = NewInvitationService(db, e.notifier, nil)
	e.contributions = NewContributionService(db, e.blobs, e.pusher, nil)
	e.reveal = NewRevealService(db, nil)
	return e
}

// acceptedInvitation returns an invitation that has been issued a token and accepted.
func (e *env) acceptedInvitation(t *testing.T, storyID uuid.UUID, email string) *models.StorySender {
	t.Helper()
	ctx := context.Background()

	sender := testutil.CreateTestSender(t, e.db, email)
	inv, err := e.invitations.Invite(ctx, storyID, sender.ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	token, _, err := e.invitations.IssueToken(ctx, inv.ID, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	accepted, err := e.invitations.Accept(ctx, token)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return accepted
}

func strPtr(s string) *string { return &s }
