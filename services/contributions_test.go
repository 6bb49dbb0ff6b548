package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"topper-backend/models"
	"topper-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_StateGating(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	story := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-GATE", 6)
	text := SubmitInput{Kind: models.KindText, Content: strPtr("Congratulations!")}

	for _, status := range []models.InvitationStatus{models.InvitationPending, models.InvitationSent, models.InvitationRevoked} {
		t.Run(string(status)+" is rejected", func(t *testing.T) {
			sender := testutil.CreateTestSender(t, e.db, string(status)+"@x.com")
			inv := testutil.CreateTestInvitation(t, e.db, story.ID, sender.ID, status)

			_, err := e.contributions.Submit(ctx, inv.ID, text)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}

	t.Run("accepted flips to uploaded, uploaded stays uploaded", func(t *testing.T) {
		inv := e.acceptedInvitation(t, story.ID, "a@x.com")

		c, err := e.contributions.Submit(ctx, inv.ID, text)
		require.NoError(t, err)
		assert.Equal(t, models.ModerationPending, c.Status)

		after, err := e.invitations.Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InvitationUploaded, after.InvitationStatus)

		_, err = e.contributions.Submit(ctx, inv.ID, SubmitInput{Kind: models.KindVideo, YouTubeVideoID: strPtr("dQw4w9WgXcQ")})
		require.NoError(t, err)

		after, err = e.invitations.Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InvitationUploaded, after.InvitationStatus)
	})
}

func TestSubmit_RejectedPayloadWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	story := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-PAY", 6)
	inv := e.acceptedInvitation(t, story.ID, "a@x.com")

	tests := []struct {
		name string
		in   SubmitInput
	}{
		{"image without url", SubmitInput{Kind: models.KindImage}},
		{"text without content", SubmitInput{Kind: models.KindText}},
		{"unknown kind", SubmitInput{Kind: "audio", Content: strPtr("x")}},
		{"caption too long", SubmitInput{Kind: models.KindText, Content: strPtr("x"), Caption: strPtr(strings.Repeat("c", 501))}},
		{"youtube id too long", SubmitInput{Kind: models.KindVideo, YouTubeVideoID: strPtr(strings.Repeat("y", 21))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.contributions.Submit(ctx, inv.ID, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	var count int64
	e.db.Model(&models.Contribution{}).Count(&count)
	assert.Zero(t, count)

	after, err := e.invitations.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, after.InvitationStatus)
}

func TestSubmitWithToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	story := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-SWT", 6)
	inv := e.acceptedInvitation(t, story.ID, "a@x.com")

	c, err := e.contributions.SubmitWithToken(ctx, *inv.InvitationToken, SubmitInput{Kind: models.KindText, Content: strPtr("hi")})
	require.NoError(t, err)
	assert.Equal(t, inv.ID, c.StorySenderID)

	_, err = e.contributions.SubmitWithToken(ctx, "bogus", SubmitInput{Kind: models.KindText, Content: strPtr("hi")})
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSubmit_PushesStoryOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	require.NoError(t, e.organisers.UpdateFCMToken(ctx, organiser.ID, "device-1"))
	story := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-PUSH", 6)
	inv := e.acceptedInvitation(t, story.ID, "a@x.com")

	e.pusher.err = errors.New("fcm unavailable")
	_, err := e.contributions.Submit(ctx, inv.ID, SubmitInput{Kind: models.KindText, Content: strPtr("hi")})
	require.NoError(t, err, "push failures must not fail the submission")

	require.Len(t, e.pusher.sent, 1)
	assert.Equal(t, "device-1", e.pusher.sent[0].token)
	assert.Contains(t, e.pusher.sent[0].body, "Test Story")
	assert.Equal(t, story.ID.String(), e.pusher.sent[0].data["story_id"])
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	story := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-UP", 6)
	inv := e.acceptedInvitation(t, story.ID, "a@x.com")
	token := *inv.InvitationToken

	t.Run("stores bytes and records the url", func(t *testing.T) {
		c, err := e.contributions.Upload(ctx, token, UploadInput{
			Kind:        models.KindImage,
			Filename:    "Beach.JPG",
			ContentType: "image/jpeg",
			Size:        4,
			Body:        strings.NewReader("jpeg"),
			Caption:     strPtr("Summer 2019"),
		})
		require.NoError(t, err)
		require.NotNil(t, c.MediaURL)
		assert.True(t, strings.HasPrefix(*c.MediaURL, "https://cdn.test/contributions/images/"))
		assert.True(t, strings.HasSuffix(*c.MediaURL, ".jpg"))
		assert.Len(t, e.blobs.objects, 1)
	})

	t.Run("text cannot be uploaded", func(t *testing.T) {
		_, err := e.contributions.Upload(ctx, token, UploadInput{Kind: models.KindText, Body: strings.NewReader("x")})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("blob store failure", func(t *testing.T) {
		e.blobs.putErr = errors.New("bucket gone")
		defer func() { e.blobs.putErr = nil }()

		_, err := e.contributions.Upload(ctx, token, UploadInput{Kind: models.KindVideo, Filename: "clip.mp4", ContentType: "video/mp4", Body: strings.NewReader("mp4")})
		assert.ErrorIs(t, err, ErrStorageFailure)
	})

	t.Run("sent invitation uploads nothing", func(t *testing.T) {
		sender := testutil.CreateTestSender(t, e.db, "b@x.com")
		sent := testutil.CreateTestInvitation(t, e.db, story.ID, sender.ID, models.InvitationSent)
		before := len(e.blobs.objects)

		_, err := e.contributions.Upload(ctx, *sent.InvitationToken, UploadInput{Kind: models.KindImage, Filename: "x.png", Body: strings.NewReader("png")})
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Len(t, e.blobs.objects, before)
	})
}

func TestModerate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	other := testutil.CreateTestOrganiser(t, e.db, "other@x.com")
	story := testutil.CreateTestStory(t, e.db, owner.ID, "TOP-MOD", 6)
	inv := e.acceptedInvitation(t, story.ID, "a@x.com")

	c, err := e.contributions.Submit(ctx, inv.ID, SubmitInput{Kind: models.KindText, Content: strPtr("hi")})
	require.NoError(t, err)

	_, err = e.contributions.Moderate(ctx, owner.ID, c.ID, "delete")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.contributions.Moderate(ctx, other.ID, c.ID, "approve")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.contributions.Moderate(ctx, owner.ID, c.ID+1000, "approve")
	assert.ErrorIs(t, err, ErrNotFound)

	approved, err := e.contributions.Moderate(ctx, owner.ID, c.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, approved.Status)

	time.Sleep(5 * time.Millisecond)
	again, err := e.contributions.Moderate(ctx, owner.ID, c.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, again.Status)
	assert.True(t, again.UpdatedAt.Equal(approved.UpdatedAt), "repeating a decision must not touch updated_at")

	ignored, err := e.contributions.Moderate(ctx, owner.ID, c.ID, "ignore")
	require.NoError(t, err)
	assert.Equal(t, models.ModerationIgnored, ignored.Status)
	assert.False(t, ignored.UpdatedAt.Before(approved.UpdatedAt))
}

func TestListForStory_Ordering(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	story := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-ORD", 6)
	otherStory := testutil.CreateTestStory(t, e.db, organiser.ID, "TOP-ORD-2", 6)
	a := e.acceptedInvitation(t, story.ID, "a@x.com")
	b := e.acceptedInvitation(t, story.ID, "b@x.com")
	elsewhere := e.acceptedInvitation(t, otherStory.ID, "c@x.com")

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Contribution{
		{StorySenderID: b.ID, Kind: models.KindText, Content: strPtr("third"), CreatedAt: base.Add(time.Minute)},
		{StorySenderID: a.ID, Kind: models.KindText, Content: strPtr("first"), CreatedAt: base},
		{StorySenderID: b.ID, Kind: models.KindImage, MediaURL: strPtr("u"), CreatedAt: base}, // same instant, inserted later
		{StorySenderID: elsewhere.ID, Kind: models.KindText, Content: strPtr("other story"), CreatedAt: base},
	}
	for i := range rows {
		rows[i].Status = models.ModerationPending
		require.NoError(t, e.db.Create(&rows[i]).Error)
	}

	list, err := e.contributions.ListForStory(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, rows[1].ID, list[0].ID)
	assert.Equal(t, rows[2].ID, list[1].ID)
	assert.Equal(t, rows[0].ID, list[2].ID)
}
