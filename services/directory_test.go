package services

import (
	"context"
	"testing"
	"time"
	"topper-backend/models"
	"topper-backend/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	in := RegisterOrganiserInput{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     " Grace@Navy.mil ",
		Password:  "cobol-forever",
	}
	organiser, err := e.organisers.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "grace@navy.mil", organiser.Email)
	assert.NotEqual(t, in.Password, organiser.PasswordHash)

	_, err = e.organisers.Register(ctx, in)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = e.organisers.Register(ctx, RegisterOrganiserInput{FirstName: "x", LastName: "y", Email: "bad", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := e.organisers.Authenticate(ctx, "GRACE@navy.mil", "cobol-forever")
	require.NoError(t, err)
	assert.Equal(t, organiser.ID, got.ID)

	_, err = e.organisers.Authenticate(ctx, "grace@navy.mil", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.organisers.Authenticate(ctx, "nobody@navy.mil", "cobol-forever")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, e.db.Model(&models.Organiser{}).Where("id = ?", organiser.ID).Update("is_active", false).Error)
	_, err = e.organisers.Authenticate(ctx, "grace@navy.mil", "cobol-forever")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSenderGetOrCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.senders.GetOrCreate(ctx, "A@X.com", "")
	require.NoError(t, err)
	assert.Nil(t, first.Name)

	named, err := e.senders.GetOrCreate(ctx, "a@x.com", "Aunt A")
	require.NoError(t, err)
	assert.Equal(t, first.ID, named.ID)
	require.NotNil(t, named.Name)
	assert.Equal(t, "Aunt A", *named.Name)

	// An existing name is not overwritten.
	again, err := e.senders.GetOrCreate(ctx, "a@x.com", "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, "Aunt A", *again.Name)

	_, err = e.senders.GetOrCreate(ctx, "not-an-email", "")
	assert.ErrorIs(t, err, ErrValidation)

	senders, err := e.senders.List(ctx)
	require.NoError(t, err)
	assert.Len(t, senders, 1)
}

func TestStoryCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organiser := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	reveal := time.Date(2030, 2, 14, 0, 0, 0, 0, time.UTC)

	story, err := e.stories.Create(ctx, organiser.ID, CreateStoryInput{
		Title:            "Anniversary",
		MainMessage:      "Ten years!",
		RevealDate:       reveal,
		TopperIdentifier: " TOP-100 ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMaxSenders, story.MaxSenders)
	assert.Equal(t, "TOP-100", story.TopperIdentifier)

	_, err = e.stories.Create(ctx, organiser.ID, CreateStoryInput{
		Title: "Copy", MainMessage: "m", RevealDate: reveal, TopperIdentifier: "TOP-100",
	})
	assert.ErrorIs(t, err, ErrDuplicateTopper)

	_, err = e.stories.Create(ctx, uuid.New(), CreateStoryInput{
		Title: "Orphan", MainMessage: "m", RevealDate: reveal, TopperIdentifier: "TOP-101",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.stories.Create(ctx, organiser.ID, CreateStoryInput{MainMessage: "m", RevealDate: reveal, TopperIdentifier: "TOP-102"})
	assert.ErrorIs(t, err, ErrValidation)

	byTopper, err := e.stories.GetByTopper(ctx, "TOP-100")
	require.NoError(t, err)
	assert.Equal(t, story.ID, byTopper.ID)
}

func TestParseRevealDate(t *testing.T) {
	d, err := ParseRevealDate("2030-02-14")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = ParseRevealDate("14/02/2030")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoryUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateTestOrganiser(t, e.db, "o@x.com")
	other := testutil.CreateTestOrganiser(t, e.db, "other@x.com")
	story := testutil.CreateTestStory(t, e.db, owner.ID, "TOP-UPD", 3)

	for _, email := range []string{"a@x.com", "b@x.com"} {
		sender := testutil.CreateTestSender(t, e.db, email)
		_, err := e.invitations.Invite(ctx, story.ID, sender.ID)
		require.NoError(t, err)
	}

	title := "Renamed"
	updated, err := e.stories.Update(ctx, owner.ID, story.ID, UpdateStoryInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "TOP-UPD", updated.TopperIdentifier)

	_, err = e.stories.Update(ctx, other.ID, story.ID, UpdateStoryInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	one := 1
	_, err = e.stories.Update(ctx, owner.ID, story.ID, UpdateStoryInput{MaxSenders: &one})
	assert.ErrorIs(t, err, ErrInvalidState)

	two := 2
	updated, err = e.stories.Update(ctx, owner.ID, story.ID, UpdateStoryInput{MaxSenders: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxSenders)
}

func TestCascadeDeletes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	count := func(model interface{}) int64 {
		var n int64
		require.NoError(t, e.db.Model(model).Count(&n).Error)
		return n
	}

	t.Run("story", func(t *testing.T) {
		owner := testutil.CreateTestOrganiser(t, e.db, "story-owner@x.com")
		story := testutil.CreateTestStory(t, e.db, owner.ID, "TOP-CAS-1", 6)
		inv := e.acceptedInvitation(t, story.ID, "cas1@x.com")
		_, err := e.contributions.Submit(ctx, inv.ID, SubmitInput{Kind: models.KindText, Content: strPtr("x")})
		require.NoError(t, err)

		other := testutil.CreateTestOrganiser(t, e.db, "not-owner@x.com")
		assert.ErrorIs(t, e.stories.Delete(ctx, other.ID, story.ID), ErrForbidden)

		require.NoError(t, e.stories.Delete(ctx, owner.ID, story.ID))
		assert.Zero(t, count(&models.Contribution{}))
		assert.Zero(t, count(&models.StorySender{}))
		_, err = e.stories.Get(ctx, story.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("organiser", func(t *testing.T) {
		owner := testutil.CreateTestOrganiser(t, e.db, "org-owner@x.com")
		story := testutil.CreateTestStory(t, e.db, owner.ID, "TOP-CAS-2", 6)
		inv := e.acceptedInvitation(t, story.ID, "cas2@x.com")
		_, err := e.contributions.Submit(ctx, inv.ID, SubmitInput{Kind: models.KindText, Content: strPtr("x")})
		require.NoError(t, err)

		require.NoError(t, e.organisers.Delete(ctx, owner.ID))
		assert.Zero(t, count(&models.Contribution{}))
		assert.Zero(t, count(&models.StorySender{}))
		_, err = e.stories.Get(ctx, story.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sender", func(t *testing.T) {
		owner := testutil.CreateTestOrganiser(t, e.db, "snd-owner@x.com")
		story := testutil.CreateTestStory(t, e.db, owner.ID, "TOP-CAS-3", 6)
		inv := e.acceptedInvitation(t, story.ID, "cas3@x.com")
		_, err := e.contributions.Submit(ctx, inv.ID, SubmitInput{Kind: models.KindText, Content: strPtr("x")})
		require.NoError(t, err)

		require.NoError(t, e.senders.Delete(ctx, inv.SenderID))
		assert.Zero(t, count(&models.Contribution{}))
		assert.Zero(t, count(&models.StorySender{}))

		_, err = e.stories.Get(ctx, story.ID)
		assert.NoError(t, err, "the story itself survives")
	})
}
