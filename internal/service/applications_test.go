package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/queue"
)

type workflowFixture struct {
	listings     *fakeListings
	applications *fakeApplications
	objects      *fakeObjects
	events       *fakePublisher
	wf           *ApplicationWorkflow
	listing      model.Listing
}

func newWorkflow(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		listings:     newFakeListings(),
		applications: newFakeApplications(),
		objects:      newFakeObjects(),
		events:       &fakePublisher{},
	}
	f.wf = NewApplicationWorkflow(f.applications, f.listings, f.objects, f.events)
	l, err := NewListingCatalog(f.listings, f.objects).Create(context.Background(), listingInput("Go Developer", "Acme"))
	require.NoError(t, err)
	f.listing = l
	return f
}

func resume() *Upload {
	return &Upload{Body: strings.NewReader("%PDF-1.4 resume"), Size: 15, ContentType: "application/pdf", Filename: "cv.pdf"}
}

func applyInput(listingID uint64) ApplyInput {
	return ApplyInput{ListingID: listingID, CoverLetter: "Hire me.", YearsOfExperience: 3, LinkedInURL: "https://linkedin.com/in/ada"}
}

func TestApplyStoresResumeAndPublishes(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()

	a, err := f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, f.listing.Title, a.ListingTitle)
	assert.True(t, strings.HasPrefix(a.DocumentID, "resumes/"))
	assert.Equal(t, 1, f.objects.count())

	evs := f.events.all()
	require.Len(t, evs, 1)
	assert.Equal(t, queue.ApplicationSubmitted, evs[0].Type)
	assert.Equal(t, a.ID, evs[0].ApplicationID)
	assert.Equal(t, uint64(7), evs[0].AccountID)

	ok, got, err := f.wf.CheckApplied(ctx, 7, f.listing.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, a.ID, got.ID)
}

func TestApplyTwiceIsDuplicate(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()
	_, err := f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	require.NoError(t, err)

	_, err = f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	se := requireKind(t, err, KindDuplicate)
	assert.Equal(t, "You have already applied to this job.", se.Message)
	assert.Equal(t, 1, f.objects.count())
}

func TestConcurrentApplyOneWins(t *testing.T) {
	f := newWorkflow(t)
	// Hold every request at the insert so all of them pass the early check.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.applications.createHook = func() {
		arrived.Done()
		arrived.Wait()
	}

	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wf.Apply(context.Background(), 9, applyInput(f.listing.ID), resume())
			switch {
			case err == nil:
				ok.Add(1)
			case KindOf(err) == KindDuplicate:
				dup.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), dup.Load())
	assert.Equal(t, 1, f.applications.count())
	assert.Equal(t, 1, f.objects.count(), "loser's upload is removed")
}

func TestApplyUploadFailureWritesNothing(t *testing.T) {
	f := newWorkflow(t)
	f.objects.putErr = errors.New("bucket offline")

	_, err := f.wf.Apply(context.Background(), 7, applyInput(f.listing.ID), resume())
	requireKind(t, err, KindUnavailable)
	assert.Equal(t, 0, f.applications.count())
	assert.Empty(t, f.events.all())
}

func TestApplyPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newWorkflow(t)
	f.events.err = errors.New("broker down")

	_, err := f.wf.Apply(context.Background(), 7, applyInput(f.listing.ID), resume())
	require.NoError(t, err)
	assert.Equal(t, 1, f.applications.count())
}

func TestApplyValidation(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()

	_, err := f.wf.Apply(ctx, 7, applyInput(f.listing.ID), nil)
	se := requireKind(t, err, KindValidation)
	assert.Contains(t, se.Fields, "resume")

	in := applyInput(f.listing.ID)
	in.CoverLetter = strings.Repeat("x", 10001)
	in.YearsOfExperience = -1
	in.PortfolioURL = "not a url"
	_, err = f.wf.Apply(ctx, 7, in, resume())
	se = requireKind(t, err, KindValidation)
	assert.Contains(t, se.Fields, "cover_letter")
	assert.Contains(t, se.Fields, "years_of_experience")
	assert.Contains(t, se.Fields, "portfolio_url")
}

func TestApplyWithoutCoverLetterOrExperience(t *testing.T) {
	f := newWorkflow(t)

	a, err := f.wf.Apply(context.Background(), 7, ApplyInput{ListingID: f.listing.ID}, resume())
	require.NoError(t, err)
	assert.Empty(t, a.CoverLetter)
	assert.Zero(t, a.YearsOfExperience)
}

func TestApplyToInactiveOrMissingListing(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()
	require.NoError(t, f.listings.SetActive(ctx, f.listing.ID, false))

	_, err := f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	requireKind(t, err, KindNotFound)
	_, err = f.wf.Apply(ctx, 7, applyInput(4040), resume())
	requireKind(t, err, KindNotFound)
	assert.Equal(t, 0, f.objects.count())

	_, _, err = f.wf.CheckApplied(ctx, 7, f.listing.ID)
	requireKind(t, err, KindNotFound)
}

func TestSetStatusPublishesTransition(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()
	a, err := f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	require.NoError(t, err)

	u, err := f.wf.SetStatus(ctx, a.ID, "shortlisted")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, u.Status)

	// Any status may follow any other.
	u, err = f.wf.SetStatus(ctx, a.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, u.Status)

	evs := f.events.all()
	require.Len(t, evs, 3)
	assert.Equal(t, queue.ApplicationStatusChanged, evs[1].Type)
	assert.Equal(t, "pending", evs[1].PreviousStatus)
	assert.Equal(t, "accepted", evs[1].Status)

	_, err = f.wf.SetStatus(ctx, a.ID, "hired")
	requireKind(t, err, KindValidation)
	_, err = f.wf.SetStatus(ctx, 999, "reviewed")
	requireKind(t, err, KindNotFound)
}

func TestListsAndAppliedAmong(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()
	other, err := NewListingCatalog(f.listings, f.objects).Create(ctx, listingInput("SRE", "Acme"))
	require.NoError(t, err)

	_, err = f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	require.NoError(t, err)
	_, err = f.wf.Apply(ctx, 8, applyInput(f.listing.ID), resume())
	require.NoError(t, err)

	mine, err := f.wf.ListMine(ctx, 7, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)

	all, err := f.wf.ListForListing(ctx, f.listing.ID, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
	none, err := f.wf.ListForListing(ctx, f.listing.ID, "rejected", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, none.Total)

	m, err := f.wf.AppliedAmong(ctx, 7, []uint64{f.listing.ID, other.ID})
	require.NoError(t, err)
	assert.True(t, m[f.listing.ID])
	assert.False(t, m[other.ID])

	m, err = f.wf.AppliedAmong(ctx, 0, []uint64{f.listing.ID})
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestDocumentURLPermissions(t *testing.T) {
	f := newWorkflow(t)
	ctx := context.Background()
	a, err := f.wf.Apply(ctx, 7, applyInput(f.listing.ID), resume())
	require.NoError(t, err)

	url, err := f.wf.DocumentURL(ctx, a.ID, 7, model.RoleMember)
	require.NoError(t, err)
	assert.Contains(t, url, "dl=true")

	_, err = f.wf.DocumentURL(ctx, a.ID, 8, model.RoleMember)
	requireKind(t, err, KindPermission)

	_, err = f.wf.DocumentURL(ctx, a.ID, 1, model.RoleStaff)
	require.NoError(t, err)

	require.NoError(t, f.objects.Delete(ctx, a.DocumentID))
	_, err = f.wf.DocumentURL(ctx, a.ID, 7, model.RoleMember)
	requireKind(t, err, KindNotFound)
}
