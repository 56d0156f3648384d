package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/recruitment-api/internal/model"
)

// Stack is every service wired to the in-memory stores, for tests that
// drive the HTTP layer from outside the package.
type Stack struct {
	Secret       string
	Accounts     AccountStore
	Identity     *IdentityService
	Listings     *ListingCatalog
	Applications *ApplicationWorkflow
	Content      *ContentCatalog
}

func NewStack() *Stack {
	cfg := testConfig()
	accounts, objects := newFakeAccounts(), newFakeObjects()
	listings, taxonomy := newFakeListings(), &fakeTaxonomy{}
	return &Stack{
		Secret:       cfg.JWTSecret,
		Accounts:     accounts,
		Identity:     NewIdentityService(accounts, newFakeTokens(), cfg),
		Listings:     NewListingCatalog(listings, objects),
		Applications: NewApplicationWorkflow(newFakeApplications(), listings, objects, &fakePublisher{}),
		Content:      NewContentCatalog(newFakePosts(taxonomy), newFakeAuthors(), taxonomy, objects),
	}
}

// SignIn stores an active account with the given flags and returns it
// with an access token.
func (s *Stack) SignIn(t *testing.T, email string, staff bool) (model.Account, string) {
	t.Helper()
	a := model.Account{Email: email, FirstName: "Test", IsActive: true, IsStaff: staff}
	require.NoError(t, s.Accounts.Create(context.Background(), &a))
	sess, err := s.Identity.IssueTokens(context.Background(), a)
	require.NoError(t, err)
	return a, sess.Access.Token
}

func ListingInputFor(title, company string) ListingInput { return listingInput(title, company) }
