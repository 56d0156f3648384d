package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/recruitment-api/internal/config"
	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/utils"
)

func testConfig() config.Config {
	return config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4}
}

func newIdentity() (*IdentityService, *fakeAccounts, *fakeTokens) {
	accounts, tokens := newFakeAccounts(), newFakeTokens()
	return NewIdentityService(accounts, tokens, testConfig()), accounts, tokens
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:           email,
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		PhoneNumber:     "+44 20 1234",
	}
}

func requireKind(t *testing.T, err error, k Kind) *Error {
	t.Helper()
	require.Error(t, err)
	se, ok := err.(*Error)
	require.True(t, ok, "want *Error, got %T: %v", err, err)
	require.Equal(t, k, se.Kind, "unexpected kind for %v", err)
	return se
}

func TestRegisterNormalisesEmailAndRejectsDuplicates(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()

	a, err := svc.Register(ctx, registerInput("  Ada@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.True(t, a.IsActive)
	assert.Equal(t, model.RoleMember, a.Role())
	assert.NotEqual(t, "s3cret-pass", a.PasswordHash)

	_, err = svc.Register(ctx, registerInput("ADA@example.com"))
	se := requireKind(t, err, KindDuplicate)
	assert.Equal(t, "email_taken", se.Code)
	assert.Contains(t, se.Fields, "email")
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newIdentity()
	in := registerInput("not-an-email")
	in.PasswordConfirm = "different"
	in.FirstName = "   "

	_, err := svc.Register(context.Background(), in)
	se := requireKind(t, err, KindValidation)
	assert.Contains(t, se.Fields, "email")
	assert.Contains(t, se.Fields, "password2")
	assert.Contains(t, se.Fields, "first_name")
}

func TestConcurrentRegistrationCreatesOneAccount(t *testing.T) {
	svc, accounts, _ := newIdentity()
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), registerInput("race@example.com"))
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
	assert.Equal(t, int32(7), dup.Load())
	assert.Len(t, accounts.rows, 1)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("bob@example.com"))
	require.NoError(t, err)

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	_, errWrong := svc.Login(ctx, "bob@example.com", "wrong-pass")
	_, err = svc.SetActive(ctx, a.ID, false)
	require.NoError(t, err)
	_, errInactive := svc.Login(ctx, "bob@example.com", "s3cret-pass")

	for _, err := range []error{errUnknown, errWrong, errInactive} {
		se := requireKind(t, err, KindAuth)
		assert.Equal(t, "invalid_credentials", se.Code)
		assert.Equal(t, "Incorrect Credentials", se.Message)
	}
}

func TestLoginIssuesVerifiableAccessToken(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("carol@example.com"))
	require.NoError(t, err)

	s, err := svc.Login(ctx, "CAROL@example.com", "s3cret-pass")
	require.NoError(t, err)
	claims, err := utils.ParseAccessToken("test-secret", s.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.AccountID)
	assert.Equal(t, model.RoleMember, claims.Role)
	assert.NotEmpty(t, s.Refresh.Raw)
}

func TestRefreshRotatesAndRejectsReuse(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput("dan@example.com"))
	require.NoError(t, err)
	first, err := svc.Login(ctx, "dan@example.com", "s3cret-pass")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh.Raw, second.Refresh.Raw)

	_, err = svc.Refresh(ctx, first.Refresh.Raw)
	requireKind(t, err, KindAuth)

	_, err = svc.Refresh(ctx, second.Refresh.Raw)
	require.NoError(t, err)
}

func TestConcurrentRefreshSucceedsOnce(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput("erin@example.com"))
	require.NoError(t, err)
	s, err := svc.Login(ctx, "erin@example.com", "s3cret-pass")
	require.NoError(t, err)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, s.Refresh.Raw); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestLogoutBlacklistsRefreshToken(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	_, err := svc.Register(ctx, registerInput("fay@example.com"))
	require.NoError(t, err)
	s, err := svc.Login(ctx, "fay@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, s.Refresh.Raw))
	_, err = svc.Refresh(ctx, s.Refresh.Raw)
	requireKind(t, err, KindAuth)
	requireKind(t, svc.Logout(ctx, s.Refresh.Raw), KindAuth)
	requireKind(t, svc.Logout(ctx, ""), KindValidation)
}

func TestDeactivationRevokesRefreshTokens(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("gus@example.com"))
	require.NoError(t, err)
	s, err := svc.Login(ctx, "gus@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, a.ID, false)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, s.Refresh.Raw)
	requireKind(t, err, KindAuth)
}

func TestSetRolesSuperuserImpliesStaff(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("hal@example.com"))
	require.NoError(t, err)

	a, err = svc.SetRoles(ctx, a.ID, false, true)
	require.NoError(t, err)
	assert.True(t, a.IsStaff)
	assert.Equal(t, model.RoleSuperuser, a.Role())

	_, err = svc.SetRoles(ctx, 999, true, false)
	requireKind(t, err, KindNotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newIdentity()
	ctx := context.Background()
	a, err := svc.Register(ctx, registerInput("ivy@example.com"))
	require.NoError(t, err)

	a, err = svc.UpdateProfile(ctx, a.ID, ProfileInput{FirstName: " Ivy ", LastName: "Chen", PhoneNumber: "555"})
	require.NoError(t, err)
	assert.Equal(t, "Ivy Chen", a.FullName())

	_, err = svc.UpdateProfile(ctx, a.ID, ProfileInput{FirstName: "", LastName: "Chen", PhoneNumber: "555"})
	requireKind(t, err, KindValidation)
}

func TestEnsureSuperuserIsIdempotent(t *testing.T) {
	svc, accounts, _ := newIdentity()
	ctx := context.Background()
	member, err := svc.Register(ctx, registerInput("root@example.com"))
	require.NoError(t, err)

	a, err := svc.EnsureSuperuser(ctx, "root@example.com", "another-pass")
	require.NoError(t, err)
	assert.Equal(t, member.ID, a.ID)
	assert.Equal(t, model.RoleSuperuser, a.Role())

	_, err = svc.EnsureSuperuser(ctx, "root@example.com", "another-pass")
	require.NoError(t, err)
	assert.Len(t, accounts.rows, 1)

	_, err = svc.Login(ctx, "root@example.com", "another-pass")
	require.NoError(t, err)

	fresh, err := svc.EnsureSuperuser(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	assert.True(t, fresh.IsSuperuser)
	assert.True(t, fresh.IsStaff)
}
