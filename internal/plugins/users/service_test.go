package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/identity/internal/plugins/users"
	"github.com/keyxmakerx/identity/internal/plugins/users/userstest"
)

const testSecret = "test-secret"

func newService(t *testing.T) (users.UserService, *userstest.Repository) {
	t.Helper()
	repo := userstest.NewRepository()
	return users.NewUserService(repo, users.NewHasher(testSecret)), repo
}

func register(t *testing.T, svc users.UserService, email, password string) *users.User {
	t.Helper()
	u, err := svc.Register(context.Background(), users.RegisterInput{
		Name: "Ann", Company: "Acme", Phone: "555", Email: email, Password: password,
	})
	require.NoError(t, err)
	return u
}

func TestRegister_CreatesInactiveNormalizedUser(t *testing.T) {
	svc, repo := newService(t)

	u := register(t, svc, "  Ann@Example.COM ", "longenough1")

	stored := repo.Get("ann@example.com")
	require.NotNil(t, stored)
	assert.False(t, stored.Active)
	assert.NotEmpty(t, stored.Subject)
	require.NotNil(t, stored.ActivateToken)
	assert.Equal(t, *u.ActivateToken, *stored.ActivateToken)
	assert.NotEqual(t, "longenough1", stored.PasswordHash)
}

func TestRegister_SanitizesProfile(t *testing.T) {
	svc, repo := newService(t)

	_, err := svc.Register(context.Background(), users.RegisterInput{
		Name: "<b>Ann</b>", Company: "Acme<script>x</script>", Phone: "555", Email: "a@b.com", Password: "longenough1",
	})
	require.NoError(t, err)

	stored := repo.Get("a@b.com")
	assert.Equal(t, "Ann", stored.Name)
	assert.Equal(t, "Acme", stored.Company)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "a@b.com", "longenough1")

	_, err := svc.Register(context.Background(), users.RegisterInput{
		Name: "Bo", Company: "Initech", Phone: "777", Email: "A@B.com ", Password: "longenough1",
	})
	assert.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestRegister_RejectsMarkupOnlyDetails(t *testing.T) {
	svc, repo := newService(t)

	_, err := svc.Register(context.Background(), users.RegisterInput{
		Name: "<b></b>", Company: "x", Phone: "<script>1</script>", Email: "a@b.com", Password: "longenough1",
	})

	assert.ErrorIs(t, err, users.ErrMissingField)
	assert.Nil(t, repo.Get("a@b.com"))
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	u := register(t, svc, " Mixed@Case.com", "longenough1")
	require.NoError(t, svc.Activate(context.Background(), "mixed@case.com", *u.ActivateToken))

	got, err := svc.Authenticate(context.Background(), "mixed@case.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, u.Subject, got.Subject)

	_, err = svc.Authenticate(context.Background(), "mixed@case.com", "wrong-password")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@case.com", "longenough1")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
}

func TestAuthenticate_InactiveAndDisabled(t *testing.T) {
	svc, repo := newService(t)
	hasher := users.NewHasher(testSecret)

	register(t, svc, "new@b.com", "longenough1")
	_, err := svc.Authenticate(context.Background(), "new@b.com", "longenough1")
	assert.ErrorIs(t, err, users.ErrInactive)

	// A wrong password on an inactive account does not reveal its state.
	_, err = svc.Authenticate(context.Background(), "new@b.com", "nope-nope")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	repo.Put(users.User{Subject: "sub-d", Email: "off@b.com", PasswordHash: hasher.Hash("longenough1"), Active: true, Disabled: true})
	_, err = svc.Authenticate(context.Background(), "off@b.com", "longenough1")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
}

func TestActivate_ConsumesToken(t *testing.T) {
	svc, repo := newService(t)
	u := register(t, svc, "a@b.com", "longenough1")
	token := *u.ActivateToken

	require.NoError(t, svc.Activate(context.Background(), "A@b.com", token))
	stored := repo.Get("a@b.com")
	assert.True(t, stored.Active)
	assert.Nil(t, stored.ActivateToken)

	assert.ErrorIs(t, svc.Activate(context.Background(), "a@b.com", token), users.ErrInvalidToken)
	assert.ErrorIs(t, svc.Activate(context.Background(), "a@b.com", ""), users.ErrInvalidToken)
}

func TestResetTokenRoundTrip(t *testing.T) {
	svc, repo := newService(t)
	register(t, svc, "a@b.com", "longenough1")
	before := repo.Get("a@b.com").PasswordHash

	u, err := svc.AssignResetToken(context.Background(), "a@b.com")
	require.NoError(t, err)
	code := *u.ResetPasswordToken

	require.NoError(t, svc.CheckResetCode(context.Background(), "a@b.com", code))
	assert.ErrorIs(t, svc.CheckResetCode(context.Background(), "a@b.com", "wrong"), users.ErrInvalidToken)

	require.NoError(t, svc.ChangePassword(context.Background(), "a@b.com", code, "brand-new-pass"))
	after := repo.Get("a@b.com")
	assert.Nil(t, after.ResetPasswordToken)
	assert.NotEqual(t, before, after.PasswordHash)

	// Replaying the consumed code fails with the wrong-code error.
	assert.ErrorIs(t, svc.ChangePassword(context.Background(), "a@b.com", code, "another-pass"), users.ErrInvalidToken)
	assert.ErrorIs(t, svc.CheckResetCode(context.Background(), "a@b.com", code), users.ErrInvalidToken)
}

func TestAssignResetToken_UnknownEmail(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.AssignResetToken(context.Background(), "ghost@b.com")
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestEmailAvailable(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "a@b.com", "longenough1")

	ok, err := svc.EmailAvailable(context.Background(), " A@B.COM")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.EmailAvailable(context.Background(), "c@d.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateDetails(t *testing.T) {
	svc, repo := newService(t)
	u := register(t, svc, "a@b.com", "longenough1")
	ctx := context.Background()

	require.NoError(t, svc.UpdateDetails(ctx, u.Subject, users.DetailsInput{Name: "Bo", Company: "Initech", Phone: "777"}))
	stored := repo.Get("a@b.com")
	assert.Equal(t, "Bo", stored.Name)
	assert.Equal(t, u.PasswordHash, stored.PasswordHash)

	err := svc.UpdateDetails(ctx, u.Subject, users.DetailsInput{
		Name: "Cy", Company: "Initech", Phone: "777", CurrentPassword: "wrong", NewPassword: "newpassword",
	})
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	assert.Equal(t, "Bo", repo.Get("a@b.com").Name, "nothing is written on a failed password check")

	require.NoError(t, svc.UpdateDetails(ctx, u.Subject, users.DetailsInput{
		Name: "Cy", Company: "Initech", Phone: "777", CurrentPassword: "longenough1", NewPassword: "newpassword",
	}))
	assert.True(t, users.NewHasher(testSecret).Verify("newpassword", repo.Get("a@b.com").PasswordHash))
}

func TestUpdateDetails_RejectsMarkupOnlyDetails(t *testing.T) {
	svc, repo := newService(t)
	u := register(t, svc, "a@b.com", "longenough1")

	err := svc.UpdateDetails(context.Background(), u.Subject, users.DetailsInput{
		Name: "Ann", Company: "<p></p>", Phone: "777",
	})

	assert.ErrorIs(t, err, users.ErrMissingField)
	assert.Equal(t, "Acme", repo.Get("a@b.com").Company)
}

// failingRepo returns an infrastructure error from every lookup.
type failingRepo struct {
	users.UserRepository
	err error
}

func (f failingRepo) FindByEmail(context.Context, string) (*users.User, error) { return nil, f.err }

func TestAuthenticate_PropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection refused")
	svc := users.NewUserService(failingRepo{err: boom}, users.NewHasher(testSecret))

	_, err := svc.Authenticate(context.Background(), "a@b.com", "longenough1")
	assert.ErrorIs(t, err, boom)
}
