package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectbuzz/connectbuzz/models"
)

func TestRegisterValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		in  RegisterInput
		msg string
	}{
		{RegisterInput{}, "Name is required"},
		{RegisterInput{Name: "Ann"}, "Email is required"},
		{RegisterInput{Name: "Ann", Email: "a@x.com"}, "Password is required and it should at least contain 6 character"},
		{RegisterInput{Name: "Ann", Email: "a@x.com", Password: "12345", Secret: "blue"}, "Password is required and it should at least contain 6 character"},
		{RegisterInput{Name: "Ann", Email: "a@x.com", Password: "123456"}, "Secret Message is required"},
	}
	for _, c := range cases {
		requireKind(t, env.identity.Register(ctx, c.in), KindValidation, c.msg)
	}
	_, err := env.users.FindByEmail(ctx, "a@x.com")
	assert.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := RegisterInput{Name: "Ann", Email: "a@x.com", Password: "secret1", Secret: "blue"}
	require.NoError(t, env.identity.Register(ctx, in))
	requireKind(t, env.identity.Register(ctx, in), KindConflict, "User is already registered")

	res, err := env.identity.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", res.User.Name)
	assert.Len(t, res.User.Username, 10)
	assert.Equal(t, models.RoleSubscriber, res.User.Role)

	claims, err := env.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "secret")
	assert.NotContains(t, string(body), res.User.PasswordHash)

	_, err = env.identity.Login(ctx, "nobody@x.com", "secret1")
	requireKind(t, err, KindNotFound, "User is not registered")
	_, err = env.identity.Login(ctx, "a@x.com", "wrong-pass")
	requireKind(t, err, KindUnauthorized, "Wrong Password")
}

func TestRegisterAdminEmail(t *testing.T) {
	env := newTestEnv(t)
	admin := env.register(t, "admin")
	assert.True(t, admin.IsAdmin())
}

func TestRecoverySecretIsHashed(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "ann")
	assert.NotEqual(t, "blue", u.SecretHash)
	assert.NotEmpty(t, u.SecretHash)
}

func TestForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "ann")

	_, err := env.identity.ForgotPassword(ctx, "ann@x.com", "short", "blue")
	requireKind(t, err, KindValidation, "New Password is required and should be minimum of 6 character")
	_, err = env.identity.ForgotPassword(ctx, "ann@x.com", "newsecret", "")
	requireKind(t, err, KindValidation, "Secret answer is required")
	_, err = env.identity.ForgotPassword(ctx, "ann@x.com", "newsecret", "red")
	requireKind(t, err, KindNotFound, "User is not registered with this email or the secret answer is wrong.")
	_, err = env.identity.ForgotPassword(ctx, "bob@x.com", "newsecret", "blue")
	requireKind(t, err, KindNotFound, "User is not registered with this email or the secret answer is wrong.")

	msg, err := env.identity.ForgotPassword(ctx, "ann@x.com", "newsecret", "blue")
	require.NoError(t, err)
	assert.Equal(t, "Now you can login with your new password", msg)

	_, err = env.identity.Login(ctx, "ann@x.com", "secret1")
	requireKind(t, err, KindUnauthorized, "")
	_, err = env.identity.Login(ctx, "ann@x.com", "newsecret")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann")
	bob := env.register(t, "bob")

	res, err := env.identity.UpdateProfile(ctx, ann, ProfileInput{
		About:    "hello there",
		Password: "abc",
		Image:    &models.Image{URL: "http://img/a.png", PublicID: "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Password is required and should atleast contain more than 6 character", res.PasswordError)
	assert.Equal(t, "hello there", res.User.About)
	assert.Equal(t, "a", res.User.Image.PublicID)
	assert.Equal(t, "ann", res.User.Name, "empty fields are ignored")

	// the rejected password did not change the credentials
	_, err = env.identity.Login(ctx, "ann@x.com", "secret1")
	require.NoError(t, err)

	_, err = env.identity.UpdateProfile(ctx, ann, ProfileInput{Username: bob.Username})
	requireKind(t, err, KindConflict, "Username already taken")

	res, err = env.identity.UpdateProfile(ctx, ann, ProfileInput{Username: "ann_new", Password: "longer-pass"})
	require.NoError(t, err)
	assert.Empty(t, res.PasswordError)
	assert.Equal(t, "ann_new", res.User.Username)
	_, err = env.identity.Login(ctx, "ann@x.com", "longer-pass")
	require.NoError(t, err)
}

func TestFollowUnfollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann")
	bob := env.register(t, "bob")

	before := env.reload(t, ann).Following

	got, err := env.identity.Follow(ctx, ann, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, got.Following)

	got, err = env.identity.Follow(ctx, ann, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, got.Following, "following twice does not duplicate")
	assert.Equal(t, []string{ann.ID}, env.reload(t, bob).Followers)

	got, err = env.identity.Unfollow(ctx, ann, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, before, got.Following)
	assert.Empty(t, env.reload(t, bob).Followers)

	_, err = env.identity.Follow(ctx, ann, ann.ID)
	requireKind(t, err, KindValidation, "")
	_, err = env.identity.Follow(ctx, ann, "")
	requireKind(t, err, KindValidation, "")
	_, err = env.identity.Follow(ctx, ann, "missing")
	requireKind(t, err, KindNotFound, "")
}

func TestRelationLists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann")
	bob := env.register(t, "bob")
	cat := env.register(t, "cat")

	_, err := env.identity.Follow(ctx, ann, bob.ID)
	require.NoError(t, err)
	_, err = env.identity.Follow(ctx, cat, ann.ID)
	require.NoError(t, err)

	ann = env.reload(t, ann)
	people, err := env.identity.ListDiscoverable(ctx, ann)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, cat.ID, people[0].ID)

	following, err := env.identity.ListFollowing(ctx, ann)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, bob.ID, following[0].ID)

	followers, err := env.identity.ListFollowers(ctx, ann)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, cat.ID, followers[0].ID)
}

func TestSearchAndLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "Annabel")
	env.register(t, "bob")

	users, err := env.identity.Search(ctx, "ANNA")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, ann.ID, users[0].ID)

	users, err = env.identity.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = env.identity.Search(ctx, ".*")
	require.NoError(t, err)
	assert.Empty(t, users)

	got, err := env.identity.GetByUsername(ctx, ann.Username)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)

	_, err = env.identity.GetByUsername(ctx, "nobody")
	requireKind(t, err, KindNotFound, "")
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann")

	got, err := env.identity.CurrentUser(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.Email, got.Email)

	_, err = env.identity.CurrentUser(ctx, "gone")
	requireKind(t, err, KindUnauthenticated, "")
}

func TestOAuthSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann")

	res, err := env.identity.OAuthSignIn(ctx, OAuthProfile{Email: "ann@x.com", Name: "Ann Hub"})
	require.NoError(t, err)
	assert.Equal(t, ann.ID, res.User.ID)

	res, err = env.identity.OAuthSignIn(ctx, OAuthProfile{Email: "new@x.com", AvatarURL: "http://a/b.png"})
	require.NoError(t, err)
	assert.Equal(t, "new", res.User.Name)
	assert.Len(t, res.User.Username, 10)
	assert.Equal(t, "http://a/b.png", res.User.Image.URL)

	_, err = env.identity.OAuthSignIn(ctx, OAuthProfile{})
	requireKind(t, err, KindValidation, "")
}

func TestAccessChecks(t *testing.T) {
	owner := &models.User{ID: "u1", Role: models.RoleSubscriber}
	other := &models.User{ID: "u2", Role: models.RoleSubscriber}
	admin := &models.User{ID: "u3", Role: models.RoleAdmin}

	assert.NoError(t, AuthorizeOwnerOrAdmin("u1", owner))
	assert.NoError(t, AuthorizeOwnerOrAdmin("u1", admin))
	requireKind(t, AuthorizeOwnerOrAdmin("u1", other), KindForbidden, "")
	requireKind(t, AuthorizeOwnerOrAdmin("u1", nil), KindUnauthenticated, "")

	assert.NoError(t, RequireAdmin(admin))
	requireKind(t, RequireAdmin(owner), KindForbidden, "")
}

func TestUpdateProfileAboutStoredAsTyped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.register(t, "ann")

	res, err := env.identity.UpdateProfile(ctx, ann, ProfileInput{About: "I'm <3 Go & Rust"})
	require.NoError(t, err)
	assert.Equal(t, "I'm <3 Go & Rust", res.User.About)
	assert.Equal(t, "I'm <3 Go & Rust", env.reload(t, ann).About)
}
