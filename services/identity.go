package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/connectbuzz/connectbuzz/models"
	"github.com/connectbuzz/connectbuzz/store"
	"github.com/connectbuzz/connectbuzz/utils"
)

const (
	discoverLimit = 10
	relationLimit = 200
	// attempts at drawing a username that is not taken yet
	usernameAttempts = 5
	minPasswordLen   = 6
)

const (
	msgNameRequired        = "Name is required"
	msgEmailRequired       = "Email is required"
	msgPasswordRequired    = "Password is required and it should at least contain 6 character"
	msgSecretRequired      = "Secret Message is required"
	msgAlreadyRegistered   = "User is already registered"
	msgNotRegistered       = "User is not registered"
	msgWrongPassword       = "Wrong Password"
	msgNewPasswordRequired = "New Password is required and should be minimum of 6 character"
	msgSecretAnswer        = "Secret answer is required"
	msgRecoveryMismatch    = "User is not registered with this email or the secret answer is wrong."
	msgRecoverySuccess     = "Now you can login with your new password"
	msgProfilePassword     = "Password is required and should atleast contain more than 6 character"
	msgUsernameTaken       = "Username already taken"
	msgUserNotFound        = "User not found"
	msgUserIDRequired      = "User id is required"
	msgFollowSelf          = "You cannot follow yourself"
)

// IdentityService implements registration, login, recovery, profiles and the follow graph.
type IdentityService struct {
	users        store.UserStore
	tokens       *utils.TokenManager
	isAdminEmail func(email string) bool
}

// NewIdentityService wires the service. isAdminEmail may be nil, in which case every account
// starts as a Subscriber.
func NewIdentityService(users store.UserStore, tokens *utils.TokenManager, isAdminEmail func(string) bool) *IdentityService {
	if isAdminEmail == nil {
		isAdminEmail = func(string) bool { return false }
	}
	return &IdentityService{users: users, tokens: tokens, isAdminEmail: isAdminEmail}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
}

// AuthResult is returned by login and OAuth sign-in.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account. Fields are validated in the order name, email, password,
// secret and the first failure is reported.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) error {
	switch {
	case in.Name == "":
		return Validation(msgNameRequired)
	case in.Email == "":
		return Validation(msgEmailRequired)
	case len(in.Password) < minPasswordLen:
		return Validation(msgPasswordRequired)
	case in.Secret == "":
		return Validation(msgSecretRequired)
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return Conflict(msgAlreadyRegistered)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Storage(err)
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		return Credential(err)
	}
	secretHash, err := utils.HashPassword(in.Secret)
	if err != nil {
		return Credential(err)
	}

	role := models.RoleSubscriber
	if s.isAdminEmail(in.Email) {
		role = models.RoleAdmin
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         role,
		PasswordHash: passwordHash,
		SecretHash:   secretHash,
	}
	return s.createWithUsername(ctx, user)
}

// createWithUsername persists user under a fresh random username, drawing again when the
// username collides.
func (s *IdentityService) createWithUsername(ctx context.Context, user *models.User) error {
	for i := 0; i < usernameAttempts; i++ {
		username, err := utils.ShortID()
		if err != nil {
			return Credential(err)
		}
		user.ID = ""
		user.Username = username
		err = s.users.Create(ctx, user)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return Storage(err)
		}
		// the collision may be the email if another registration won the race
		if _, ferr := s.users.FindByEmail(ctx, user.Email); ferr == nil {
			return Conflict(msgAlreadyRegistered)
		}
	}
	return Storage(errors.New("could not allocate a unique username"))
}

// Login checks the credentials and issues a session token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFound(msgNotRegistered)
	}
	if err != nil {
		return nil, Storage(err)
	}
	ok, err := utils.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, Credential(err)
	}
	if !ok {
		return nil, Unauthorized(msgWrongPassword)
	}
	return s.issue(user)
}

func (s *IdentityService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, Credential(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// ForgotPassword replaces the password when email and recovery secret both match.
func (s *IdentityService) ForgotPassword(ctx context.Context, email, newPassword, secret string) (string, error) {
	if len(newPassword) <= minPasswordLen {
		return "", Validation(msgNewPasswordRequired)
	}
	if secret == "" {
		return "", Validation(msgSecretAnswer)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", NotFound(msgRecoveryMismatch)
	}
	if err != nil {
		return "", Storage(err)
	}
	ok, err := utils.CheckPassword(user.SecretHash, secret)
	if err != nil || !ok {
		// legacy rows without a hashed secret can never match
		return "", NotFound(msgRecoveryMismatch)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return "", Credential(err)
	}
	if _, err := s.users.Update(ctx, user.ID, store.UserUpdate{PasswordHash: &hash}); err != nil {
		return "", Storage(err)
	}
	return msgRecoverySuccess, nil
}

// ProfileInput lists the editable profile fields. Empty values are ignored.
type ProfileInput struct {
	Username string        `json:"username"`
	About    string        `json:"about"`
	Name     string        `json:"name"`
	Password string        `json:"password"`
	Secret   string        `json:"secret"`
	Image    *models.Image `json:"image"`
}

// ProfileResult is the outcome of a profile edit. PasswordError is set when the new
// password was rejected; the other fields were still applied.
type ProfileResult struct {
	User          *models.User
	PasswordError string
}

// UpdateProfile applies the non-empty fields of in to the acting user.
func (s *IdentityService) UpdateProfile(ctx context.Context, acting *models.User, in ProfileInput) (*ProfileResult, error) {
	var upd store.UserUpdate
	res := &ProfileResult{}

	if in.Username != "" {
		upd.Username = &in.Username
	}
	if in.About != "" {
		about := utils.SanitizeText(in.About)
		upd.About = &about
	}
	if in.Name != "" {
		upd.Name = &in.Name
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLen {
			res.PasswordError = msgProfilePassword
		} else {
			hash, err := utils.HashPassword(in.Password)
			if err != nil {
				return nil, Credential(err)
			}
			upd.PasswordHash = &hash
		}
	}
	if in.Secret != "" {
		hash, err := utils.HashPassword(in.Secret)
		if err != nil {
			return nil, Credential(err)
		}
		upd.SecretHash = &hash
	}
	if in.Image != nil && !in.Image.IsZero() {
		upd.Image = in.Image
	}

	user, err := s.users.Update(ctx, acting.ID, upd)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, Conflict(msgUsernameTaken)
	case errors.Is(err, store.ErrNotFound):
		return nil, NotFound(msgUserNotFound)
	case err != nil:
		return nil, Storage(err)
	}
	res.User = user
	return res, nil
}

// ListDiscoverable suggests up to ten users the acting user does not follow yet.
func (s *IdentityService) ListDiscoverable(ctx context.Context, acting *models.User) ([]models.User, error) {
	exclude := append([]string{acting.ID}, acting.Following...)
	users, err := s.users.ListExcluding(ctx, exclude, discoverLimit)
	if err != nil {
		return nil, Storage(err)
	}
	return users, nil
}

// Follow makes acting follow targetID and returns the updated acting profile.
func (s *IdentityService) Follow(ctx context.Context, acting *models.User, targetID string) (*models.User, error) {
	if err := s.checkTarget(ctx, acting, targetID); err != nil {
		return nil, err
	}
	if err := s.users.Follow(ctx, acting.ID, targetID); err != nil {
		return nil, s.graphError(err)
	}
	return s.reload(ctx, acting.ID)
}

// Unfollow reverses Follow and returns the updated acting profile.
func (s *IdentityService) Unfollow(ctx context.Context, acting *models.User, targetID string) (*models.User, error) {
	if err := s.checkTarget(ctx, acting, targetID); err != nil {
		return nil, err
	}
	if err := s.users.Unfollow(ctx, acting.ID, targetID); err != nil {
		return nil, s.graphError(err)
	}
	return s.reload(ctx, acting.ID)
}

func (s *IdentityService) checkTarget(ctx context.Context, acting *models.User, targetID string) error {
	if targetID == "" {
		return Validation(msgUserIDRequired)
	}
	if targetID == acting.ID {
		return Validation(msgFollowSelf)
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound(msgUserNotFound)
		}
		return Storage(err)
	}
	return nil
}

func (s *IdentityService) graphError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(msgUserNotFound)
	}
	return Storage(err)
}

func (s *IdentityService) reload(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, Storage(err)
	}
	return user, nil
}

// ListFollowing returns up to 200 users the acting user follows.
func (s *IdentityService) ListFollowing(ctx context.Context, acting *models.User) ([]models.User, error) {
	return s.listRelation(ctx, acting.ID, func(u *models.User) []string { return u.Following })
}

// ListFollowers returns up to 200 users following the acting user.
func (s *IdentityService) ListFollowers(ctx context.Context, acting *models.User) ([]models.User, error) {
	return s.listRelation(ctx, acting.ID, func(u *models.User) []string { return u.Followers })
}

func (s *IdentityService) listRelation(ctx context.Context, id string, pick func(*models.User) []string) ([]models.User, error) {
	user, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByIDs(ctx, pick(user), relationLimit)
	if err != nil {
		return nil, Storage(err)
	}
	return users, nil
}

// Search matches query case-insensitively against name and username. An empty query
// returns no results.
func (s *IdentityService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	users, err := s.users.Search(ctx, query, 0)
	if err != nil {
		return nil, Storage(err)
	}
	return users, nil
}

// GetByUsername looks a profile up by its exact username.
func (s *IdentityService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, Storage(err)
	}
	return user, nil
}

// CurrentUser resolves the identity carried by a verified token. A token whose user no
// longer exists is treated as unauthenticated.
func (s *IdentityService) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Unauthenticated("Unauthorized")
	}
	if err != nil {
		return nil, Storage(err)
	}
	return user, nil
}

// OAuthProfile is the identity returned by an OAuth provider.
type OAuthProfile struct {
	Email     string
	Name      string
	AvatarURL string
}

// OAuthSignIn finds the account owning the provider's email or creates one, then issues a
// session token. Created accounts get random credentials; the owner can set a password and
// secret later through the profile edit.
func (s *IdentityService) OAuthSignIn(ctx context.Context, p OAuthProfile) (*AuthResult, error) {
	if p.Email == "" {
		return nil, Validation(msgEmailRequired)
	}
	user, err := s.users.FindByEmail(ctx, p.Email)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, Storage(err)
	}

	name := p.Name
	if name == "" {
		name = strings.SplitN(p.Email, "@", 2)[0]
	}
	passwordHash, err := utils.HashPassword(uuid.NewString())
	if err != nil {
		return nil, Credential(err)
	}
	secretHash, err := utils.HashPassword(uuid.NewString())
	if err != nil {
		return nil, Credential(err)
	}
	role := models.RoleSubscriber
	if s.isAdminEmail(p.Email) {
		role = models.RoleAdmin
	}
	user = &models.User{
		Name:         name,
		Email:        p.Email,
		Role:         role,
		Image:        models.Image{URL: p.AvatarURL},
		PasswordHash: passwordHash,
		SecretHash:   secretHash,
	}
	if err := s.createWithUsername(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}
