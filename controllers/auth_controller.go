package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connectbuzz/connectbuzz/middleware"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

const (
	userCachePrefix = "user:"
	userCacheTTL    = time.Minute
	// fallback revocation window for tokens issued without an expiry
	logoutFallbackTTL = 72 * time.Hour
)

// AuthController handles accounts, profiles and the follow graph.
type AuthController struct {
	identity *services.IdentityService
}

// NewAuthController creates an AuthController.
func NewAuthController(identity *services.IdentityService) *AuthController {
	return &AuthController{identity: identity}
}

// Register creates an account from {name, email, password, secret}.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.identity.Register(ctx.Request.Context(), req); err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), userCachePrefix)
	utils.OK(ctx)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login answers {token, user} for valid credentials.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := a.identity.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondFormError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

type forgotPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	Secret      string `json:"secret"`
}

// ForgotPassword resets the password of the account whose secret answer matches.
func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	var req forgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	msg, err := a.identity.ForgotPassword(ctx.Request.Context(), req.Email, req.NewPassword, req.Secret)
	if err != nil {
		middleware.RespondFormError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"success": msg})
}

// CurrentUser confirms the bearer token belongs to a live account.
func (a *AuthController) CurrentUser(ctx *gin.Context) {
	utils.OK(ctx)
}

// CurrentAdmin is CurrentUser behind the admin check.
func (a *AuthController) CurrentAdmin(ctx *gin.Context) {
	utils.OK(ctx)
}

// Logout revokes the presented token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(logoutFallbackTTL)
	if claims := middleware.CurrentClaims(ctx); claims != nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(ctx.Request.Context(), token, expiresAt)
	utils.OK(ctx)
}

// UpdateProfile edits the acting user. A rejected password is reported on its own while the
// other fields are kept.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req services.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := a.identity.UpdateProfile(ctx.Request.Context(), middleware.CurrentUser(ctx), req)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	a.invalidate(ctx)
	if res.PasswordError != "" {
		utils.Error(ctx, http.StatusOK, res.PasswordError)
		return
	}
	utils.Success(ctx, res.User)
}

// FindPeople suggests accounts the acting user does not follow yet.
func (a *AuthController) FindPeople(ctx *gin.Context) {
	users, err := a.identity.ListDiscoverable(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

type userIDRequest struct {
	ID string `json:"_id"`
}

func (a *AuthController) Follow(ctx *gin.Context) {
	var req userIDRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := a.identity.Follow(ctx.Request.Context(), middleware.CurrentUser(ctx), req.ID)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, user)
}

func (a *AuthController) Unfollow(ctx *gin.Context) {
	var req userIDRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := a.identity.Unfollow(ctx.Request.Context(), middleware.CurrentUser(ctx), req.ID)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	a.invalidate(ctx)
	utils.Success(ctx, user)
}

func (a *AuthController) Following(ctx *gin.Context) {
	users, err := a.identity.ListFollowing(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

func (a *AuthController) Followers(ctx *gin.Context) {
	users, err := a.identity.ListFollowers(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

// SearchUser matches the query against names and usernames.
func (a *AuthController) SearchUser(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Param("query"))
	key := userCachePrefix + "search:" + strings.ToLower(query)
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	users, err := a.identity.Search(ctx.Request.Context(), query)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, users, userCacheTTL)
	utils.Success(ctx, users)
}

// GetUserByUsername returns a public profile.
func (a *AuthController) GetUserByUsername(ctx *gin.Context) {
	uname := strings.TrimSpace(ctx.Param("username"))
	key := userCachePrefix + "uname:" + uname
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	user, err := a.identity.GetByUsername(ctx.Request.Context(), uname)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, user, userCacheTTL)
	utils.Success(ctx, user)
}

// invalidate drops cached profiles and posts, which embed author names and avatars.
func (a *AuthController) invalidate(ctx *gin.Context) {
	utils.InvalidateByPrefix(ctx.Request.Context(), userCachePrefix)
	utils.InvalidateByPrefix(ctx.Request.Context(), postCachePrefix)
}
