package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/connectbuzz/connectbuzz/models"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

const (
	// ContextUserKey stores the authenticated *models.User inside Gin context.
	ContextUserKey = "user"
	// ContextTokenKey stores the raw bearer token.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
)

// UserResolver loads the account a token was issued for.
type UserResolver interface {
	CurrentUser(ctx context.Context, id string) (*models.User, error)
}

// PostOwnerResolver returns the author of a post.
type PostOwnerResolver interface {
	PostOwner(ctx context.Context, id string) (string, error)
}

// AuthRequired ensures the request carries a valid, unrevoked bearer token and loads the
// acting user.
func AuthRequired(tokens *utils.TokenManager, users UserResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := bearerToken(ctx.GetHeader("Authorization"))
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if utils.IsTokenBlacklisted(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := users.CurrentUser(ctx.Request.Context(), claims.UserID)
		if err != nil {
			RespondError(ctx, err)
			return
		}

		ctx.Set(ContextUserKey, user)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// CurrentUser returns the user stored by AuthRequired, or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentClaims returns the token claims stored by AuthRequired, or nil.
func CurrentClaims(ctx *gin.Context) *utils.Claims {
	if v, ok := ctx.Get(ContextClaimsKey); ok {
		if c, ok := v.(*utils.Claims); ok {
			return c
		}
	}
	return nil
}

// AdminRequired lets only Admin users through. It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := services.RequireAdmin(CurrentUser(ctx)); err != nil {
			RespondError(ctx, err)
			return
		}
		ctx.Next()
	}
}

// CanEditDeletePost lets the author of the post named by the :_id parameter, or an Admin,
// through. It must run after AuthRequired.
func CanEditDeletePost(posts PostOwnerResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		owner, err := posts.PostOwner(ctx.Request.Context(), ctx.Param("_id"))
		if err != nil {
			RespondError(ctx, err)
			return
		}
		if err := services.AuthorizeOwnerOrAdmin(owner, CurrentUser(ctx)); err != nil {
			RespondError(ctx, err)
			return
		}
		ctx.Next()
	}
}
