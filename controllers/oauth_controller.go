package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/connectbuzz/connectbuzz/config"
	"github.com/connectbuzz/connectbuzz/middleware"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

const oauthStateTTL = 10 * time.Minute

// profileFetcher reads the signed-in identity from a provider using an authorized client.
type profileFetcher func(ctx context.Context, client *http.Client) (*services.OAuthProfile, error)

// OAuthController signs users in through GitHub or Google.
type OAuthController struct {
	identity *services.IdentityService
	cfg      config.AppConfig
	fetchers map[string]profileFetcher
}

// NewOAuthController creates an OAuthController.
func NewOAuthController(identity *services.IdentityService, cfg config.AppConfig) *OAuthController {
	return &OAuthController{
		identity: identity,
		cfg:      cfg,
		fetchers: map[string]profileFetcher{
			"github": fetchGitHubUser,
			"google": fetchGoogleUser,
		},
	}
}

// OAuthRedirect generates a provider-specific authorization URL.
func (o *OAuthController) OAuthRedirect(ctx *gin.Context) {
	provider := ctx.Param("provider")
	oc, err := o.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(ctx.Request.Context(), state, oauthStateTTL)

	url := oc.AuthCodeURL(state, oauth2.AccessTypeOnline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a provider identity and answers
// {token, user} like a password login.
func (o *OAuthController) OAuthCallback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, "Missing code or state")
		return
	}
	if !utils.ConsumeState(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, "Invalid or expired state")
		return
	}

	oc, err := o.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := oc.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Failed to exchange code")
		return
	}

	profile, err := o.fetchers[provider](reqCtx, oc.Client(reqCtx, token))
	if err != nil {
		middleware.RespondError(ctx, services.Upstream("Failed to read provider profile", err))
		return
	}

	res, err := o.identity.OAuthSignIn(reqCtx, *profile)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (o *OAuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	redirect := fmt.Sprintf("%s/api/oauth/%s/callback", strings.TrimRight(o.cfg.OAuthRedirectBase, "/"), provider)
	switch provider {
	case "github":
		if o.cfg.GitHubClientID == "" || o.cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     o.cfg.GitHubClientID,
			ClientSecret: o.cfg.GitHubClientSecret,
			RedirectURL:  redirect,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if o.cfg.GoogleClientID == "" || o.cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     o.cfg.GoogleClientID,
			ClientSecret: o.cfg.GoogleClientSecret,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*services.OAuthProfile, error) {
	var payload struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		var err error
		if email, err = fetchGitHubEmail(ctx, client); err != nil {
			return nil, err
		}
	}

	return &services.OAuthProfile{
		Email:     email,
		Name:      fallback(payload.Name, payload.Login),
		AvatarURL: payload.AvatarURL,
	}, nil
}

// fetchGitHubEmail picks the primary verified address, since /user hides private emails.
func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func fetchGoogleUser(ctx context.Context, client *http.Client) (*services.OAuthProfile, error) {
	var payload struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	if !payload.VerifiedEmail {
		return nil, fmt.Errorf("google account email is not verified")
	}

	return &services.OAuthProfile{
		Email:     payload.Email,
		Name:      payload.Name,
		AvatarURL: payload.Picture,
	}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
