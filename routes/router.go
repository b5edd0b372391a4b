package routes

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/connectbuzz/connectbuzz/config"
	"github.com/connectbuzz/connectbuzz/controllers"
	"github.com/connectbuzz/connectbuzz/middleware"
	"github.com/connectbuzz/connectbuzz/realtime"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Identity *services.IdentityService
	Content  *services.ContentService
	Tokens   *utils.TokenManager
	Hub      *realtime.Hub
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access logs go to their own rolling file when configured
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		accessLog = utils.NewRollingFileLogger(cfg.GinPath, cfg)
	}
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// wildcard origins cannot carry credentials
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if cfg.ImageStore == config.ImageStoreLocal {
		r.Static(uploadsPath(cfg.UploadBaseURL), cfg.UploadDir)
	}

	authController := controllers.NewAuthController(deps.Identity)
	oauthController := controllers.NewOAuthController(deps.Identity, cfg)
	postController := controllers.NewPostController(deps.Content, cfg.MaxUploadMB)
	var relay controllers.ClientCounter
	if deps.Hub != nil {
		relay = deps.Hub
		r.GET("/socket", gin.WrapH(realtime.NewHandler(deps.Hub, cfg.AllowedOrigins)))
	}
	statsController := controllers.NewStatsController(deps.Content, relay)

	r.GET("/health", statsController.Health)

	api := r.Group("/api")
	requireAuth := middleware.AuthRequired(deps.Tokens, deps.Identity)
	canEdit := middleware.CanEditDeletePost(deps.Content)

	forms := api.Group("")
	forms.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	forms.POST("/register", authController.Register)
	forms.POST("/login", authController.Login)
	forms.POST("/forgot-password", authController.ForgotPassword)
	forms.GET("/oauth/:provider/login", oauthController.OAuthRedirect)
	forms.GET("/oauth/:provider/callback", oauthController.OAuthCallback)

	// public reads
	api.GET("/search-user", authController.SearchUser)
	api.GET("/search-user/", authController.SearchUser)
	api.GET("/search-user/:query", authController.SearchUser)
	api.GET("/user/:username", authController.GetUserByUsername)
	api.GET("/total-posts", statsController.TotalPosts)
	api.GET("/posts", postController.Posts)
	api.GET("/post/:_id", postController.GetPost)

	protected := api.Group("")
	protected.Use(requireAuth, middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	protected.GET("/current-user", authController.CurrentUser)
	protected.POST("/logout", authController.Logout)
	protected.PUT("/profile-update", authController.UpdateProfile)
	protected.GET("/find-people", authController.FindPeople)
	protected.PUT("/user-follow", authController.Follow)
	protected.PUT("/user-unfollow", authController.Unfollow)
	protected.GET("/user-following", authController.Following)
	protected.GET("/user-follower", authController.Followers)

	protected.POST("/create-post", postController.CreatePost)
	protected.POST("/upload-image", postController.UploadImage)
	protected.GET("/user-posts", postController.UserPosts)
	protected.GET("/user-post/:_id", postController.UserPost)
	protected.PUT("/update-post/:_id", canEdit, postController.UpdatePost)
	protected.DELETE("/delete-post/:_id", canEdit, postController.DeletePost)
	protected.GET("/news-feed/:page", postController.NewsFeed)
	protected.PUT("/like-post", postController.LikePost)
	protected.PUT("/unlike-post", postController.UnlikePost)
	protected.PUT("/add-comment", postController.AddComment)
	protected.PUT("/remove-comment", postController.RemoveComment)

	admin := protected.Group("")
	admin.Use(middleware.AdminRequired())
	admin.GET("/current-admin", authController.CurrentAdmin)
	admin.DELETE("/admin/delete-post/:_id", postController.DeletePost)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "Route not found")
	})

	return r
}

// uploadsPath is the URL path local uploads are served under, taken from the public base URL.
func uploadsPath(base string) string {
	if u, err := url.Parse(base); err == nil && strings.Trim(u.Path, "/") != "" {
		return "/" + strings.Trim(u.Path, "/")
	}
	return "/uploads"
}
