package controllers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connectbuzz/connectbuzz/middleware"
	"github.com/connectbuzz/connectbuzz/models"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

const (
	postCachePrefix = "post:"
	postCacheTTL    = time.Minute
	// room for the multipart boundaries and headers around the file
	multipartOverhead = 64 << 10
)

var allowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// PostController handles posts, the feed, likes and comments.
type PostController struct {
	content        *services.ContentService
	maxUploadBytes int64
}

// NewPostController creates a PostController. Uploads above maxUploadMB are rejected.
func NewPostController(content *services.ContentService, maxUploadMB int) *PostController {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &PostController{content: content, maxUploadBytes: int64(maxUploadMB) << 20}
}

type createPostRequest struct {
	Content string        `json:"content"`
	Image   *models.Image `json:"image"`
}

// CreatePost publishes {content, image} for the acting user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	post, err := p.content.CreatePost(ctx.Request.Context(), middleware.CurrentUser(ctx), req.Content, req.Image)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.Success(ctx, post)
}

// UploadImage stores the multipart "image" field and answers {url, public_id}.
// The upload limit applies to the file itself.
func (p *PostController) UploadImage(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, p.maxUploadBytes+multipartOverhead)
	fh, err := ctx.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, "Image is too large")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, "Image is required")
		return
	}
	if fh.Size > p.maxUploadBytes {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, "Image is too large")
		return
	}
	if !allowedImageExt[strings.ToLower(filepath.Ext(fh.Filename))] {
		utils.Error(ctx, http.StatusBadRequest, "Unsupported image type")
		return
	}

	f, err := fh.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Image is required")
		return
	}
	defer f.Close()

	img, err := p.content.UploadImage(ctx.Request.Context(), fh.Filename, f)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, img)
}

// UserPosts lists the acting user's most recent posts.
func (p *PostController) UserPosts(ctx *gin.Context) {
	posts, err := p.content.ListByAuthor(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// UserPost loads a post for editing.
func (p *PostController) UserPost(ctx *gin.Context) {
	post, err := p.content.GetPost(ctx.Request.Context(), ctx.Param("_id"))
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// UpdatePost merges {content, image} into the post. Ownership is checked by middleware.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req services.PostUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	post, err := p.content.UpdatePost(ctx.Request.Context(), ctx.Param("_id"), req)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.Success(ctx, post)
}

// DeletePost removes a post. Used by both the owner route and the admin route.
func (p *PostController) DeletePost(ctx *gin.Context) {
	if err := p.content.DeletePost(ctx.Request.Context(), ctx.Param("_id")); err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.OK(ctx)
}

// NewsFeed returns one page of posts by the acting user and the accounts they follow.
func (p *PostController) NewsFeed(ctx *gin.Context) {
	page, err := strconv.Atoi(ctx.Param("page"))
	if err != nil {
		page = 1
	}
	posts, err := p.content.Feed(ctx.Request.Context(), middleware.CurrentUser(ctx), page)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

type postIDRequest struct {
	ID string `json:"_id"`
}

func (p *PostController) LikePost(ctx *gin.Context) {
	var req postIDRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	post, err := p.content.Like(ctx.Request.Context(), middleware.CurrentUser(ctx), req.ID)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.Success(ctx, post)
}

func (p *PostController) UnlikePost(ctx *gin.Context) {
	var req postIDRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	post, err := p.content.Unlike(ctx.Request.Context(), middleware.CurrentUser(ctx), req.ID)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.Success(ctx, post)
}

type addCommentRequest struct {
	PostID  string `json:"postId"`
	Comment string `json:"comment"`
}

// AddComment appends {comment} to {postId}.
func (p *PostController) AddComment(ctx *gin.Context) {
	var req addCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	post, err := p.content.AddComment(ctx.Request.Context(), middleware.CurrentUser(ctx), req.PostID, req.Comment)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.Success(ctx, post)
}

type removeCommentRequest struct {
	PostID  string `json:"postId"`
	Comment struct {
		ID string `json:"_id"`
	} `json:"comment"`
}

// RemoveComment deletes {comment._id} from {postId}.
func (p *PostController) RemoveComment(ctx *gin.Context) {
	var req removeCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "Invalid request payload")
		return
	}
	post, err := p.content.RemoveComment(ctx.Request.Context(), middleware.CurrentUser(ctx), req.PostID, req.Comment.ID)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	p.invalidate(ctx)
	utils.Success(ctx, post)
}

// Posts lists every post, newest first.
func (p *PostController) Posts(ctx *gin.Context) {
	key := postCachePrefix + "all"
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	posts, err := p.content.ListAll(ctx.Request.Context())
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, posts, postCacheTTL)
	utils.Success(ctx, posts)
}

// GetPost returns a single post with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	id := ctx.Param("_id")
	key := postCachePrefix + "id:" + id
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	post, err := p.content.GetPost(ctx.Request.Context(), id)
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), key, post, postCacheTTL)
	utils.Success(ctx, post)
}

func (p *PostController) invalidate(ctx *gin.Context) {
	utils.InvalidateByPrefix(ctx.Request.Context(), postCachePrefix)
}
