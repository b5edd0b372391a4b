package services

import (
	"context"
	"errors"
	"io"
	"math"

	"github.com/connectbuzz/connectbuzz/models"
	"github.com/connectbuzz/connectbuzz/store"
	"github.com/connectbuzz/connectbuzz/utils"
)

const (
	// FeedPageSize is the number of posts per news feed page.
	FeedPageSize = 3
	recentLimit  = 10
)

const (
	msgContentRequired = "Content should be required"
	msgPostNotFound    = "Post not found"
	msgPostIDRequired  = "Post id is required"
	msgCommentRequired = "Comment is required"
	msgCommentNotFound = "Comment not found"
	msgUploadFailed    = "Image upload failed"
)

// ImageStore keeps uploaded images outside the database.
type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (models.Image, error)
	Delete(ctx context.Context, publicID string) error
}

// ContentService implements posts, the feed, likes and comments.
type ContentService struct {
	posts  store.PostStore
	users  store.UserStore
	images ImageStore
}

func NewContentService(posts store.PostStore, users store.UserStore, images ImageStore) *ContentService {
	return &ContentService{posts: posts, users: users, images: images}
}

// CreatePost publishes sanitized content for acting.
func (s *ContentService) CreatePost(ctx context.Context, acting *models.User, content string, image *models.Image) (*models.Post, error) {
	content = utils.Sanitize(content)
	if content == "" {
		return nil, Validation(msgContentRequired)
	}
	post := &models.Post{Content: content, PostedByID: acting.ID}
	if image != nil {
		post.Image = *image
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, Storage(err)
	}
	return s.populateOne(ctx, post)
}

// UploadImage stores an image and returns its reference.
func (s *ContentService) UploadImage(ctx context.Context, filename string, r io.Reader) (models.Image, error) {
	img, err := s.images.Upload(ctx, filename, r)
	if err != nil {
		return models.Image{}, Upstream(msgUploadFailed, err)
	}
	return img, nil
}

// ListByAuthor returns the ten most recent posts of acting.
func (s *ContentService) ListByAuthor(ctx context.Context, acting *models.User) ([]models.Post, error) {
	return s.list(ctx, []string{acting.ID}, 0, recentLimit)
}

// GetPost returns a single post with its author and comment authors attached.
func (s *ContentService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.populateOne(ctx, post)
}

// PostUpdate lists the editable post fields; nil means unchanged.
type PostUpdate struct {
	Content *string       `json:"content"`
	Image   *models.Image `json:"image"`
}

// UpdatePost merges the provided fields. Ownership is checked by the caller. A replaced or
// cleared image is released from the image store.
func (s *ContentService) UpdatePost(ctx context.Context, id string, in PostUpdate) (*models.Post, error) {
	var upd store.PostUpdate
	if in.Content != nil {
		content := utils.Sanitize(*in.Content)
		if content == "" {
			return nil, Validation(msgContentRequired)
		}
		upd.Content = &content
	}
	upd.Image = in.Image

	var previous models.Image
	if in.Image != nil {
		old, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		previous = old.Image
	}

	post, err := s.posts.Update(ctx, id, upd)
	if err != nil {
		return nil, s.postError(err)
	}
	if previous.PublicID != "" && previous.PublicID != post.Image.PublicID {
		s.releaseImage(ctx, id, previous.PublicID)
	}
	return s.populateOne(ctx, post)
}

// DeletePost removes a post and releases its image. Ownership is checked by the caller. A
// failed image delete is logged and does not fail the operation.
func (s *ContentService) DeletePost(ctx context.Context, id string) error {
	post, err := s.posts.Delete(ctx, id)
	if err != nil {
		return s.postError(err)
	}
	if post.Image.PublicID != "" {
		s.releaseImage(ctx, id, post.Image.PublicID)
	}
	return nil
}

// releaseImage deletes an image that no post references anymore. Failures are only logged.
func (s *ContentService) releaseImage(ctx context.Context, postID, publicID string) {
	if err := s.images.Delete(ctx, publicID); err != nil {
		utils.Sugar.Warnw("image delete failed", "post", postID, "public_id", publicID, "err", err)
	}
}

// Feed returns page of the posts written by acting and everyone acting follows, newest
// first. Pages start at 1; anything lower is treated as 1.
func (s *ContentService) Feed(ctx context.Context, acting *models.User, page int) ([]models.Post, error) {
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/FeedPageSize {
		return []models.Post{}, nil
	}
	authors := append([]string{acting.ID}, acting.Following...)
	return s.list(ctx, authors, (page-1)*FeedPageSize, FeedPageSize)
}

// Like adds acting to the post's likes. Liking twice keeps a single entry.
func (s *ContentService) Like(ctx context.Context, acting *models.User, postID string) (*models.Post, error) {
	if postID == "" {
		return nil, Validation(msgPostIDRequired)
	}
	post, err := s.posts.AddLike(ctx, postID, acting.ID)
	if err != nil {
		return nil, s.postError(err)
	}
	return s.populateOne(ctx, post)
}

// Unlike removes acting from the post's likes.
func (s *ContentService) Unlike(ctx context.Context, acting *models.User, postID string) (*models.Post, error) {
	if postID == "" {
		return nil, Validation(msgPostIDRequired)
	}
	post, err := s.posts.RemoveLike(ctx, postID, acting.ID)
	if err != nil {
		return nil, s.postError(err)
	}
	return s.populateOne(ctx, post)
}

// AddComment appends a comment by acting.
func (s *ContentService) AddComment(ctx context.Context, acting *models.User, postID, text string) (*models.Post, error) {
	if postID == "" {
		return nil, Validation(msgPostIDRequired)
	}
	text = utils.SanitizeText(text)
	if text == "" {
		return nil, Validation(msgCommentRequired)
	}
	post, err := s.posts.AddComment(ctx, postID, &models.Comment{Text: text, PostedByID: acting.ID})
	if err != nil {
		return nil, s.postError(err)
	}
	return s.populateOne(ctx, post)
}

// RemoveComment deletes a comment. The comment author, the post owner and admins may remove
// it.
func (s *ContentService) RemoveComment(ctx context.Context, acting *models.User, postID, commentID string) (*models.Post, error) {
	if postID == "" {
		return nil, Validation(msgPostIDRequired)
	}
	post, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}
	var comment *models.Comment
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			comment = &post.Comments[i]
			break
		}
	}
	if comment == nil {
		return nil, NotFound(msgCommentNotFound)
	}
	if comment.PostedByID != acting.ID {
		if err := AuthorizeOwnerOrAdmin(post.PostedByID, acting); err != nil {
			return nil, err
		}
	}

	post, err = s.posts.RemoveComment(ctx, postID, commentID)
	if err != nil {
		return nil, s.postError(err)
	}
	return s.populateOne(ctx, post)
}

// Count returns the estimated number of posts.
func (s *ContentService) Count(ctx context.Context) (int64, error) {
	n, err := s.posts.Count(ctx)
	if err != nil {
		return 0, Storage(err)
	}
	return n, nil
}

// ListAll returns every post, newest first.
func (s *ContentService) ListAll(ctx context.Context) ([]models.Post, error) {
	return s.list(ctx, nil, 0, 0)
}

// PostOwner returns the id of the user who wrote the post.
func (s *ContentService) PostOwner(ctx context.Context, id string) (string, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	return post.PostedByID, nil
}

func (s *ContentService) find(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, s.postError(err)
	}
	return post, nil
}

func (s *ContentService) list(ctx context.Context, authors []string, offset, limit int) ([]models.Post, error) {
	posts, err := s.posts.List(ctx, authors, offset, limit)
	if err != nil {
		return nil, Storage(err)
	}
	if err := s.populate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *ContentService) postError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return NotFound(msgPostNotFound)
	}
	return Storage(err)
}

func (s *ContentService) populateOne(ctx context.Context, post *models.Post) (*models.Post, error) {
	posts := []models.Post{*post}
	if err := s.populate(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// populate attaches the {_id, name, image} projection of every post and comment author
// using one user lookup.
func (s *ContentService) populate(ctx context.Context, posts []models.Post) error {
	var ids []string
	for i := range posts {
		ids = append(ids, posts[i].AuthorIDs()...)
	}
	users, err := s.users.ListByIDs(ctx, ids, 0)
	if err != nil {
		return Storage(err)
	}
	authors := make(map[string]*models.Author, len(users))
	for _, u := range users {
		authors[u.ID] = models.AuthorOf(u)
	}
	author := func(id string) *models.Author {
		if a, ok := authors[id]; ok {
			return a
		}
		// deleted or unknown account
		return &models.Author{ID: id}
	}
	for i := range posts {
		posts[i].PostedBy = author(posts[i].PostedByID)
		for j := range posts[i].Comments {
			posts[i].Comments[j].PostedBy = author(posts[i].Comments[j].PostedByID)
		}
	}
	return nil
}
