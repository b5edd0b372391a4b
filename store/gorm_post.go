package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/connectbuzz/connectbuzz/models"
)

// GormPostStore keeps posts with their likes and comments in separate tables.
type GormPostStore struct {
	db *gorm.DB
}

var _ PostStore = (*GormPostStore)(nil)

func preloadComments(db *gorm.DB) *gorm.DB {
	return db.Order("created ASC")
}

func (s *GormPostStore) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = newID()
	}
	if err := s.db.WithContext(ctx).Omit("Comments").Create(post).Error; err != nil {
		return translate(err)
	}
	post.Likes, post.Comments = []string{}, []models.Comment{}
	return nil
}

func (s *GormPostStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Comments", preloadComments).Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	posts := []models.Post{post}
	if err := s.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (s *GormPostStore) Update(ctx context.Context, id string, upd PostUpdate) (*models.Post, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	values := map[string]interface{}{}
	if upd.Content != nil {
		values["content"] = *upd.Content
	}
	if upd.Image != nil {
		values["image_url"] = upd.Image.URL
		values["image_public_id"] = upd.Image.PublicID
	}
	if len(values) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return nil, translate(err)
		}
	}
	return s.FindByID(ctx, id)
}

func (s *GormPostStore) Delete(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return post, nil
}

func (s *GormPostStore) List(ctx context.Context, authorIDs []string, offset, limit int) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Preload("Comments", preloadComments).Order("created_at DESC, id DESC")
	if authorIDs != nil {
		authorIDs = UniqueStrings(authorIDs)
		if len(authorIDs) == 0 {
			return []models.Post{}, nil
		}
		q = q.Where("posted_by_id IN ?", authorIDs)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *GormPostStore) AddLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	if err := s.exists(ctx, postID); err != nil {
		return nil, err
	}
	like := models.PostLike{PostID: postID, UserID: userID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return nil, translate(err)
	}
	return s.FindByID(ctx, postID)
}

func (s *GormPostStore) RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	if err := s.exists(ctx, postID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{}).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.FindByID(ctx, postID)
}

func (s *GormPostStore) AddComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error) {
	if err := s.exists(ctx, postID); err != nil {
		return nil, err
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Created.IsZero() {
		comment.Created = time.Now()
	}
	comment.PostID = postID
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, translate(err)
	}
	return s.FindByID(ctx, postID)
}

func (s *GormPostStore) RemoveComment(ctx context.Context, postID, commentID string) (*models.Post, error) {
	if err := s.exists(ctx, postID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Where("post_id = ? AND id = ?", postID, commentID).Delete(&models.Comment{}).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.FindByID(ctx, postID)
}

func (s *GormPostStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *GormPostStore) exists(ctx context.Context, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// attachLikes fills the like set of every post with a single query.
func (s *GormPostStore) attachLikes(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Likes = []string{}
		if posts[i].Comments == nil {
			posts[i].Comments = []models.Comment{}
		}
	}
	var likes []models.PostLike
	if err := s.db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return translate(err)
	}
	for _, l := range likes {
		if i, ok := index[l.PostID]; ok {
			posts[i].Likes = append(posts[i].Likes, l.UserID)
		}
	}
	return nil
}
