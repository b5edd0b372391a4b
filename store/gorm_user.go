package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/connectbuzz/connectbuzz/models"
)

// GormUserStore keeps users in a relational table and the follow graph as one row per edge.
type GormUserStore struct {
	db *gorm.DB
}

var _ UserStore = (*GormUserStore)(nil)

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	user.Following, user.Followers = []string{}, []string{}
	return nil
}

func (s *GormUserStore) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	users := []models.User{user}
	if err := s.attachEdges(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "username = ?", username)
}

func (s *GormUserStore) Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if !upd.IsEmpty() {
		values := map[string]interface{}{}
		if upd.Name != nil {
			values["name"] = *upd.Name
		}
		if upd.Username != nil {
			values["username"] = *upd.Username
		}
		if upd.About != nil {
			values["about"] = *upd.About
		}
		if upd.PasswordHash != nil {
			values["password_hash"] = *upd.PasswordHash
		}
		if upd.SecretHash != nil {
			values["secret_hash"] = *upd.SecretHash
		}
		if upd.Image != nil {
			values["image_url"] = upd.Image.URL
			values["image_public_id"] = upd.Image.PublicID
		}
		err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values).Error
		if err != nil {
			return nil, translate(err)
		}
	}
	return s.FindByID(ctx, id)
}

// Follow inserts a single edge row, so both directions of the relation change together.
func (s *GormUserStore) Follow(ctx context.Context, followerID, followeeID string) error {
	edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error
	return translate(err)
}

func (s *GormUserStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
	return translate(err)
}

func (s *GormUserStore) ListByIDs(ctx context.Context, ids []string, limit int) ([]models.User, error) {
	ids = UniqueStrings(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	q := s.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.list(ctx, q)
}

func (s *GormUserStore) ListExcluding(ctx context.Context, exclude []string, limit int) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if exclude = UniqueStrings(exclude); len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.list(ctx, q)
}

func (s *GormUserStore) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := likePattern(query)
	q := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(username) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.list(ctx, q)
}

func (s *GormUserStore) list(ctx context.Context, q *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	if err := s.attachEdges(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// attachEdges fills Following and Followers from the edge table with a single query.
func (s *GormUserStore) attachEdges(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	index := make(map[string]int, len(users))
	for i := range users {
		ids[i] = users[i].ID
		index[users[i].ID] = i
		users[i].Following = []string{}
		users[i].Followers = []string{}
	}

	var edges []models.Follow
	err := s.db.WithContext(ctx).
		Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return translate(err)
	}
	for _, e := range edges {
		if i, ok := index[e.FollowerID]; ok {
			users[i].Following = append(users[i].Following, e.FolloweeID)
		}
		if i, ok := index[e.FolloweeID]; ok {
			users[i].Followers = append(users[i].Followers, e.FollowerID)
		}
	}
	return nil
}
