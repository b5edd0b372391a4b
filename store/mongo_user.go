package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/connectbuzz/connectbuzz/models"
)

// MongoUserStore keeps one document per user with embedded following/followers arrays.
type MongoUserStore struct {
	client       *mongo.Client
	users        *mongo.Collection
	transactions bool
}

var _ UserStore = (*MongoUserStore)(nil)

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newObjectID()
	}
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts
	if user.Role == "" {
		user.Role = models.RoleSubscriber
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	_, err := s.users.InsertOne(ctx, user)
	return translateMongo(err)
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateMongo(err)
	}
	return &user, nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *MongoUserStore) Update(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": now()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.About != nil {
		set["about"] = *upd.About
	}
	if upd.PasswordHash != nil {
		set["password"] = *upd.PasswordHash
	}
	if upd.SecretHash != nil {
		set["secret"] = *upd.SecretHash
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	var user models.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).Decode(&user)
	if err != nil {
		return nil, translateMongo(err)
	}
	return &user, nil
}

// Follow adds the edge to the followee's followers and the follower's following. On a
// deployment with transactions both writes commit together. Otherwise the followee write is
// undone when the follower write fails.
func (s *MongoUserStore) Follow(ctx context.Context, followerID, followeeID string) error {
	return s.updateEdge(ctx, "$addToSet", followerID, followeeID)
}

func (s *MongoUserStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.updateEdge(ctx, "$pull", followerID, followeeID)
}

var inverseEdgeOp = map[string]string{"$addToSet": "$pull", "$pull": "$addToSet"}

func (s *MongoUserStore) updateEdge(ctx context.Context, op, followerID, followeeID string) error {
	if !s.transactions {
		return s.updateEdgeOrdered(ctx, op, followerID, followeeID)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.setFollower(sc, op, followerID, followeeID); err != nil {
			return nil, err
		}
		return nil, s.setFollowing(sc, op, followerID, followeeID)
	})
	return translateMongo(err)
}

// updateEdgeOrdered is used on standalone servers.
func (s *MongoUserStore) updateEdgeOrdered(ctx context.Context, op, followerID, followeeID string) error {
	changed, err := s.setFollower(ctx, op, followerID, followeeID)
	if err != nil {
		return translateMongo(err)
	}
	err = s.setFollowing(ctx, op, followerID, followeeID)
	if err == nil {
		return nil
	}
	if changed {
		if _, undoErr := s.setFollower(ctx, inverseEdgeOp[op], followerID, followeeID); undoErr != nil {
			err = errors.Join(err, undoErr)
		}
	}
	return translateMongo(err)
}

// setFollower applies op to the followee's followers and reports whether the array changed.
func (s *MongoUserStore) setFollower(ctx context.Context, op, followerID, followeeID string) (bool, error) {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": followeeID}, bson.M{op: bson.M{"followers": followerID}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoUserStore) setFollowing(ctx context.Context, op, followerID, followeeID string) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": followerID}, bson.M{op: bson.M{"following": followeeID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) ListByIDs(ctx context.Context, ids []string, limit int) ([]models.User, error) {
	ids = UniqueStrings(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

func (s *MongoUserStore) ListExcluding(ctx context.Context, exclude []string, limit int) ([]models.User, error) {
	filter := bson.M{}
	if exclude = UniqueStrings(exclude); len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, filter, opts)
}

func (s *MongoUserStore) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	re := containsRegex(query)
	filter := bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"username": re},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, filter, opts)
}

func (s *MongoUserStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, translateMongo(err)
	}
	return users, nil
}
