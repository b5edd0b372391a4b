package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// MongoStore bundles the document implementations of UserStore and PostStore.
type MongoStore struct {
	Users *MongoUserStore
	Posts *MongoPostStore
}

// NewMongoStore uses the given database of a connected client. With transactions set, the
// follow graph updates run inside a session transaction.
func NewMongoStore(client *mongo.Client, db *mongo.Database, transactions bool) *MongoStore {
	return &MongoStore{
		Users: &MongoUserStore{client: client, users: db.Collection(usersCollection), transactions: transactions},
		Posts: &MongoPostStore{posts: db.Collection(postsCollection)},
	}
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Users.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = s.Posts.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "postedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func newObjectID() string {
	return primitive.NewObjectID().Hex()
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

// containsRegex matches q literally and case-insensitively.
func containsRegex(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func now() time.Time {
	// Mongo keeps millisecond precision; truncate so values read back compare equal.
	return time.Now().UTC().Truncate(time.Millisecond)
}
