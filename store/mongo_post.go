package store

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/connectbuzz/connectbuzz/models"
)

// MongoPostStore keeps one document per post with embedded likes and comments.
type MongoPostStore struct {
	posts *mongo.Collection
}

var _ PostStore = (*MongoPostStore)(nil)

func (s *MongoPostStore) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = newObjectID()
	}
	ts := now()
	post.CreatedAt, post.UpdatedAt = ts, ts
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	_, err := s.posts.InsertOne(ctx, post)
	return translateMongo(err)
}

func (s *MongoPostStore) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translateMongo(err)
	}
	return &post, nil
}

func (s *MongoPostStore) Update(ctx context.Context, id string, upd PostUpdate) (*models.Post, error) {
	set := bson.M{"updatedAt": now()}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	return s.findAndUpdate(ctx, id, bson.M{"$set": set})
}

func (s *MongoPostStore) Delete(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.posts.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translateMongo(err)
	}
	return &post, nil
}

func (s *MongoPostStore) List(ctx context.Context, authorIDs []string, offset, limit int) ([]models.Post, error) {
	filter := bson.M{}
	if authorIDs != nil {
		authorIDs = UniqueStrings(authorIDs)
		if len(authorIDs) == 0 {
			return []models.Post{}, nil
		}
		filter["postedBy"] = bson.M{"$in": authorIDs}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, translateMongo(err)
	}
	return posts, nil
}

func (s *MongoPostStore) AddLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return s.findAndUpdate(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (s *MongoPostStore) RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return s.findAndUpdate(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (s *MongoPostStore) AddComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error) {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Created.IsZero() {
		comment.Created = now()
	}
	comment.PostID = postID
	return s.findAndUpdate(ctx, postID, bson.M{"$push": bson.M{"comments": comment}})
}

func (s *MongoPostStore) RemoveComment(ctx context.Context, postID, commentID string) (*models.Post, error) {
	return s.findAndUpdate(ctx, postID, bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}})
}

func (s *MongoPostStore) Count(ctx context.Context) (int64, error) {
	n, err := s.posts.EstimatedDocumentCount(ctx)
	return n, translateMongo(err)
}

func (s *MongoPostStore) findAndUpdate(ctx context.Context, id string, update bson.M) (*models.Post, error) {
	var post models.Post
	if err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&post); err != nil {
		return nil, translateMongo(err)
	}
	return &post, nil
}
