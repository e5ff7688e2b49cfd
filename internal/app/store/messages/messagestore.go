package messagestore

import (
	"context"
	"time"

	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxThread caps how many messages a thread read returns.
const MaxThread = 500

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Create inserts an unread message.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	m.ID = primitive.NewObjectID()
	m.Read = false
	m.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ForRide returns the ride's chat, oldest first.
func (s *Store) ForRide(ctx context.Context, ride primitive.ObjectID) ([]models.Message, error) {
	return s.find(ctx, bson.M{"ride": ride}, 1, MaxThread)
}

// MarkRideRead marks every message of ride addressed to receiver as read.
func (s *Store) MarkRideRead(ctx context.Context, ride, receiver primitive.ObjectID) (int64, error) {
	return s.markRead(ctx, bson.M{"ride": ride, "receiver": receiver, "read": false})
}

// Unread returns the user's unread messages, newest first.
func (s *Store) Unread(ctx context.Context, user primitive.ObjectID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.find(ctx, bson.M{"receiver": user, "read": false}, -1, limit)
}

// SupportThread returns every support message sent or received by user,
// oldest first. Replies from any admin belong to the same thread.
func (s *Store) SupportThread(ctx context.Context, user primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{
		"support_chat": true,
		"$or":          bson.A{bson.M{"sender": user}, bson.M{"receiver": user}},
	}
	return s.find(ctx, filter, 1, MaxThread)
}

// MarkSupportReadFor marks support messages addressed to receiver as read.
func (s *Store) MarkSupportReadFor(ctx context.Context, receiver primitive.ObjectID) (int64, error) {
	return s.markRead(ctx, bson.M{"support_chat": true, "receiver": receiver, "read": false})
}

// MarkSupportReadFrom marks support messages sent by sender as read. Used
// when an admin opens a user's thread.
func (s *Store) MarkSupportReadFrom(ctx context.Context, sender primitive.ObjectID) (int64, error) {
	return s.markRead(ctx, bson.M{"support_chat": true, "sender": sender, "read": false})
}

// SupportConversations lists one row per non-admin user with a support
// thread, most recent first. UnreadCount counts the user's messages no
// admin has read yet.
func (s *Store) SupportConversations(ctx context.Context) ([]models.SupportConversation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"support_chat": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "sender",
			"foreignField": "_id",
			"as":           "s",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"sender_role": bson.M{"$arrayElemAt": bson.A{"$s.role", 0}},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"user": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_role", models.RoleAdmin}}, "$receiver", "$sender",
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$user",
			"last_message":    bson.M{"$first": "$content"},
			"last_message_at": bson.M{"$first": "$created_at"},
			"unread_count": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$ne": bson.A{"$sender_role", models.RoleAdmin}},
					bson.M{"$eq": bson.A{"$read", false}},
				}}, 1, 0,
			}}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "u",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"user_name": bson.M{"$arrayElemAt": bson.A{"$u.name", 0}},
			"user_role": bson.M{"$arrayElemAt": bson.A{"$u.role", 0}},
		}}},
		// Admin-to-admin threads are not support conversations.
		{{Key: "$match", Value: bson.M{"user_role": bson.M{"$ne": models.RoleAdmin}}}},
		{{Key: "$project", Value: bson.M{"u": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message_at", Value: -1}}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.SupportConversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, dir, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) markRead(ctx context.Context, filter bson.M) (int64, error) {
	res, err := s.c.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
