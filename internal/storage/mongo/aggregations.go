package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/savelyevam/vidhub/internal/models"
	"github.com/savelyevam/vidhub/internal/storage"
)

// channelDoc — результат агрегации канала.
type channelDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	Username        string             `bson:"username"`
	Email           string             `bson:"email"`
	FullName        string             `bson:"full_name"`
	Avatar          string             `bson:"avatar"`
	CoverImage      string             `bson:"cover_image,omitempty"`
	SubscriberCount int64              `bson:"subscriber_count"`
	IsSubscribed    bool               `bson:"is_subscribed"`
	CreatedAt       time.Time          `bson:"created_at"`
}

// ChannelByUsername собирает read-model канала одним pipeline:
// match по username -> $lookup подписчиков -> $size/$in -> проекция
// только публичных полей.
func (m *Mongo) ChannelByUsername(ctx context.Context, username, viewerID string) (*models.Channel, error) {
	const op = "storage/mongo/ChannelByUsername"

	uname := strings.ToLower(strings.TrimSpace(username))
	if uname == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	// Для анонимного/битого viewerID используем NilObjectID:
	// $in по нему всегда false.
	viewerOID := primitive.NilObjectID
	if v := strings.TrimSpace(viewerID); v != "" {
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			viewerOID = oid
		}
	}

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "username", Value: uname}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: subscriptionsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "channel"},
			{Key: "as", Value: "subscribers"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "subscriber_count", Value: bson.D{{Key: "$size", Value: "$subscribers"}}},
			{Key: "is_subscribed", Value: bson.D{{Key: "$in", Value: bson.A{viewerOID, "$subscribers.subscriber"}}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "username", Value: 1},
			{Key: "email", Value: 1},
			{Key: "full_name", Value: 1},
			{Key: "avatar", Value: 1},
			{Key: "cover_image", Value: 1},
			{Key: "subscriber_count", Value: 1},
			{Key: "is_subscribed", Value: 1},
			{Key: "created_at", Value: 1},
		}}},
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []channelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	d := docs[0]
	return &models.Channel{
		ID:              d.ID.Hex(),
		Username:        d.Username,
		Email:           d.Email,
		FullName:        d.FullName,
		Avatar:          d.Avatar,
		CoverImage:      d.CoverImage,
		SubscriberCount: d.SubscriberCount,
		IsSubscribed:    d.IsSubscribed,
		CreatedAt:       d.CreatedAt,
	}, nil
}

// videoDoc — элемент watch_history после $lookup.
type videoDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Thumbnail string             `bson:"thumbnail"`
	Duration  float64            `bson:"duration"`
	Views     int64              `bson:"views"`
	Owner     struct {
		Username string `bson:"username"`
		FullName string `bson:"full_name"`
		Avatar   string `bson:"avatar"`
	} `bson:"owner"`
	CreatedAt time.Time `bson:"created_at"`
}

// WatchHistory подставляет документы videos по ссылкам watch_history
// и владельца каждого видео (проекция username/full_name/avatar).
func (m *Mongo) WatchHistory(ctx context.Context, userID string) ([]models.Video, error) {
	const op = "storage/mongo/WatchHistory"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	ownerPipeline := bson.A{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "username", Value: 1},
					{Key: "full_name", Value: 1},
					{Key: "avatar", Value: 1},
				}}},
			}},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{
			{Key: "owner", Value: bson.D{{Key: "$first", Value: "$owner"}}},
		}}},
	}

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: videosCollection},
			{Key: "localField", Value: "watch_history"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "watch_history"},
			{Key: "pipeline", Value: ownerPipeline},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "watch_history", Value: 1}}}},
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		WatchHistory []videoDoc `bson:"watch_history"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	history := make([]models.Video, 0, len(rows[0].WatchHistory))
	for _, v := range rows[0].WatchHistory {
		history = append(history, models.Video{
			ID:        v.ID.Hex(),
			Title:     v.Title,
			Thumbnail: v.Thumbnail,
			Duration:  v.Duration,
			Views:     v.Views,
			Owner: models.VideoOwner{
				Username: v.Owner.Username,
				FullName: v.Owner.FullName,
				Avatar:   v.Owner.Avatar,
			},
			CreatedAt: v.CreatedAt,
		})
	}

	return history, nil
}
