package models

import "time"

// Channel — read-model страницы канала: публичные поля пользователя
// плюс агрегаты по коллекции subscriptions.
type Channel struct {
	ID         string `bson:"_id,omitempty" json:"id"`
	Username   string `bson:"username" json:"username"`
	Email      string `bson:"email" json:"email"`
	FullName   string `bson:"full_name" json:"fullName"`
	Avatar     string `bson:"avatar" json:"avatar"`
	CoverImage string `bson:"cover_image,omitempty" json:"coverImage,omitempty"`

	SubscriberCount int64 `bson:"subscriber_count" json:"subscriberCount"`
	// IsSubscribed — подписан ли смотрящий пользователь на этот канал.
	IsSubscribed bool `bson:"is_subscribed" json:"isSubscribed"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
