package models

import "time"

// VideoOwner — проекция владельца видео для истории просмотров.
type VideoOwner struct {
	Username string `bson:"username" json:"username"`
	FullName string `bson:"full_name" json:"fullName"`
	Avatar   string `bson:"avatar" json:"avatar"`
}

// Video — элемент истории просмотров: документ коллекции videos
// с подставленным владельцем.
type Video struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	Title     string     `bson:"title" json:"title"`
	Thumbnail string     `bson:"thumbnail" json:"thumbnail"`
	Duration  float64    `bson:"duration" json:"duration"`
	Views     int64      `bson:"views" json:"views"`
	Owner     VideoOwner `bson:"owner" json:"owner"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
}
