package models

import "time"

// User — доменная модель аккаунта пользователя.
// PasswordHash и RefreshToken никогда не сериализуются наружу (json:"-");
// перед отдачей клиенту пользователь дополнительно проходит Redacted().
type User struct {
	// ID — hex-представление Mongo ObjectID.
	ID       string `bson:"_id,omitempty" json:"id"`
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`
	FullName string `bson:"full_name" json:"fullName"`

	// Avatar — публичный URL в медиахранилище; обязателен.
	Avatar string `bson:"avatar" json:"avatar"`
	// CoverImage — публичный URL обложки; опционален.
	CoverImage string `bson:"cover_image,omitempty" json:"coverImage,omitempty"`

	PasswordHash string `bson:"password_hash" json:"-"`
	// RefreshToken — единственный действующий refresh-токен пользователя.
	// Перезапись значения инвалидирует предыдущий токен (ротация),
	// пустое значение — токенов нет (logout).
	RefreshToken string `bson:"refresh_token,omitempty" json:"-"`

	// WatchHistory — ссылки на просмотренные видео (hex ObjectID).
	WatchHistory []string `bson:"watch_history,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Redacted возвращает копию без учётных полей (хэш пароля, refresh-токен).
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}

	c := *u
	c.PasswordHash = ""
	c.RefreshToken = ""

	return &c
}

// UserPatch — частичное обновление пользователя: поле nil — «не трогать».
// Пустая строка у не-nil поля означает явную очистку значения.
type UserPatch struct {
	Username     *string
	Email        *string
	FullName     *string
	Avatar       *string
	CoverImage   *string
	PasswordHash *string
}

// Empty сообщает, что патч не содержит ни одного изменения.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FullName == nil &&
		p.Avatar == nil && p.CoverImage == nil && p.PasswordHash == nil
}
