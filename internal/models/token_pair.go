package models

import "time"

// TokenPair — пара подписанных токенов, выпускаемая на login/refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// AccessExpiresAt — момент истечения access-токена (для клиента).
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}
