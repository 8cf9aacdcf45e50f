package handlers

import (
	"net/http"

	"github.com/savelyevam/vidhub/internal/service"
	"github.com/savelyevam/vidhub/internal/transport/http/middleware"
	"github.com/savelyevam/vidhub/internal/transport/http/response"
)

// Register — POST /register (multipart/form-data).
// Поля: fullName, email, username, password; файлы: avatar (обязателен),
// coverImage (опционален). Регистрация не логинит: токены не выпускаются.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}

	avatar, avatarFile, err := formUpload(r, "avatar")
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}
	if avatarFile != nil {
		defer avatarFile.Close()
	}

	cover, coverFile, err := formUpload(r, "coverImage")
	if err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}
	if coverFile != nil {
		defer coverFile.Close()
	}

	input := service.RegisterInput{
		Username:   r.FormValue("username"),
		Email:      r.FormValue("email"),
		FullName:   r.FormValue("fullName"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	}

	user, err := h.svc.Register(r.Context(), input)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, "User registration successful!", user)
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login — POST /login.
// Принимает username либо email; при успехе кладёт оба токена в httpOnly-cookie
// и дублирует их в теле ответа (для не-браузерных клиентов).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}

	login := in.Username
	if login == "" {
		login = in.Email
	}
	if login == "" || in.Password == "" {
		response.Fail(w, http.StatusBadRequest, "Username or email is required!")
		return
	}

	user, pair, err := h.svc.Login(r.Context(), login, in.Password)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, http.StatusOK, "User logged in successfully!", map[string]any{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout — POST /logout (защищён).
// Инвалидирует refresh-токен на сервере и стирает auth-cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		response.Error(w, r, err)
		return
	}

	h.clearAuthCookies(w)
	response.JSON(w, http.StatusOK, "User logged out successfully!", map[string]any{})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh — POST /refresh-access-token.
// Токен берётся из cookie refreshToken либо из тела запроса.
// Любая причина отказа (подпись, срок, ротация) схлопывается в общий 401:
// клиенту незачем знать, чем именно плох его токен.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie("refreshToken"); err == nil {
		token = c.Value
	}
	if token == "" {
		var in refreshRequest
		if err := h.decodeStrict(w, r, &in); err == nil {
			token = in.RefreshToken
		}
	}

	if token == "" {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		response.Fail(w, http.StatusUnauthorized, "Failed refreshing access token!")
		return
	}

	h.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, http.StatusOK, "Access token is refreshed!", map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword — PUT /change-password (защищён).
// Смена пароля не трогает refresh-токен: активная сессия остаётся жить.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	var in changePasswordRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), user.ID, in.OldPassword, in.NewPassword); err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, "Password updated successfully!", map[string]any{})
}
