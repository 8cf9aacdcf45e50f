package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/savelyevam/vidhub/internal/service"
	"github.com/savelyevam/vidhub/internal/transport/http/middleware"
	"github.com/savelyevam/vidhub/internal/transport/http/response"
)

// CurrentUser — GET / (защищён).
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	response.JSON(w, http.StatusOK, "User fetched successfully!", user)
}

type updateInfoRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
}

// UpdateInfo — PUT /update-user-info (защищён).
// Частичное обновление: отсутствующее в JSON поле не трогается.
func (h *Handlers) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	var in updateInfoRequest
	if err := h.decodeStrict(w, r, &in); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}

	updated, err := h.svc.UpdateProfile(r.Context(), user.ID, service.UpdateProfileInput{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, "User updated successfully!", updated)
}

// UpdateAvatar — PUT /update-avatar (защищён, multipart).
// 202: новая картинка уже доступна, подчистка старой идёт в фоне.
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", "Avatar updated successfully!",
		func(r *http.Request, userID string, upload *service.Upload) (any, error) {
			return h.svc.UpdateAvatar(r.Context(), userID, upload)
		})
}

// UpdateCoverImage — PUT /update-cover-image (защищён, multipart).
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", "Cover Image updated successfully!",
		func(r *http.Request, userID string, upload *service.Upload) (any, error) {
			return h.svc.UpdateCoverImage(r.Context(), userID, upload)
		})
}

func (h *Handlers) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field, message string,
	update func(r *http.Request, userID string, upload *service.Upload) (any, error),
) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request data!")
		return
	}

	upload, file, err := formUpload(r, field)
	if err != nil || upload == nil {
		response.Fail(w, http.StatusBadRequest, "Image file is required!")
		return
	}
	defer file.Close()

	updated, err := update(r, user.ID, upload)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusAccepted, message, updated)
}

// Channel — GET /{channelUsername} (защищён).
// Возвращает публичный профиль канала глазами текущего пользователя.
func (h *Handlers) Channel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	username := chi.URLParam(r, "channelUsername")
	if username == "" {
		response.Fail(w, http.StatusBadRequest, "Username is required!")
		return
	}

	channel, err := h.svc.Channel(r.Context(), username, user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, "Channel data retrieved successfully!", channel)
}

// History — GET /history (защищён).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Unauthorized request!")
		return
	}

	history, err := h.svc.WatchHistory(r.Context(), user.ID)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, "Watch history retrieved successfully!", history)
}
