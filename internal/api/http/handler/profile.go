package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// multipartOverhead is the allowance for multipart headers on top of the image.
const multipartOverhead = 1 << 20

// ProfileService defines profile CRUD and image operations.
type ProfileService interface {
	Create(ctx context.Context, params model.CreateProfileParams) (model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
	Get(ctx context.Context, id string) (model.Profile, error)
	Delete(ctx context.Context, id string) (model.Profile, error)
	UpdateImage(ctx context.Context, id string, r io.Reader) (string, error)
	OpenImage(ctx context.Context, key string) (io.ReadCloser, model.ObjectInfo, error)
}

// Profile handles the /data endpoints and image serving.
type Profile struct {
	profileService ProfileService
	maxImageBytes  int64
	logger         *logger.Logger
}

// NewProfile creates a new Profile handler.
func NewProfile(profileService ProfileService, maxImageBytes int64, logger *logger.Logger) *Profile {
	return &Profile{
		profileService: profileService,
		maxImageBytes:  maxImageBytes,
		logger:         logger,
	}
}

func (h *Profile) Create(w http.ResponseWriter, r *http.Request) {
	var params model.CreateProfileParams
	if err := decodeJSON(r, &params); err != nil {
		handleError(w, err)
		return
	}

	profile, err := h.profileService.Create(r.Context(), params)
	if err != nil {
		logFailure(h.logger, "Profile handler: create failed", err, "nickname", params.Nickname)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

func (h *Profile) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileService.List(r.Context())
	if err != nil {
		logFailure(h.logger, "Profile handler: list failed", err)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}

func (h *Profile) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	profile, err := h.profileService.Get(r.Context(), id)
	if err != nil {
		logFailure(h.logger, "Profile handler: get failed", err, "profile_id", id)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Profile) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	deleted, err := h.profileService.Delete(r.Context(), id)
	if err != nil {
		logFailure(h.logger, "Profile handler: delete failed", err, "profile_id", id)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleted)
}

// UpdateImage accepts a multipart upload in the "image" field.
func (h *Profile) UpdateImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartOverhead)
	file, _, err := r.FormFile("image")
	if err != nil {
		handleError(w, model.NewValidationError("Image is missing", err))
		return
	}
	defer file.Close()

	image, err := h.profileService.UpdateImage(r.Context(), id, file)
	if err != nil {
		logFailure(h.logger, "Profile handler: image update failed", err, "profile_id", id)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"image": image})
}

// Image streams an uploaded image.
func (h *Profile) Image(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	body, info, err := h.profileService.OpenImage(r.Context(), key)
	if err != nil {
		logFailure(h.logger, "Profile handler: image read failed", err, "key", key)
		handleError(w, err)
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("Profile handler: image stream interrupted",
			"key", key,
			"error", err.Error())
	}
}
