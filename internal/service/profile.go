package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

const imageKeyPrefix = "profiles/"

// Profile implements profile CRUD and avatar management.
type Profile struct {
	store       model.ProfileStore
	storage     model.Storage
	imageURL    string
	maxImageLen int64
	logger      *logger.Logger
}

// NewProfile creates the profile service. imageURL is the public prefix under
// which uploaded images are served (for example "/api/images/"). storage may
// be nil, in which case image uploads are rejected.
func NewProfile(store model.ProfileStore, storage model.Storage, imageURL string, maxImageLen int64, logger *logger.Logger) *Profile {
	if !strings.HasSuffix(imageURL, "/") {
		imageURL += "/"
	}
	return &Profile{
		store:       store,
		storage:     storage,
		imageURL:    imageURL,
		maxImageLen: maxImageLen,
		logger:      logger,
	}
}

func (s *Profile) Create(ctx context.Context, params model.CreateProfileParams) (model.Profile, error) {
	params.Nickname = normalizeNickname(params.Nickname)
	params.Email = strings.TrimSpace(params.Email)
	params.Image = strings.TrimSpace(params.Image)

	if err := validate.Struct(params); err != nil {
		if missingRequired(err) {
			return model.Profile{}, invalid("Nickname, image URL, or email is missing", err)
		}
		return model.Profile{}, invalid("Invalid profile data", err)
	}

	now := time.Now().UTC()
	profile, err := s.store.Create(ctx, model.Profile{
		ID:        uuid.New(),
		Nickname:  params.Nickname,
		Email:     params.Email,
		Image:     params.Image,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.logger.Info("Profile service: nickname taken", "nickname", params.Nickname)
			return model.Profile{}, model.NewConflictError("Nickname is already taken", err)
		}
		s.logger.Error("Profile service: failed to create profile",
			"nickname", params.Nickname,
			"error", err.Error())
		return model.Profile{}, model.NewStorageError("An error occurred while saving the data.", err)
	}

	s.logger.Info("Profile service: profile created",
		"profile_id", profile.ID,
		"nickname", profile.Nickname)

	return profile, nil
}

func (s *Profile) List(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("Profile service: failed to list profiles", "error", err.Error())
		return nil, model.NewStorageError("Error retrieving data", err)
	}
	return profiles, nil
}

func (s *Profile) Get(ctx context.Context, id string) (model.Profile, error) {
	profileID, err := parseProfileID(id)
	if err != nil {
		return model.Profile{}, err
	}

	profile, err := s.store.GetByID(ctx, profileID)
	if err != nil {
		return model.Profile{}, storeError("Data not found", err)
	}
	return profile, nil
}

// Delete removes the profile and, best-effort, the image it uploaded. Copies
// of its messages in other logs are kept.
func (s *Profile) Delete(ctx context.Context, id string) (model.Profile, error) {
	profileID, err := parseProfileID(id)
	if err != nil {
		return model.Profile{}, err
	}

	deleted, err := s.store.Delete(ctx, profileID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Error("Profile service: failed to delete profile",
				"profile_id", profileID,
				"error", err.Error())
		}
		return model.Profile{}, storeError("Data not found", err)
	}

	s.removeImage(ctx, deleted.Image)

	s.logger.Info("Profile service: profile deleted",
		"profile_id", deleted.ID,
		"nickname", deleted.Nickname)

	return deleted, nil
}

// UpdateImage stores an uploaded avatar and points the profile at it. The
// previous uploaded image, if any, is removed afterwards.
func (s *Profile) UpdateImage(ctx context.Context, id string, r io.Reader) (string, error) {
	profileID, err := parseProfileID(id)
	if err != nil {
		return "", err
	}
	if s.storage == nil {
		return "", model.NewStorageError("Image storage is not configured", nil)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxImageLen+1))
	if err != nil {
		return "", model.NewValidationError("Failed to read image", err)
	}
	if len(data) == 0 {
		return "", model.NewValidationError("Image is missing", nil)
	}
	if int64(len(data)) > s.maxImageLen {
		return "", model.NewValidationError(fmt.Sprintf("Image exceeds %d bytes", s.maxImageLen), nil)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", model.NewValidationError("Uploaded file is not an image",
			fmt.Errorf("detected %s", mtype.String()))
	}

	if _, err := s.store.GetByID(ctx, profileID); err != nil {
		return "", storeError("Data not found", err)
	}

	key := fmt.Sprintf("%s%s/%s%s", imageKeyPrefix, profileID, uuid.NewString(), mtype.Extension())
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mtype.String()); err != nil {
		s.logger.Error("Profile service: failed to upload image",
			"profile_id", profileID,
			"key", key,
			"error", err.Error())
		return "", model.NewStorageError("Failed to store image", err)
	}

	image := s.imageURL + key
	previous, err := s.store.UpdateImage(ctx, profileID, image)
	if err != nil {
		s.removeImage(ctx, image)
		return "", storeError("Data not found", err)
	}

	s.removeImage(ctx, previous)

	s.logger.Info("Profile service: image updated",
		"profile_id", profileID,
		"key", key,
		"content_type", mtype.String())

	return image, nil
}

// OpenImage streams an uploaded image. The caller closes the reader.
func (s *Profile) OpenImage(ctx context.Context, key string) (io.ReadCloser, model.ObjectInfo, error) {
	if !strings.HasPrefix(key, imageKeyPrefix) || strings.Contains(key, "..") {
		return nil, model.ObjectInfo{}, model.NewValidationError("Invalid image key", nil)
	}
	if s.storage == nil {
		return nil, model.ObjectInfo{}, model.NewNotFoundError("Image not found", nil)
	}

	info, err := s.storage.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ObjectInfo{}, model.NewNotFoundError("Image not found", err)
		}
		return nil, model.ObjectInfo{}, model.NewStorageError("Failed to read image", err)
	}

	body, err := s.storage.Download(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ObjectInfo{}, model.NewNotFoundError("Image not found", err)
		}
		return nil, model.ObjectInfo{}, model.NewStorageError("Failed to read image", err)
	}
	return body, info, nil
}

// removeImage deletes the object behind image when it is one of ours.
func (s *Profile) removeImage(ctx context.Context, image string) {
	key, ok := strings.CutPrefix(image, s.imageURL)
	if !ok || s.storage == nil || !strings.HasPrefix(key, imageKeyPrefix) {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Profile service: failed to remove image",
			"key", key,
			"error", err.Error())
	}
}
