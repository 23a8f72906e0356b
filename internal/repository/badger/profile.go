package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dtroode/chatdata-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

const (
	profilePrefix  = "profile:"
	nicknamePrefix = "nickname:"
)

type ProfileRepository struct {
	db         *badger.DB
	maxRetries int
}

func NewProfileRepository(db *badger.DB, maxRetries int) *ProfileRepository {
	return &ProfileRepository{db: db, maxRetries: maxRetries}
}

func profileKey(id uuid.UUID) []byte {
	return []byte(profilePrefix + id.String())
}

func nicknameKey(nickname string) []byte {
	return []byte(nicknamePrefix + nickname)
}

func (r *ProfileRepository) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	if profile.Messages == nil {
		profile.Messages = []model.Message{}
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to encode profile: %w", err)
	}

	err = update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		if _, err := txn.Get(nicknameKey(profile.Nickname)); err == nil {
			return fmt.Errorf("nickname %q: %w", profile.Nickname, model.ErrConflict)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(nicknameKey(profile.Nickname), []byte(profile.ID.String())); err != nil {
			return err
		}
		return txn.Set(profileKey(profile.ID), data)
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	var profile model.Profile
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		profile, err = getProfile(txn, id)
		return err
	})
	if err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

func (r *ProfileRepository) GetByNickname(ctx context.Context, nickname string) (model.Profile, error) {
	var profile model.Profile
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nicknameKey(nickname))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return model.ErrNotFound
			}
			return fmt.Errorf("failed to get nickname index: %w", err)
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuid.ParseBytes(raw)
		if err != nil {
			return fmt.Errorf("corrupt nickname index %q: %w", nickname, err)
		}
		profile, err = getProfile(txn, id)
		return err
	})
	if err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

// List returns every profile ordered by creation time.
func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	profiles := []model.Profile{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(profilePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p model.Profile
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("failed to decode profile %s: %w", it.Item().Key(), err)
			}
			if p.Messages == nil {
				p.Messages = []model.Message{}
			}
			profiles = append(profiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	slices.SortStableFunc(profiles, func(a, b model.Profile) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return profiles, nil
}

func (r *ProfileRepository) UpdateImage(ctx context.Context, id uuid.UUID, image string) (string, error) {
	var previous string
	_, err := r.mutate(ctx, id, func(p *model.Profile) (bool, error) {
		previous = p.Image
		p.Image = image
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	var deleted model.Profile
	err := update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		p, err := getProfile(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(nicknameKey(p.Nickname)); err != nil {
			return err
		}
		if err := txn.Delete(profileKey(id)); err != nil {
			return err
		}
		deleted = p
		return nil
	})
	if err != nil {
		return model.Profile{}, err
	}
	return deleted, nil
}

func (r *ProfileRepository) AppendMessage(ctx context.Context, profileID uuid.UUID, msg model.Message) (model.Profile, bool, error) {
	var appended bool
	profile, err := r.mutate(ctx, profileID, func(p *model.Profile) (bool, error) {
		if _, ok := p.FindMessage(msg.ID); ok {
			appended = false
			return false, nil
		}
		p.Messages = append(p.Messages, msg)
		appended = true
		return true, nil
	})
	if err != nil {
		return model.Profile{}, false, err
	}
	return profile, appended, nil
}

func (r *ProfileRepository) MarkSeenWith(ctx context.Context, profileID uuid.UUID, nickname string) (model.Profile, error) {
	return r.mutate(ctx, profileID, func(p *model.Profile) (bool, error) {
		changed := false
		for i := range p.Messages {
			if p.Messages[i].Involves(nickname) && !p.Messages[i].Seen {
				p.Messages[i].Seen = true
				changed = true
			}
		}
		return changed, nil
	})
}

func (r *ProfileRepository) MarkMessageSeen(ctx context.Context, profileID uuid.UUID, messageID string) (model.Profile, error) {
	return r.mutate(ctx, profileID, func(p *model.Profile) (bool, error) {
		idx := slices.IndexFunc(p.Messages, func(m model.Message) bool { return m.ID == messageID })
		if idx < 0 {
			return false, model.ErrMessageNotFound
		}
		if p.Messages[idx].Seen {
			return false, nil
		}
		p.Messages[idx].Seen = true
		return true, nil
	})
}

func (r *ProfileRepository) Ping(_ context.Context) error {
	return ping(r.db)
}

// mutate applies fn to the stored profile inside one optimistic transaction.
// The document is rewritten only when fn reports a change.
func (r *ProfileRepository) mutate(ctx context.Context, id uuid.UUID, fn func(p *model.Profile) (bool, error)) (model.Profile, error) {
	var result model.Profile
	err := update(ctx, r.db, r.maxRetries, func(txn *badger.Txn) error {
		p, err := getProfile(txn, id)
		if err != nil {
			return err
		}
		changed, err := fn(&p)
		if err != nil {
			return err
		}
		if changed {
			p.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to encode profile: %w", err)
			}
			if err := txn.Set(profileKey(id), data); err != nil {
				return err
			}
		}
		result = p
		return nil
	})
	if err != nil {
		return model.Profile{}, err
	}
	return result, nil
}

func getProfile(txn *badger.Txn, id uuid.UUID) (model.Profile, error) {
	item, err := txn.Get(profileKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	var p model.Profile
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	}); err != nil {
		return model.Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	if p.Messages == nil {
		p.Messages = []model.Message{}
	}
	return p, nil
}
