package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"

	"github.com/dtroode/chatdata-server/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// querier is the subset shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ProfileRepository struct {
	db *Connection
}

func NewProfileRepository(db *Connection) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	const query = `
		INSERT INTO profiles (id, nickname, email, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, nickname, email, image, created_at, updated_at`

	var saved model.Profile
	err := r.db.QueryRow(ctx, query,
		profile.ID, profile.Nickname, profile.Email, profile.Image, profile.CreatedAt, profile.UpdatedAt,
	).Scan(&saved.ID, &saved.Nickname, &saved.Email, &saved.Image, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return model.Profile{}, fmt.Errorf("nickname %q: %w", profile.Nickname, model.ErrConflict)
		}
		return model.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}
	saved.Messages = []model.Message{}

	return saved, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	return r.load(ctx, r.db, `WHERE id = $1`, id)
}

func (r *ProfileRepository) GetByNickname(ctx context.Context, nickname string) (model.Profile, error) {
	return r.load(ctx, r.db, `WHERE nickname = $1`, nickname)
}

func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	const profilesQuery = `
		SELECT id, nickname, email, image, created_at, updated_at
		FROM profiles
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, profilesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	profiles, err := pgx.CollectRows(rows, scanProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}

	const messagesQuery = `
		SELECT profile_id, message_id, from_user, to_user, content, sent_at, seen
		FROM profile_messages
		ORDER BY position ASC`

	rows, err = r.db.Query(ctx, messagesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	type ownedMessage struct {
		profileID uuid.UUID
		message   model.Message
	}
	owned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ownedMessage, error) {
		var om ownedMessage
		err := row.Scan(&om.profileID, &om.message.ID, &om.message.From, &om.message.To,
			&om.message.Content, &om.message.Timestamp, &om.message.Seen)
		return om, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}

	byProfile := lo.GroupBy(owned, func(om ownedMessage) uuid.UUID { return om.profileID })
	for i := range profiles {
		profiles[i].Messages = lo.Map(byProfile[profiles[i].ID], func(om ownedMessage, _ int) model.Message {
			return om.message
		})
	}

	return profiles, nil
}

func (r *ProfileRepository) UpdateImage(ctx context.Context, id uuid.UUID, image string) (string, error) {
	const query = `
		UPDATE profiles p SET image = $2, updated_at = NOW()
		FROM (SELECT id, image FROM profiles WHERE id = $1 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING old.image`

	var previous string
	if err := r.db.QueryRow(ctx, query, id, image).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("failed to update profile image: %w", err)
	}
	return previous, nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	var deleted model.Profile
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		p, err := r.load(ctx, tx, `WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
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
	const insert = `
		INSERT INTO profile_messages (profile_id, message_id, from_user, to_user, content, sent_at, seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (profile_id, message_id) DO NOTHING`

	var (
		profile  model.Profile
		appended bool
	)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProfile(ctx, tx, profileID); err != nil {
			return err
		}

		cmd, err := tx.Exec(ctx, insert, profileID, msg.ID, msg.From, msg.To, msg.Content, msg.Timestamp, msg.Seen)
		if err != nil {
			if pgCode(err) == codeForeignKeyViolation {
				return model.ErrNotFound
			}
			return fmt.Errorf("failed to append message: %w", err)
		}
		appended = cmd.RowsAffected() > 0
		if appended {
			if _, err := tx.Exec(ctx, `UPDATE profiles SET updated_at = NOW() WHERE id = $1`, profileID); err != nil {
				return fmt.Errorf("failed to touch profile: %w", err)
			}
		}

		profile, err = r.load(ctx, tx, `WHERE id = $1`, profileID)
		return err
	})
	if err != nil {
		return model.Profile{}, false, err
	}
	return profile, appended, nil
}

func (r *ProfileRepository) MarkSeenWith(ctx context.Context, profileID uuid.UUID, nickname string) (model.Profile, error) {
	const query = `
		UPDATE profile_messages SET seen = TRUE
		WHERE profile_id = $1 AND (to_user = $2 OR from_user = $2) AND NOT seen`

	var profile model.Profile
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProfile(ctx, tx, profileID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, profileID, nickname); err != nil {
			return fmt.Errorf("failed to mark messages seen: %w", err)
		}
		var err error
		profile, err = r.load(ctx, tx, `WHERE id = $1`, profileID)
		return err
	})
	if err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

func (r *ProfileRepository) MarkMessageSeen(ctx context.Context, profileID uuid.UUID, messageID string) (model.Profile, error) {
	const query = `
		UPDATE profile_messages SET seen = TRUE
		WHERE profile_id = $1 AND message_id = $2`

	var profile model.Profile
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProfile(ctx, tx, profileID); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, query, profileID, messageID)
		if err != nil {
			return fmt.Errorf("failed to mark message seen: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return model.ErrMessageNotFound
		}
		profile, err = r.load(ctx, tx, `WHERE id = $1`, profileID)
		return err
	})
	if err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// load reads one profile selected by where and its full message log.
func (r *ProfileRepository) load(ctx context.Context, q querier, where string, arg any) (model.Profile, error) {
	query := `SELECT id, nickname, email, image, created_at, updated_at FROM profiles ` + where

	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	profile, err := pgx.CollectOneRow(rows, scanProfile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, model.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("failed to scan profile: %w", err)
	}

	const messagesQuery = `
		SELECT message_id, from_user, to_user, content, sent_at, seen
		FROM profile_messages
		WHERE profile_id = $1
		ORDER BY position ASC`

	rows, err = q.Query(ctx, messagesQuery, profile.ID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to get messages: %w", err)
	}
	profile.Messages, err = pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to scan messages: %w", err)
	}

	return profile, nil
}

func lockProfile(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM profiles WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to lock profile: %w", err)
	}
	return nil
}

func scanProfile(row pgx.CollectableRow) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Nickname, &p.Email, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	p.Messages = []model.Message{}
	return p, err
}

func scanMessage(row pgx.CollectableRow) (model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.From, &m.To, &m.Content, &m.Timestamp, &m.Seen)
	return m, err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
