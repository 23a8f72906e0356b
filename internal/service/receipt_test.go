package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/chatdata-server/internal/mocks"
	"github.com/dtroode/chatdata-server/internal/model"
	"github.com/dtroode/chatdata-server/internal/testutil"
)

func TestReceipts_MarkSeen(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	bus := &recordingBus{}
	ledger := NewLedger(store, bus, testutil.MakeNoopLogger())
	receipts := NewReceipts(store, bus, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")
	bob := createProfile(t, store, "bob")

	_, err := ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "bob", "alice"))
	require.NoError(t, err)
	_, err = ledger.AppendMessage(ctx, appendParams(alice.ID, "m2", "alice", "bob"))
	require.NoError(t, err)

	got, err := receipts.MarkSeen(ctx, alice.ID.String(), "bob")
	require.NoError(t, err)
	for _, m := range got.Messages {
		assert.True(t, m.Seen, m.ID)
	}

	// Repeating is a no-op and seen never reverts.
	again, err := receipts.MarkSeen(ctx, alice.ID.String(), "bob")
	require.NoError(t, err)
	assert.Equal(t, got.Messages, again.Messages)

	// The other copy is untouched.
	bobNow, err := store.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	for _, m := range bobNow.Messages {
		assert.False(t, m.Seen, m.ID)
	}

	require.Len(t, bus.data, 4)
	assert.Equal(t, model.EventMessageSeen, bus.events[2])
	assert.Equal(t, model.SeenEvent{ProfileID: alice.ID.String(), Nickname: "alice", With: "bob"}, bus.data[2])
}

func TestReceipts_MarkSingleSeen(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	bus := &recordingBus{}
	ledger := NewLedger(store, bus, testutil.MakeNoopLogger())
	receipts := NewReceipts(store, bus, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")
	_, err := ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "bob", "alice"))
	require.NoError(t, err)
	_, err = ledger.AppendMessage(ctx, appendParams(alice.ID, "m2", "bob", "alice"))
	require.NoError(t, err)

	got, err := receipts.MarkSingleSeen(ctx, alice.ID.String(), "m2")
	require.NoError(t, err)
	assert.False(t, got.Messages[0].Seen)
	assert.True(t, got.Messages[1].Seen)

	got, err = receipts.MarkSeen(ctx, alice.ID.String(), "bob")
	require.NoError(t, err)
	got, err = receipts.MarkSingleSeen(ctx, alice.ID.String(), "m2")
	require.NoError(t, err)
	assert.True(t, got.Messages[0].Seen)
	assert.True(t, got.Messages[1].Seen)

	_, err = receipts.MarkSingleSeen(ctx, alice.ID.String(), "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
	var merr *model.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "message not found", merr.Message)
}

func TestReceipts_Errors(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name  string
		setup func(store *mocks.ProfileStore)
		call  func(r *Receipts) error
		want  error
	}{
		{
			name: "bad_id",
			call: func(r *Receipts) error {
				_, err := r.MarkSeen(ctx, "nope", "bob")
				return err
			},
			want: model.ErrValidation,
		},
		{
			name: "missing_user",
			call: func(r *Receipts) error {
				_, err := r.MarkSeen(ctx, id.String(), " ")
				return err
			},
			want: model.ErrValidation,
		},
		{
			name: "missing_message_id",
			call: func(r *Receipts) error {
				_, err := r.MarkSingleSeen(ctx, id.String(), "")
				return err
			},
			want: model.ErrValidation,
		},
		{
			name: "profile_missing",
			setup: func(store *mocks.ProfileStore) {
				store.On("MarkSeenWith", ctx, id, "bob").Return(model.Profile{}, model.ErrNotFound).Once()
			},
			call: func(r *Receipts) error {
				_, err := r.MarkSeen(ctx, id.String(), "bob")
				return err
			},
			want: model.ErrNotFound,
		},
		{
			name: "store_failure",
			setup: func(store *mocks.ProfileStore) {
				store.On("MarkMessageSeen", ctx, id, "m1").Return(model.Profile{}, assert.AnError).Once()
			},
			call: func(r *Receipts) error {
				_, err := r.MarkSingleSeen(ctx, id.String(), "m1")
				return err
			},
			want: model.ErrStorage,
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewProfileStore(t)
			if tt.setup != nil {
				tt.setup(store)
			}
			r := NewReceipts(store, mocks.NewBroadcaster(t), testutil.MakeNoopLogger())
			require.ErrorIs(t, tt.call(r), tt.want)
		})
	}
}

func TestReceipts_BroadcastFailureIgnored(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	store := mocks.NewProfileStore(t)
	bus := mocks.NewBroadcaster(t)

	store.On("MarkSeenWith", ctx, id, "bob").Return(model.Profile{ID: id, Nickname: "alice"}, nil).Once()
	bus.On("Broadcast", model.EventMessageSeen, mock.Anything).Return(assert.AnError).Once()

	got, err := NewReceipts(store, bus, testutil.MakeNoopLogger()).MarkSeen(ctx, id.String(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Nickname)
}
