package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/chatdata-server/internal/mocks"
	"github.com/dtroode/chatdata-server/internal/model"
	badgerrepo "github.com/dtroode/chatdata-server/internal/repository/badger"
	"github.com/dtroode/chatdata-server/internal/testutil"
)

// recordingBus collects broadcasts for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (b *recordingBus) Broadcast(event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	b.data = append(b.data, payload)
	return nil
}

func newBadgerStore(t *testing.T) model.ProfileStore {
	t.Helper()
	db, err := badgerrepo.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badgerrepo.NewProfileRepository(db, 0)
}

func createProfile(t *testing.T, store model.ProfileStore, nickname string) model.Profile {
	t.Helper()
	now := time.Now().UTC()
	p, err := store.Create(context.Background(), model.Profile{
		ID:        uuid.New(),
		Nickname:  nickname,
		Email:     nickname + "@example.com",
		Image:     "/" + nickname + ".png",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return p
}

func appendParams(profileID uuid.UUID, id, from, to string) model.AppendMessageParams {
	return model.AppendMessageParams{
		ProfileID: profileID.String(),
		ID:        id,
		From:      from,
		To:        to,
		Content:   "hi",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLedger_AppendMessage_DualLog(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	bus := &recordingBus{}
	ledger := NewLedger(store, bus, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")
	bob := createProfile(t, store, "bob")

	res, err := ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "bob", "alice"))
	require.NoError(t, err)
	require.NotNil(t, res.Counterpart)
	assert.Equal(t, alice.ID, res.Addressed.ID)
	assert.Equal(t, bob.ID, res.Counterpart.ID)

	a, ok := res.Addressed.FindMessage("m1")
	require.True(t, ok)
	b, ok := res.Counterpart.FindMessage("m1")
	require.True(t, ok)
	assert.Equal(t, a, b)

	// A retry leaves exactly one copy in each log and still broadcasts.
	res, err = ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "bob", "alice"))
	require.NoError(t, err)
	assert.Len(t, res.Addressed.Messages, 1)
	assert.Len(t, res.Counterpart.Messages, 1)
	assert.Equal(t, []string{model.EventMessageNew, model.EventMessageNew}, bus.events)

	// Addressing the sender's own log works the same way.
	res, err = ledger.AppendMessage(ctx, appendParams(bob.ID, "m2", "bob", "alice"))
	require.NoError(t, err)
	require.NotNil(t, res.Counterpart)
	assert.Equal(t, "alice", res.Counterpart.Nickname)
	assert.Len(t, res.Counterpart.Messages, 2)
}

func TestLedger_AppendMessage_UnresolvedCounterpart(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	ledger := NewLedger(store, &recordingBus{}, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")

	res, err := ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "ghost", "alice"))
	require.NoError(t, err)
	assert.Nil(t, res.Counterpart)
	assert.Len(t, res.Addressed.Messages, 1)
}

func TestLedger_AppendMessage_SelfMessage(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	ledger := NewLedger(store, &recordingBus{}, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")

	res, err := ledger.AppendMessage(ctx, appendParams(alice.ID, "note", "alice", "alice"))
	require.NoError(t, err)
	require.NotNil(t, res.Counterpart)
	assert.Equal(t, alice.ID, res.Counterpart.ID)
	assert.Len(t, res.Addressed.Messages, 1)
}

func TestLedger_AppendMessage_ConcurrentRetries(t *testing.T) {
	ctx := context.Background()
	db, err := badgerrepo.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := badgerrepo.NewProfileRepository(db, 100)
	ledger := NewLedger(store, &recordingBus{}, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")
	bob := createProfile(t, store, "bob")

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "bob", "alice"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		p, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Len(t, p.Messages, 1, p.Nickname)
	}
}

func TestLedger_AppendMessage_Validation(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewProfileStore(t)
	ledger := NewLedger(store, mocks.NewBroadcaster(t), testutil.MakeNoopLogger())

	id := uuid.New()
	long := make([]byte, model.MaxContentBytes+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name   string
		mutate func(p *model.AppendMessageParams)
	}{
		{"bad_profile_id", func(p *model.AppendMessageParams) { p.ProfileID = "not-a-uuid" }},
		{"missing_id", func(p *model.AppendMessageParams) { p.ID = "" }},
		{"missing_from", func(p *model.AppendMessageParams) { p.From = "  " }},
		{"missing_to", func(p *model.AppendMessageParams) { p.To = "" }},
		{"missing_content", func(p *model.AppendMessageParams) { p.Content = "" }},
		{"missing_timestamp", func(p *model.AppendMessageParams) { p.Timestamp = time.Time{} }},
		{"content_too_long", func(p *model.AppendMessageParams) { p.Content = string(long) }},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			params := appendParams(id, "m1", "bob", "alice")
			tt.mutate(&params)

			_, err := ledger.AppendMessage(ctx, params)
			require.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestLedger_AppendMessage_Errors(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	alice := model.Profile{ID: id, Nickname: "alice", Messages: []model.Message{}}

	t.Run("addressed_missing", func(t *testing.T) {
		store := mocks.NewProfileStore(t)
		store.On("GetByID", ctx, id).Return(model.Profile{}, model.ErrNotFound).Once()

		_, err := NewLedger(store, mocks.NewBroadcaster(t), testutil.MakeNoopLogger()).
			AppendMessage(ctx, appendParams(id, "m1", "bob", "alice"))
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("third_party_log", func(t *testing.T) {
		store := mocks.NewProfileStore(t)
		store.On("GetByID", ctx, id).Return(alice, nil).Once()

		_, err := NewLedger(store, mocks.NewBroadcaster(t), testutil.MakeNoopLogger()).
			AppendMessage(ctx, appendParams(id, "m1", "bob", "carol"))
		require.ErrorIs(t, err, model.ErrValidation)
		store.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("step_a_failure", func(t *testing.T) {
		store := mocks.NewProfileStore(t)
		store.On("GetByID", ctx, id).Return(alice, nil).Once()
		store.On("AppendMessage", ctx, id, mock.Anything).Return(model.Profile{}, false, assert.AnError).Once()

		_, err := NewLedger(store, mocks.NewBroadcaster(t), testutil.MakeNoopLogger()).
			AppendMessage(ctx, appendParams(id, "m1", "bob", "alice"))
		require.ErrorIs(t, err, model.ErrStorage)
	})

	t.Run("step_b_failure_skips_broadcast", func(t *testing.T) {
		bobID := uuid.New()
		store := mocks.NewProfileStore(t)
		bus := mocks.NewBroadcaster(t)
		store.On("GetByID", ctx, id).Return(alice, nil).Once()
		store.On("AppendMessage", ctx, id, mock.Anything).Return(alice, true, nil).Once()
		store.On("GetByNickname", ctx, "bob").Return(model.Profile{ID: bobID, Nickname: "bob"}, nil).Once()
		store.On("AppendMessage", ctx, bobID, mock.Anything).Return(model.Profile{}, false, assert.AnError).Once()

		_, err := NewLedger(store, bus, testutil.MakeNoopLogger()).
			AppendMessage(ctx, appendParams(id, "m1", "bob", "alice"))
		require.ErrorIs(t, err, model.ErrStorage)
		bus.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})

	t.Run("counterpart_deleted_midway", func(t *testing.T) {
		bobID := uuid.New()
		store := mocks.NewProfileStore(t)
		bus := mocks.NewBroadcaster(t)
		store.On("GetByID", ctx, id).Return(alice, nil).Once()
		store.On("AppendMessage", ctx, id, mock.Anything).Return(alice, true, nil).Once()
		store.On("GetByNickname", ctx, "bob").Return(model.Profile{ID: bobID, Nickname: "bob"}, nil).Once()
		store.On("AppendMessage", ctx, bobID, mock.Anything).Return(model.Profile{}, false, model.ErrNotFound).Once()
		bus.On("Broadcast", model.EventMessageNew, mock.Anything).Return(assert.AnError).Once()

		res, err := NewLedger(store, bus, testutil.MakeNoopLogger()).
			AppendMessage(ctx, appendParams(id, "m1", "bob", "alice"))
		require.NoError(t, err)
		assert.Nil(t, res.Counterpart)
	})
}

func TestLedger_Reconcile(t *testing.T) {
	ctx := context.Background()
	store := newBadgerStore(t)
	ledger := NewLedger(store, &recordingBus{}, testutil.MakeNoopLogger())

	alice := createProfile(t, store, "alice")
	bob := createProfile(t, store, "bob")

	rec, err := ledger.Reconcile(ctx, alice.ID.String(), "m1")
	require.NoError(t, err)
	assert.Equal(t, model.Reconciliation{MessageID: "m1", Addressed: "alice"}, rec)

	// Simulate a crash after step A.
	_, _, err = store.AppendMessage(ctx, alice.ID, appendParams(alice.ID, "m1", "bob", "alice").Message())
	require.NoError(t, err)

	rec, err = ledger.Reconcile(ctx, alice.ID.String(), "m1")
	require.NoError(t, err)
	assert.True(t, rec.InAddressed)
	assert.False(t, rec.InCounterpart)
	assert.False(t, rec.Complete)
	assert.Equal(t, "bob", rec.Counterpart)

	_, err = ledger.AppendMessage(ctx, appendParams(alice.ID, "m1", "bob", "alice"))
	require.NoError(t, err)

	rec, err = ledger.Reconcile(ctx, alice.ID.String(), "m1")
	require.NoError(t, err)
	assert.True(t, rec.Complete)

	_, err = store.Delete(ctx, bob.ID)
	require.NoError(t, err)
	rec, err = ledger.Reconcile(ctx, alice.ID.String(), "m1")
	require.NoError(t, err)
	assert.True(t, rec.Complete)
	assert.False(t, rec.InCounterpart)

	_, err = ledger.Reconcile(ctx, "bad", "m1")
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = ledger.Reconcile(ctx, alice.ID.String(), "")
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = ledger.Reconcile(ctx, uuid.NewString(), "m1")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCounterpartOf(t *testing.T) {
	tests := []struct {
		from, to, self string
		want           string
		ok             bool
	}{
		{"bob", "alice", "alice", "bob", true},
		{"bob", "alice", "bob", "alice", true},
		{"alice", "alice", "alice", "alice", true},
		{"bob", "alice", "carol", "", false},
	}
	for _, tt := range tests {
		tt := tt
		got, ok := counterpartOf(tt.from, tt.to, tt.self)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ok, ok)
	}
}
