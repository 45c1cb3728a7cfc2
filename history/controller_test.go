package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/snapshot_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	current  string
	puts     []string
	records  []snapshot_store.SnapshotRecord
	nextID   int64
	appends  int
	lists    int
	putErr   error
	writeErr error
}

func (f *fakeStore) PutCurrentText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, text)
	f.current = text
	return nil
}

func (f *fakeStore) GetCurrentText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == "" {
		return snapshot_store.DefaultPlaceholder, nil
	}
	return f.current, nil
}

func (f *fakeStore) AppendSnapshot(_ context.Context, text string, root *hierarchy.Node) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.appends++
	f.nextID++
	f.records = append(f.records, snapshot_store.SnapshotRecord{
		ID: f.nextID, Key: text, Value: root, Timestamp: time.Now().UnixMilli(),
	})
	return f.nextID, nil
}

func (f *fakeStore) ListSnapshots(context.Context) ([]snapshot_store.SnapshotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return append([]snapshot_store.SnapshotRecord{}, f.records...), nil
}

func (f *fakeStore) GetSnapshot(_ context.Context, id int64) (snapshot_store.SnapshotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return snapshot_store.SnapshotRecord{}, snapshot_store.ErrNotFound
}

func (f *fakeStore) DeleteSnapshot(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i, r := range f.records {
		if r.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return snapshot_store.ErrNotFound
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func TestAutosave_TenCallsOneWrite(t *testing.T) {
	store := &fakeStore{}
	c := NewController(store, 40*time.Millisecond, nil)

	for i := 1; i <= 10; i++ {
		c.Autosave(fmt.Sprintf("text %d", i))
	}

	require.Eventually(t, func() bool { return store.putCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"text 10"}, store.puts)
	assert.Zero(t, store.appends)
	assert.Zero(t, store.lists)
}

func TestAutosave_InvalidTextStillPersists(t *testing.T) {
	store := &fakeStore{}
	c := NewController(store, time.Hour, nil)

	c.Autosave("x +")
	assert.True(t, c.AutosavePending())
	require.NoError(t, c.Close())

	text, err := c.CurrentText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x +", text)
}

func TestAutosave_FailureIsRetriedByNextCall(t *testing.T) {
	store := &fakeStore{putErr: errors.New("disk full")}
	c := NewController(store, time.Hour, nil)

	c.Autosave("one")
	assert.True(t, c.FlushAutosave())
	assert.Error(t, c.AutosaveErr())

	store.mu.Lock()
	store.putErr = nil
	store.mu.Unlock()

	c.Autosave("two")
	c.FlushAutosave()
	assert.NoError(t, c.AutosaveErr())
	assert.Equal(t, []string{"two"}, store.puts)
}

func TestSaveAndDeleteReloadLog(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := NewController(store, time.Hour, nil)

	var notified [][]snapshot_store.SnapshotRecord
	c.OnChange(func(records []snapshot_store.SnapshotRecord) { notified = append(notified, records) })

	root := &hierarchy.Node{Label: "Program", Children: []*hierarchy.Node{}}
	id, err := c.Save(ctx, "let x = 1;", root)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lists)
	require.Len(t, c.Records(), 1)

	record, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, "let x = 1;", record.Key)

	_, err = c.Save(ctx, "b", root)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, id))
	assert.Equal(t, 3, store.lists)

	records := c.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Key)
	_, ok = c.Get(id)
	assert.False(t, ok)
	assert.Len(t, notified, 3)
}

func TestSaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := NewController(store, time.Hour, nil)

	_, err := c.Save(ctx, "a", nil)
	require.NoError(t, err)

	store.writeErr = errors.New("locked")
	_, err = c.Save(ctx, "b", nil)
	assert.Error(t, err)
	assert.Len(t, c.Records(), 1)

	assert.Error(t, c.Delete(ctx, 1))
	assert.Len(t, c.Records(), 1)
}

func TestRecordsIsACopy(t *testing.T) {
	store := &fakeStore{}
	c := NewController(store, time.Hour, nil)
	_, err := c.Save(context.Background(), "a", nil)
	require.NoError(t, err)

	records := c.Records()
	records[0].Key = "mutated"
	assert.Equal(t, "a", c.Records()[0].Key)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := NewController(store, time.Hour, nil)

	id, err := c.Save(ctx, "const restored = true;", nil)
	require.NoError(t, err)

	c.Autosave("pending edit")
	record, err := c.Restore(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "const restored = true;", record.Key)
	assert.False(t, c.AutosavePending())

	text, err := c.CurrentText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "const restored = true;", text)

	_, err = c.Restore(ctx, 99)
	assert.ErrorIs(t, err, snapshot_store.ErrNotFound)
}

func TestRestore_DropsAutosaveAlreadyFiring(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	c := NewController(store, time.Hour, nil)

	id, err := c.Save(ctx, "const restored = true;", nil)
	require.NoError(t, err)

	// the timer fired and took this value before Restore stopped the debouncer
	fired := pendingText{text: "typed before restore", generation: c.generation.Load()}
	_, err = c.Restore(ctx, id)
	require.NoError(t, err)
	c.writeCurrent(fired)

	text, err := c.CurrentText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "const restored = true;", text)
	assert.NotContains(t, store.puts, "typed before restore")

	c.Autosave("typed after restore")
	require.True(t, c.FlushAutosave())
	text, err = c.CurrentText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "typed after restore", text)
}

func TestAgainstSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := snapshot_store.New(t.TempDir()+"/history.db", snapshot_store.Options{})
	defer store.Close()
	c := NewController(store, 20*time.Millisecond, nil)

	text, err := c.CurrentText(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot_store.DefaultPlaceholder, text)

	c.Autosave("let a;")
	c.Autosave("let ab;")
	require.Eventually(t, func() bool {
		got, err := store.GetCurrentText(ctx)
		return err == nil && got == "let ab;"
	}, time.Second, 10*time.Millisecond)

	id, err := c.Save(ctx, "let ab;", &hierarchy.Node{Label: "Program", Children: []*hierarchy.Node{}})
	require.NoError(t, err)
	require.Len(t, c.Records(), 1)
	require.NoError(t, c.Delete(ctx, id))
	assert.Empty(t, c.Records())
}
