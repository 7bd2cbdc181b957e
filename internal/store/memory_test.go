package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/site-analytics/internal/pagination"
	"github.com/i474232898/site-analytics/internal/statistics"
)

func testView(t *testing.T) *pagination.View {
	t.Helper()
	s := statistics.NewSet()
	s.Add(statistics.NewRecord(statistics.TimePoint{Year: 2018, Month: 1, Day: 1}, 1, 1, 1))
	v, err := pagination.Build(s)
	require.NoError(t, err)
	return v
}

func TestSessionCachePutGet(t *testing.T) {
	c := NewSessionCache()
	_, err := c.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)

	v1, v2 := testView(t), testView(t)
	c.Put("a", v1)
	c.Put("a", v2)

	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Same(t, v2, got)
	assert.Equal(t, 1, c.Len())
}

func TestSessionCacheReconcile(t *testing.T) {
	c := NewSessionCache()
	v := testView(t)
	c.Put("alive", v)
	c.Put("gone", v)
	c.Put("also-gone", v)

	snap := c.Snapshot()
	removed := c.Reconcile(snap, map[string]struct{}{"alive": {}})
	sort.Strings(removed)

	assert.Equal(t, []string{"also-gone", "gone"}, removed)
	_, err := c.Get("alive")
	assert.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestSessionCacheReconcileKeepsEntriesStoredAfterSnapshot(t *testing.T) {
	c := NewSessionCache()
	v := testView(t)
	c.Put("old", v)

	snap := c.Snapshot()
	c.Put("new", v)

	removed := c.Reconcile(snap, map[string]struct{}{})
	assert.Equal(t, []string{"old"}, removed)

	_, err := c.Get("new")
	assert.NoError(t, err)
}

func TestSessionCacheConcurrentAccess(t *testing.T) {
	c := NewSessionCache()
	v := testView(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Put(fmt.Sprintf("s%d", i%10), v)
		}(i)
		go func() {
			defer wg.Done()
			c.Reconcile(c.Snapshot(), map[string]struct{}{})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 10)
}

type failingStorage struct{}

func (failingStorage) Get(string) ([]byte, error)              { return nil, errors.New("backend down") }
func (failingStorage) Set(string, []byte, time.Duration) error { return nil }
func (failingStorage) Delete(string) error                     { return nil }
func (failingStorage) Reset() error                            { return nil }
func (failingStorage) Close() error                            { return nil }

func TestStorageOracle(t *testing.T) {
	sessions := session.New()
	require.NoError(t, sessions.Storage.Set("present", []byte("data"), time.Minute))

	o := NewStorageOracle(sessions.Storage)

	ok, err := o.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = o.Exists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewStorageOracle(failingStorage{}).Exists(context.Background(), "x")
	assert.Error(t, err)
}
