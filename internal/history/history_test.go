package history

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(name string) Job {
	return Job{ID: uuid.New(), Kind: KindImport, Name: name, CreatedAt: time.Now()}
}

func TestMemoryStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(10)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Record(ctx, job(strconv.Itoa(i))))
	}

	jobs, err := m.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "2", jobs[0].Name)
	assert.Equal(t, "0", jobs[2].Name)

	jobs, err = m.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestMemoryStore_Evicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(3)

	for i := 0; i < 7; i++ {
		require.NoError(t, m.Record(ctx, job(strconv.Itoa(i))))
	}

	assert.Equal(t, 3, m.Len())
	jobs, err := m.Recent(ctx, 10)
	require.NoError(t, err)
	names := []string{jobs[0].Name, jobs[1].Name, jobs[2].Name}
	assert.Equal(t, []string{"6", "5", "4"}, names)
}

func TestMemoryStore_Empty(t *testing.T) {
	m := NewMemoryStore(0)
	jobs, err := m.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = m.Record(ctx, job("x"))
				_, _ = m.Recent(ctx, 5)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.Len())
}

func TestMemoryStore_Prune(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(4)
	now := time.Now()

	for i, age := range []time.Duration{72 * time.Hour, time.Hour, 48 * time.Hour, time.Minute, 0} {
		j := job(strconv.Itoa(i))
		j.CreatedAt = now.Add(-age)
		require.NoError(t, m.Record(ctx, j))
	}
	require.Equal(t, 4, m.Len())

	n, err := m.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 3, m.Len())

	jobs, err := m.Recent(ctx, 0)
	require.NoError(t, err)
	names := []string{jobs[0].Name, jobs[1].Name, jobs[2].Name}
	assert.Equal(t, []string{"4", "3", "1"}, names)

	// The ring keeps working after a prune.
	require.NoError(t, m.Record(ctx, job("5")))
	require.NoError(t, m.Record(ctx, job("6")))
	jobs, err = m.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 4)
	assert.Equal(t, "6", jobs[0].Name)
	assert.Equal(t, "3", jobs[3].Name)
}

func TestJob_Failed(t *testing.T) {
	assert.False(t, Job{}.Failed())
	assert.True(t, Job{Error: "boom"}.Failed())
}

// TestPostgresStore runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, url, 2)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))

	j := Job{
		ID:        uuid.New(),
		Kind:      KindExport,
		Name:      "ventas",
		Rows:      12,
		Columns:   4,
		Duration:  1500 * time.Millisecond,
		Error:     "column overflow",
		ClientIP:  "10.0.0.7",
		CreatedAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Record(ctx, j))

	jobs, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j.ID, jobs[0].ID)
	assert.Equal(t, KindExport, jobs[0].Kind)
	assert.Equal(t, j.Duration, jobs[0].Duration)
	assert.Equal(t, "column overflow", jobs[0].Error)
	assert.Equal(t, "10.0.0.7", jobs[0].ClientIP)
	assert.Empty(t, jobs[0].UserAgent)

	n, err := store.Prune(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}
