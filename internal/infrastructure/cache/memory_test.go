package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpick/backend/internal/domain"
)

// newTestCache returns a cache whose clock the test controls
func newTestCache(t *testing.T) (*MemoryCache, *time.Time) {
	t.Helper()
	c := NewMemoryCache(time.Hour)
	t.Cleanup(c.Close)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{name: "string", value: "560001", want: "560001"},
		{name: "number decodes as float64", value: 42, want: float64(42)},
		{
			name:  "struct decodes as map",
			value: domain.Location{Pincode: "560001", Latitude: 12.97, Longitude: 77.59},
			want: map[string]interface{}{
				"pincode":   "560001",
				"latitude":  12.97,
				"longitude": 77.59,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCache(t)

			require.NoError(t, c.Set(ctx, "key", tt.value, time.Minute))

			got, err := c.Get(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, now := newTestCache(t)

	require.NoError(t, c.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))

	*now = now.Add(2 * time.Minute)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	got, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	exists, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)

	// Expired entries linger until swept
	assert.Equal(t, 2, c.Len())
	c.sweep()
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.Get(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, "key", "v", time.Minute))
	exists, _ := c.Exists(ctx, "key")
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "key"))
	exists, _ = c.Exists(ctx, "key")
	assert.False(t, exists)

	// Deleting a missing key is not an error
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestMemoryCache_SetUnencodable(t *testing.T) {
	c, _ := newTestCache(t)

	err := c.Set(context.Background(), "key", make(chan int), time.Minute)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Millisecond)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "location:" + string(rune('a'+i%26))
			_ = c.Set(ctx, key, i, time.Minute)
			_, _ = c.Get(ctx, key)
			_, _ = c.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 26)
}
