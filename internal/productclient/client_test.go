package productclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		switch r.URL.Path {
		case "/products/p1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"p1","name":"Mug","price":250,"sellerId":"s1"}`))
		case "/products/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Lookup(t *testing.T) {
	var calls int
	srv := productServer(t, &calls)
	c := New(srv.URL+"/", time.Second)

	p, err := c.Lookup(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.Product{ID: "p1", Name: "Mug", Price: 250, SellerID: "s1"}, *p)

	_, err = c.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = c.Lookup(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrProductNotFound))
	assert.Contains(t, err.Error(), "status 500")
}

type mapCache struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func (m *mapCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.data[key] = value.(string)
	if m.ttls != nil {
		m.ttls[key] = ttl
	}
	return nil
}

func (m *mapCache) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.data[key], nil
}

func (m *mapCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

func TestCached_Lookup(t *testing.T) {
	var calls int
	srv := productServer(t, &calls)
	mc := &mapCache{data: map[string]string{}}
	c := NewCached(New(srv.URL, time.Second), mc, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := c.Lookup(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, int64(250), p.Price)
	}
	assert.Equal(t, 1, calls)
	assert.Contains(t, mc.data, "test:product:p1")

	_, err := c.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = c.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 3, calls)
	assert.NotContains(t, mc.data, "test:product:missing")
}

func TestCached_FallsThroughOnCacheError(t *testing.T) {
	var calls int
	srv := productServer(t, &calls)
	mc := &mapCache{data: map[string]string{}, getErr: errors.New("redis down")}
	c := NewCached(New(srv.URL, time.Second), mc, time.Minute)

	p, err := c.Lookup(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 1, calls)
}

func TestCached_EntriesExpireAfterTTL(t *testing.T) {
	var calls int
	srv := productServer(t, &calls)
	mc := &mapCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
	c := NewCached(New(srv.URL, time.Second), mc, 30*time.Second)

	_, err := c.Lookup(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mc.ttls["test:product:p1"])

	delete(mc.data, "test:product:p1")
	p, err := c.Lookup(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), p.Price)
	assert.Equal(t, 2, calls)
}
