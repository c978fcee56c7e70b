package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisCache_GenerateKey(t *testing.T) {
	c := NewRedisCache("localhost:6379", "order")
	defer c.Close()

	assert.Equal(t, "order:product:p-1", c.GenerateKey("product", "p-1"))
	assert.Implements(t, (*Cache)(nil), c)
}
