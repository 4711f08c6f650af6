package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFromCache(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("str", "value", time.Minute)
	c.Set("int", 42, time.Minute)

	tests := []struct {
		name  string
		key   string
		want  string
		found bool
	}{
		{name: "typed hit", key: "str", want: "value", found: true},
		{name: "wrong type", key: "int", want: "", found: false},
		{name: "miss", key: "missing", want: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := GetFromCache[string](c, tt.key)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetFromCache_NilCache(t *testing.T) {
	_, found := GetFromCache[string](nil, "any")
	assert.False(t, found)
}

func TestCache_DeleteAndFlush(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	_, found := c.Get("a")
	assert.False(t, found)

	c.Flush()
	_, found = c.Get("b")
	assert.False(t, found)
}
