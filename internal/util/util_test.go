package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONStringify(t *testing.T) {
	assert.Equal(t, `{"a":1}`, JSONStringify(map[string]int{"a": 1}))
	assert.Equal(t, `"hi"`, JSONStringify("hi"))
	assert.Equal(t, `null`, JSONStringify(nil))
}

func TestSliceContains(t *testing.T) {
	assert.True(t, SliceContains([]string{"a", "b"}, "a"))
	assert.False(t, SliceContains([]string{"a", "b"}, "c"))
	assert.False(t, SliceContains(nil, "a"))
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost("postgres://localhost:5432/db"))
	assert.True(t, IsLocalhost("postgres://127.0.0.1:5432/db"))
	assert.True(t, IsLocalhost("postgres://0.0.0.0:5432/db"))
	assert.False(t, IsLocalhost("postgres://db.example.com:5432/db"))
}
