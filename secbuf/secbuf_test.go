package secbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_WithBytes(t *testing.T) {
	buf := New([]byte("super-secret"))
	defer buf.Clear()

	var seen string
	err := buf.WithUTF8(func(s string) { seen = s })
	require.NoError(t, err)
	assert.Equal(t, "super-secret", seen)
	assert.Equal(t, 12, buf.Len())
}

func TestBuffer_Clear(t *testing.T) {
	buf := FromString("token-bytes")
	assert.False(t, buf.IsCleared())

	buf.Clear()
	assert.True(t, buf.IsCleared())
	assert.Equal(t, 0, buf.Len())

	err := buf.WithBytes(func([]byte) {})
	assert.ErrorIs(t, err, ErrCleared)
}

func TestBuffer_ClearIsIdempotent(t *testing.T) {
	buf := FromString("x")
	buf.Clear()
	assert.NotPanics(t, func() {
		buf.Clear()
		buf.Clear()
	})
	assert.True(t, buf.IsCleared())
}

func TestBuffer_StringNeverLeaks(t *testing.T) {
	buf := FromString("do-not-print-me")
	assert.NotContains(t, buf.String(), "do-not-print-me")
	assert.NotContains(t, buf.GoString(), "do-not-print-me")

	buf.Clear()
	assert.Equal(t, "[cleared]", buf.String())
}

func TestFromBase64(t *testing.T) {
	buf, err := FromBase64("aGVsbG8=")
	require.NoError(t, err)
	_ = buf.WithUTF8(func(s string) {
		assert.Equal(t, "hello", s)
	})

	_, err = FromBase64("not valid base64!!")
	assert.Error(t, err)
}
