package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := CheckPassword(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "hunter23")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "hunter22")
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := ShortID()
		require.NoError(t, err)
		require.Len(t, id, 10)
		for _, r := range id {
			assert.Contains(t, shortIDAlphabet, string(r))
		}
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "<p>hi</p>", Sanitize(`<p>hi</p><script>alert(1)</script>`))
	assert.Equal(t, "hi", SanitizeText(" <b>hi</b> "))
}

func TestSanitizeTextKeepsPlainText(t *testing.T) {
	assert.Equal(t, `don't stop & "go"`, SanitizeText(`don't stop & "go"`))
	assert.Equal(t, "I'm <3 Go & Rust", SanitizeText("I'm <3 Go & Rust"))
	assert.Equal(t, "a < b", SanitizeText("a < b<script>x()</script>"))
}
