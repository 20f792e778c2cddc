package envscope

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "HOOKUP_ENVSCOPE_TEST"

func TestUnset_RestoresPreviousValue(t *testing.T) {
	t.Setenv(key, "/repo/.git")

	func() {
		restore, err := Unset(key)
		require.NoError(t, err)
		defer restore()

		_, ok := os.LookupEnv(key)
		assert.False(t, ok)
	}()

	assert.Equal(t, "/repo/.git", os.Getenv(key))
}

func TestOverride_RemovesVariableThatWasUnset(t *testing.T) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	restore, err := Override(key, "temp")
	require.NoError(t, err)
	assert.Equal(t, "temp", os.Getenv(key))

	restore()
	_, ok := os.LookupEnv(key)
	assert.False(t, ok)
}

func TestUnset_RestoresOnPanic(t *testing.T) {
	t.Setenv(key, "kept")

	assert.Panics(t, func() {
		restore, err := Unset(key)
		require.NoError(t, err)
		defer restore()
		panic("action blew up")
	})

	assert.Equal(t, "kept", os.Getenv(key))
}
