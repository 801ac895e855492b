package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon(t *testing.T) {
	t.Run("basic mapping", func(t *testing.T) {
		m, err := MapAnon(4096)
		require.NoError(t, err)
		defer m.Close()

		require.Len(t, m.Bytes(), 4096)
		assert.Equal(t, 4096, m.Size())

		// Anonymous pages come back zeroed.
		for _, b := range m.Bytes() {
			require.Zero(t, b)
		}

		// Mapping is writable and reads back what was written.
		data := m.Bytes()
		data[0] = 0xAB
		data[4095] = 0xCD
		assert.Equal(t, byte(0xAB), m.Bytes()[0])
		assert.Equal(t, byte(0xCD), m.Bytes()[4095])
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := MapAnon(0)
		assert.ErrorIs(t, err, ErrInvalidSize)

		_, err = MapAnon(-1)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		m, err := MapAnon(4096)
		require.NoError(t, err)

		require.NoError(t, m.Close())
		require.NoError(t, m.Close())

		assert.Nil(t, m.Bytes())
	})

	t.Run("non page multiple size", func(t *testing.T) {
		m, err := MapAnon(100)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, 100, m.Size())
	})
}
