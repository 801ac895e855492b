package seq

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memgo"
)

func TestVarintLen32(t *testing.T) {
	cases := []struct {
		v    uint32
		want int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{268435455, 4},
		{268435456, 5},
		{math.MaxUint32, 5},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, varintLen32(tc.v), "v=%d", tc.v)

		// The predicted length must match what the encoder emits.
		var buf [binary.MaxVarintLen64]byte
		assert.Equalf(t, tc.want, binary.PutUvarint(buf[:], uint64(tc.v)), "v=%d", tc.v)
	}
}

func TestUint32_Append(t *testing.T) {
	t.Run("single values encode canonically", func(t *testing.T) {
		t.Run("zero is one byte", func(t *testing.T) {
			s, err := NewUint32(newTestArena(t))
			require.NoError(t, err)
			require.NoError(t, s.Append(0))

			var buf bytes.Buffer
			n, err := s.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, int64(1), n)
			assert.Equal(t, []byte{0x00}, buf.Bytes())
		})

		t.Run("max uint32 is five bytes", func(t *testing.T) {
			s, err := NewUint32(newTestArena(t))
			require.NoError(t, err)
			require.NoError(t, s.Append(math.MaxUint32))

			var buf bytes.Buffer
			n, err := s.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, int64(5), n)
			assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, buf.Bytes())
		})
	})

	t.Run("boundary round trip", func(t *testing.T) {
		values := []uint32{0, 127, 128, 16383, 16384, math.MaxUint32}

		s, err := NewUint32(newTestArena(t))
		require.NoError(t, err)
		for _, v := range values {
			require.NoError(t, s.Append(v))
		}

		var got []uint32
		for v := range s.All() {
			got = append(got, v)
		}
		assert.Equal(t, values, got)

		// 1 + 1 + 2 + 2 + 3 + 5 encoded bytes.
		var buf bytes.Buffer
		n, err := s.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(14), n)
	})

	t.Run("round trip across nodes", func(t *testing.T) {
		s, err := NewUint32(newTestArena(t), WithInitialCapacity(16))
		require.NoError(t, err)

		for i := uint32(0); i < 100000; i++ {
			require.NoError(t, s.Append(i*7))
		}

		var i uint32
		for v := range s.All() {
			require.Equal(t, i*7, v)
			i++
		}
		assert.Equal(t, uint32(100000), i)
	})

	t.Run("empty sequence", func(t *testing.T) {
		s, err := NewUint32(newTestArena(t))
		require.NoError(t, err)

		for range s.All() {
			t.Fatal("unexpected value")
		}

		var buf bytes.Buffer
		n, err := s.WriteTo(&buf)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("tiny initial capacity is floored", func(t *testing.T) {
		s, err := NewUint32(newTestArena(t), WithInitialCapacity(1))
		require.NoError(t, err)

		require.NoError(t, s.Append(math.MaxUint32))
		require.NoError(t, s.Append(0))

		var got []uint32
		for v := range s.All() {
			got = append(got, v)
		}
		assert.Equal(t, []uint32{math.MaxUint32, 0}, got)
	})
}

func TestUint32_ExternalReader(t *testing.T) {
	// The concatenated node bytes form a plain varint stream that any
	// LEB128 reader can decode without knowing the node geometry.
	values := []uint32{42, 0, 300, 1 << 21, math.MaxUint32, 5}

	s, err := NewUint32(newTestArena(t), WithInitialCapacity(16))
	require.NoError(t, err)
	for _, v := range values {
		require.NoError(t, s.Append(v))
	}

	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	var got []uint32
	for len(data) > 0 {
		raw, n := binary.Uvarint(data)
		require.Positive(t, n)
		got = append(got, uint32(raw))
		data = data[n:]
	}
	assert.Equal(t, values, got)
}

func TestUint32_ConcurrentAppend(t *testing.T) {
	const (
		writers   = 4
		perWriter = 100000
	)

	s, err := NewUint32(newTestArena(t), WithInitialCapacity(64))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := s.Append(uint32(w*perWriter + i)); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Iteration yields a permutation of all appended values in which each
	// writer's values appear in its own ascending order.
	seen := make([]bool, writers*perWriter)
	last := [writers]int64{}
	for w := range last {
		last[w] = -1
	}

	total := 0
	for v := range s.All() {
		require.Less(t, int(v), writers*perWriter)
		require.False(t, seen[v], "value %d observed twice", v)
		seen[v] = true

		w := int(v) / perWriter
		require.Greater(t, int64(v), last[w], "writer %d values out of order", w)
		last[w] = int64(v)
		total++
	}
	assert.Equal(t, writers*perWriter, total)
}

func BenchmarkUint32_Append(b *testing.B) {
	arena := memgo.New(memgo.WithBlockSize(1 << 26))
	defer arena.Close()

	s, err := NewUint32(arena, WithInitialCapacity(1<<16))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := s.Append(uint32(i)); err != nil {
			b.Fatal(err)
		}
	}
}
