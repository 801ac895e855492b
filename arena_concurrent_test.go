package memgo

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_ConcurrentAlloc(t *testing.T) {
	const (
		goroutines = 8
		allocs     = 10000
		size       = 16
	)

	a := New(WithBlockSize(1 << 20))
	defer a.Close()

	regions := make([][][]byte, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()

			regions[g] = make([][]byte, allocs)
			for i := 0; i < allocs; i++ {
				b, err := a.Alloc(size, 8)
				if err != nil {
					t.Error(err)
					return
				}
				// Tag the region so overlaps are detectable afterwards.
				binary.LittleEndian.PutUint64(b[0:8], uint64(g))
				binary.LittleEndian.PutUint64(b[8:16], uint64(i))
				regions[g][i] = b
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*allocs*size), a.BytesUsed())

	// Every tag must be intact: two overlapping regions would have
	// clobbered each other's tags.
	for g := 0; g < goroutines; g++ {
		for i := 0; i < allocs; i++ {
			b := regions[g][i]
			require.Len(t, b, size)
			require.Equal(t, uint64(g), binary.LittleEndian.Uint64(b[0:8]))
			require.Equal(t, uint64(i), binary.LittleEndian.Uint64(b[8:16]))
		}
	}
}

func TestArena_ConcurrentChunkInstall(t *testing.T) {
	// A tiny block size makes chunk installation itself the contended
	// operation: losers must unmap their chunk and retry cleanly.
	const (
		goroutines = 8
		allocs     = 500
		size       = 64
	)

	a := New(WithBlockSize(256))
	defer a.Close()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < allocs; i++ {
				b, err := a.Alloc(size, 1)
				if err != nil {
					t.Error(err)
					return
				}
				if len(b) != size {
					t.Errorf("got region of %d bytes", len(b))
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*allocs*size), a.BytesUsed())

	stats := a.Stats()
	assert.GreaterOrEqual(t, stats.ChunksAllocated, uint64(goroutines*allocs*size/256))
	assert.Equal(t, uint64(goroutines*allocs), stats.TotalAllocs)
}
