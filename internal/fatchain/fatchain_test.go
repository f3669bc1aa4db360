package fatchain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbitsnbites/mfat/internal/blockcache"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/fatchain"
	"github.com/mbitsnbites/mfat/internal/partition"
	"github.com/mbitsnbites/mfat/internal/testimage"
)

func newFAT16Walker(t *testing.T, entries map[uint32]uint16) (*fatchain.Walker, *testimage.Image) {
	t.Helper()
	img := testimage.New(32)
	for cluster, value := range entries {
		img.PutFAT16Entry(1, cluster, value)
	}
	read, write := img.Callbacks()
	dev := blockio.New(read, write)
	cache := blockcache.New(dev, 2, blockcache.ClassFAT)

	part := &partition.Partition{
		Kind:              partition.Fat16,
		FirstBlock:        0,
		NumReservedBlocks: 1,
		BlocksPerCluster:  1,
		FirstDataBlock:    10,
	}
	return fatchain.New(cache, part), img
}

func newFAT32Walker(t *testing.T, entries map[uint32]uint32) *fatchain.Walker {
	t.Helper()
	img := testimage.New(32)
	for cluster, value := range entries {
		img.PutFAT32Entry(1, cluster, value)
	}
	read, write := img.Callbacks()
	dev := blockio.New(read, write)
	cache := blockcache.New(dev, 2, blockcache.ClassFAT)

	part := &partition.Partition{
		Kind:              partition.Fat32,
		FirstBlock:        0,
		NumReservedBlocks: 1,
		BlocksPerCluster:  8,
		FirstDataBlock:    10,
	}
	return fatchain.New(cache, part)
}

func TestWalker_Next_FAT16_NormalChain(t *testing.T) {
	walker, _ := newFAT16Walker(t, map[uint32]uint16{2: 3, 3: 4})

	next, err := walker.Next(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), next)
}

func TestWalker_Next_FAT16_EOCIsNormalized(t *testing.T) {
	walker, _ := newFAT16Walker(t, map[uint32]uint16{2: 0xFFFF})

	next, err := walker.Next(2)
	require.NoError(t, err)
	assert.True(t, walker.IsEndOfChain(next))
	assert.True(t, fatchain.IsEndOfChain(next))
}

func TestWalker_Next_FAT16_FreeClusterFails(t *testing.T) {
	walker, _ := newFAT16Walker(t, map[uint32]uint16{2: 0})

	_, err := walker.Next(2)
	assert.Error(t, err)
}

func TestWalker_Next_FAT16_BadClusterFails(t *testing.T) {
	walker, _ := newFAT16Walker(t, map[uint32]uint16{2: 0xFFF7})

	_, err := walker.Next(2)
	assert.Error(t, err)
}

func TestWalker_Next_FAT32_NormalChain(t *testing.T) {
	walker := newFAT32Walker(t, map[uint32]uint32{2: 3, 3: 0x0FFFFFFF})

	next, err := walker.Next(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), next)

	next, err = walker.Next(3)
	require.NoError(t, err)
	assert.True(t, walker.IsEndOfChain(next))
}

func TestWalker_Next_FAT32_MasksReservedBits(t *testing.T) {
	// The top 4 bits of a FAT32 entry are reserved and must be ignored.
	walker := newFAT32Walker(t, map[uint32]uint32{2: 0xF0000005})

	next, err := walker.Next(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), next)
}

func TestWalker_FirstBlockOfCluster(t *testing.T) {
	walker := newFAT32Walker(t, nil)
	assert.Equal(t, blockio.LogicalBlock(10), walker.FirstBlockOfCluster(2))
	assert.Equal(t, blockio.LogicalBlock(18), walker.FirstBlockOfCluster(3))
}

func TestIsEndOfChain_Thresholds(t *testing.T) {
	assert.False(t, fatchain.IsEndOfChain(0x0FFFFFF7))
	assert.True(t, fatchain.IsEndOfChain(0x0FFFFFF8))
	assert.True(t, fatchain.IsEndOfChain(0x0FFFFFFF))
	assert.False(t, fatchain.IsEndOfChain(2))
}
