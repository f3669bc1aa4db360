package partition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/partition"
	"github.com/mbitsnbites/mfat/internal/testimage"
)

func newDevice(img *testimage.Image) *blockio.Device {
	read, write := img.Callbacks()
	return blockio.New(read, write)
}

func TestDiscover_MBR_FindsFATPartition(t *testing.T) {
	img := testimage.New(32)
	img.PutMBR([]testimage.MBREntry{
		{Boot: true, Type: 0x0C, FirstBlock: 8},
	})

	parts, err := partition.Discover(newDevice(img), 4)
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, partition.Undecided, parts[0].Kind)
	assert.Equal(t, blockio.LogicalBlock(8), parts[0].FirstBlock)
	assert.True(t, parts[0].Boot)
}

func TestDiscover_MBR_IgnoresUnrecognizedType(t *testing.T) {
	img := testimage.New(32)
	img.PutMBR([]testimage.MBREntry{
		{Type: 0x83, FirstBlock: 8}, // Linux native, not in mbrPartitionTypes
	})

	parts, err := partition.Discover(newDevice(img), 4)
	require.NoError(t, err)
	// No MBR entries recognized and no GPT signature, falls back to table-less.
	assert.Equal(t, partition.Undecided, parts[0].Kind)
	assert.Equal(t, blockio.LogicalBlock(0), parts[0].FirstBlock)
}

func TestDiscover_GPT_PrefersOverMBR(t *testing.T) {
	img := testimage.New(64)
	img.PutGPT([]testimage.GPTEntry{
		{TypeGUID: testimage.WindowsBasicDataGUID, Boot: true, FirstBlock: 34},
	})
	img.PutMBR([]testimage.MBREntry{
		{Type: 0x0C, FirstBlock: 8},
	})

	parts, err := partition.Discover(newDevice(img), 4)
	require.NoError(t, err)
	assert.Equal(t, partition.Undecided, parts[0].Kind)
	assert.Equal(t, blockio.LogicalBlock(34), parts[0].FirstBlock)
	assert.True(t, parts[0].Boot)
}

func TestDiscover_TablelessFallback(t *testing.T) {
	img := testimage.New(16)

	parts, err := partition.Discover(newDevice(img), 4)
	require.NoError(t, err)
	assert.Equal(t, partition.Undecided, parts[0].Kind)
	assert.Equal(t, blockio.LogicalBlock(0), parts[0].FirstBlock)
}

func TestDiscoverWithoutGPT_SkipsGPTEvenIfPresent(t *testing.T) {
	img := testimage.New(64)
	img.PutGPT([]testimage.GPTEntry{
		{TypeGUID: testimage.WindowsBasicDataGUID, FirstBlock: 34},
	})
	img.PutMBR([]testimage.MBREntry{
		{Type: 0x0C, FirstBlock: 8},
	})

	parts, err := partition.DiscoverWithoutGPT(newDevice(img), 4)
	require.NoError(t, err)
	assert.Equal(t, blockio.LogicalBlock(8), parts[0].FirstBlock)
}

func fat16Params(start blockio.LogicalBlock) testimage.BPBParams {
	return testimage.BPBParams{
		PartitionStart:    start,
		BlocksPerCluster:  1,
		NumReservedBlocks: 1,
		NumFATs:           1,
		NumRootEntries:    16,
		NumBlocks:         1 + 8 + 1 + 4200,
		BlocksPerFAT:      8,
	}
}

func TestDecode_FAT16_Classification(t *testing.T) {
	img := testimage.New(4300)
	img.PutBPB(fat16Params(0))

	p := partition.Partition{FirstBlock: 0}
	require.NoError(t, partition.Decode(newDevice(img), &p))

	assert.Equal(t, partition.Fat16, p.Kind)
	assert.Equal(t, uint32(1), p.BlocksPerCluster)
	assert.Equal(t, uint32(1), p.NumReservedBlocks)
	assert.Equal(t, uint32(1), p.NumFATs)
	assert.Equal(t, uint32(1), p.BlocksInRootDir) // 16*32/512 = 1
	assert.Equal(t, blockio.LogicalBlock(1+8), p.RootDirBlock)
	assert.Equal(t, blockio.LogicalBlock(1+8+1), p.FirstDataBlock)
}

func TestDecode_FAT32_Classification(t *testing.T) {
	// BlocksPerCluster=8, BlocksPerFAT=4000, NumReservedBlocks=32: puts
	// countOfClusters at 65533, just above the 65525 FAT32 threshold.
	img := testimage.New(4)
	img.PutBPB(testimage.BPBParams{
		PartitionStart:    0,
		BlocksPerCluster:  8,
		NumReservedBlocks: 32,
		NumFATs:           2,
		NumRootEntries:    0,
		NumBlocks:         532300,
		BlocksPerFAT:      4000,
		RootDirCluster:    2,
	})

	p := partition.Partition{FirstBlock: 0}
	require.NoError(t, partition.Decode(newDevice(img), &p))

	assert.Equal(t, partition.Fat32, p.Kind)
	assert.Equal(t, uint32(2), p.RootDirCluster)
	assert.Equal(t, blockio.LogicalBlock(32+2*4000), p.FirstDataBlock)
}

func TestDecode_BadSignature_IsUnknown(t *testing.T) {
	img := testimage.New(16)
	// No signature written; the block is all zeroes.

	p := partition.Partition{FirstBlock: 0}
	require.NoError(t, partition.Decode(newDevice(img), &p))
	assert.Equal(t, partition.Unknown, p.Kind)
}

func TestDecode_TooFewClusters_IsUnknown(t *testing.T) {
	img := testimage.New(128)
	img.PutBPB(testimage.BPBParams{
		PartitionStart:    0,
		BlocksPerCluster:  1,
		NumReservedBlocks: 1,
		NumFATs:           1,
		NumRootEntries:    16,
		NumBlocks:         128,
		BlocksPerFAT:      1,
	})

	p := partition.Partition{FirstBlock: 0}
	require.NoError(t, partition.Decode(newDevice(img), &p))
	assert.Equal(t, partition.Unknown, p.Kind)
}

func TestPartition_FirstBlockOfCluster(t *testing.T) {
	p := partition.Partition{FirstDataBlock: 100, BlocksPerCluster: 4}
	assert.Equal(t, blockio.LogicalBlock(100), p.FirstBlockOfCluster(2))
	assert.Equal(t, blockio.LogicalBlock(104), p.FirstBlockOfCluster(3))
	assert.Equal(t, uint32(4*512), p.ClusterBytes())
}
