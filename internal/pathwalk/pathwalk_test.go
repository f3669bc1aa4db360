package pathwalk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbitsnbites/mfat/internal/blockcache"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/cursor"
	"github.com/mbitsnbites/mfat/internal/dirent"
	"github.com/mbitsnbites/mfat/internal/fatchain"
	"github.com/mbitsnbites/mfat/internal/partition"
	"github.com/mbitsnbites/mfat/internal/pathwalk"
	"github.com/mbitsnbites/mfat/internal/testimage"
)

func TestCanonicalize_Examples(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello.txt", "HELLO   TXT"},
		{"README", "README     "},
		{"a.b.c", "A       B!C"}, // splits on the first dot only; the extension's own dot is disallowed and becomes '!'
		{"toolongname.abcd", "TOOLONGNABC"},
		{"bad?name.txt", "BAD!NAMETXT"},
	}
	for _, c := range cases {
		got := pathwalk.Canonicalize(c.in)
		assert.Equal(t, c.want, string(got[:]), "canonicalizing %q", c.in)
	}
}

func TestCanonicalize_IsIdempotent(t *testing.T) {
	name := "hello.txt"
	first := pathwalk.Canonicalize(name)
	second := pathwalk.Canonicalize(string(first[:]))
	assert.Equal(t, first, second)
}

func TestSplit_SkipsEmptyAndDotSegments(t *testing.T) {
	components := pathwalk.Split("/foo/./bar//baz.txt")
	require.Len(t, components, 3)
	assert.Equal(t, pathwalk.Canonicalize("foo"), components[0])
	assert.Equal(t, pathwalk.Canonicalize("bar"), components[1])
	assert.Equal(t, pathwalk.Canonicalize("baz.txt"), components[2])
}

func TestSplit_BackslashSeparator(t *testing.T) {
	components := pathwalk.Split(`foo\bar.txt`)
	require.Len(t, components, 2)
	assert.Equal(t, pathwalk.Canonicalize("bar.txt"), components[1])
}

// buildFAT16Root builds a minimal FAT16 image with a root directory
// containing one file, one subdirectory, a deleted entry, and a long-name
// entry that must be skipped during lookup.
func buildFAT16Root(t *testing.T) (*blockcache.Cache, cursor.ChainWalker, cursor.DirCursor, uint32) {
	t.Helper()
	const rootBlock = blockio.LogicalBlock(9)
	// FirstDataBlock is 2 and BlocksPerCluster is 1, so cluster N lives at
	// block N (first_block_of_cluster(N) = first_data_block + (N-2)).
	const fileCluster = uint32(3)
	const subdirCluster = uint32(4)
	const subdirBlock = blockio.LogicalBlock(subdirCluster)
	const nestedFileCluster = uint32(5)

	img := testimage.New(32)

	// offset 0: long-name fragment (must be skipped); its name field holds
	// STALE.TXT's canonical name, so only the long-name skip keeps it from
	// matching that lookup.
	img.PutDirEntry(rootBlock, 0, testimage.DirEntry{
		Name: [11]byte{'S', 'T', 'A', 'L', 'E', ' ', ' ', ' ', 'T', 'X', 'T'},
		Attr: dirent.AttrLongName,
	})
	// offset 32: deleted entry (must be skipped)
	img.PutDirEntry(rootBlock, 32, testimage.DirEntry{
		Name: [11]byte{0xE5, 'S', 'T', 'A', 'L', 'E', ' ', ' ', 'T', 'X', 'T'},
		Attr: dirent.AttrArchive,
	})
	// offset 64: HELLO.TXT
	img.PutDirEntry(rootBlock, 64, testimage.DirEntry{
		Name:         [11]byte{'H', 'E', 'L', 'L', 'O', ' ', ' ', ' ', 'T', 'X', 'T'},
		Attr:         dirent.AttrArchive,
		FirstCluster: fileCluster,
		Size:         11,
	})
	// offset 96: SUBDIR
	img.PutDirEntry(rootBlock, 96, testimage.DirEntry{
		Name:         [11]byte{'S', 'U', 'B', 'D', 'I', 'R', ' ', ' ', ' ', ' ', ' '},
		Attr:         dirent.AttrDirectory,
		FirstCluster: subdirCluster,
	})
	img.PutEndOfDirectory(rootBlock, 128)

	img.PutData(blockio.LogicalBlock(fileCluster), []byte("hello world"))

	img.PutDirEntry(subdirBlock, 0, testimage.DirEntry{
		Name:         [11]byte{'N', 'E', 'S', 'T', 'E', 'D', ' ', ' ', 'T', 'X', 'T'},
		Attr:         dirent.AttrArchive,
		FirstCluster: nestedFileCluster,
		Size:         5,
	})
	img.PutEndOfDirectory(subdirBlock, 32)
	img.PutData(blockio.LogicalBlock(nestedFileCluster), []byte("hi"))

	read, write := img.Callbacks()
	dev := blockio.New(read, write)
	dataCache := blockcache.New(dev, 4, blockcache.ClassData)
	fatCache := blockcache.New(dev, 4, blockcache.ClassFAT)

	part := &partition.Partition{
		Kind:             partition.Fat16,
		FirstBlock:       0,
		FirstDataBlock:   2,
		BlocksPerCluster: 1,
	}
	walker := fatchain.New(fatCache, part)
	root := cursor.NewLinear(rootBlock, 2)
	return dataCache, walker, &root, subdirCluster
}

func TestResolve_RootFile(t *testing.T) {
	dataCache, walker, root, _ := buildFAT16Root(t)

	result, err := pathwalk.Resolve("HELLO.TXT", root, dataCache, walker, 1)
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.False(t, result.IsDir)
	assert.Equal(t, uint32(11), result.Size)
	assert.Equal(t, uint32(3), result.FirstCluster)
}

func TestResolve_SkipsDeletedAndLongNameEntries(t *testing.T) {
	dataCache, walker, root, _ := buildFAT16Root(t)

	// The long-name fragment carries STALE.TXT's canonical name and would
	// match if long-name entries were not skipped. The deleted entry's first
	// byte (0xE5) never occurs in a canonicalized name, so it cannot match
	// either; the lookup must scan past both and report no live entry.
	result, err := pathwalk.Resolve("STALE.TXT", root, dataCache, walker, 1)
	require.NoError(t, err)
	assert.False(t, result.Exists)
}

func TestResolve_NotFound(t *testing.T) {
	dataCache, walker, root, _ := buildFAT16Root(t)

	result, err := pathwalk.Resolve("NOPE.TXT", root, dataCache, walker, 1)
	require.NoError(t, err)
	assert.False(t, result.Exists)
}

func TestResolve_DescendsIntoSubdirectory(t *testing.T) {
	dataCache, walker, root, _ := buildFAT16Root(t)

	result, err := pathwalk.Resolve("SUBDIR/NESTED.TXT", root, dataCache, walker, 1)
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.Equal(t, uint32(5), result.Size)
	assert.Equal(t, uint32(5), result.FirstCluster)
}

func TestResolve_EmptyPathIsRoot(t *testing.T) {
	_, walker, root, _ := buildFAT16Root(t)
	cache := blockcache.New(blockio.New(func(blockio.LogicalBlock, []byte) error { return nil }, nil), 1, blockcache.ClassData)

	result, err := pathwalk.Resolve("", root, cache, walker, 1)
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.True(t, result.IsDir)
}

func TestResolve_ComponentThroughNonDirectoryFails(t *testing.T) {
	dataCache, walker, root, _ := buildFAT16Root(t)

	_, err := pathwalk.Resolve("HELLO.TXT/NOPE.TXT", root, dataCache, walker, 1)
	assert.Error(t, err)
}
