package sync

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/mirrorball/pkg/errors"
)

func TestTruncateAndAppend(t *testing.T) {
	osFs = afero.NewMemMapFs()
	folder := NewFolder(testRoot)

	require.NoError(t, folder.Truncate("a/b/file", bytes.NewBufferString("hello ")))
	require.NoError(t, folder.Append("a/b/file", bytes.NewBufferString("world")))
	assertContents(t, "a/b/file", "hello world")

	// Truncating again replaces the contents rather than appending.
	require.NoError(t, folder.Truncate("a/b/file", bytes.NewBufferString("bye")))
	assertContents(t, "a/b/file", "bye")

	length, err := folder.Length("a/b/file")
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

func TestLengthMissing(t *testing.T) {
	osFs = afero.NewMemMapFs()
	_, err := NewFolder(testRoot).Length("missing")
	assert.Equal(t, errors.FileNotFound{Path: "missing"}, err)
}

func TestReadRange(t *testing.T) {
	osFs = afero.NewMemMapFs()
	folder := NewFolder(testRoot)
	require.NoError(t, afero.WriteFile(osFs, testRoot+"/file", []byte("0123456789"), 0644))

	tests := []struct {
		name        string
		start       int64
		count       int64
		exp         string
		expShortErr bool
	}{
		{name: "Start", start: 0, count: 4, exp: "0123"},
		{name: "Middle", start: 3, count: 4, exp: "3456"},
		{name: "End", start: 8, count: 2, exp: "89"},
		{name: "PastEnd", start: 8, count: 4, expShortErr: true},
		{name: "StartPastEnd", start: 11, count: 0, expShortErr: true},
		{name: "HugeCount", start: 0, count: 1 << 45, expShortErr: true},
		{name: "OverflowingRange", start: 5, count: 1<<63 - 1, expShortErr: true},
		{name: "Empty", start: 10, count: 0, exp: ""},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			content, err := folder.ReadRange("file", test.start, test.count)
			if test.expShortErr {
				assert.Error(t, err)
				assert.Equal(t, errors.ErrShortRead, errors.RootCause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.exp, string(content))
		})
	}
}

func TestDeletePrunesEmptyParents(t *testing.T) {
	osFs = afero.NewMemMapFs()
	folder := NewFolder(testRoot)

	require.NoError(t, afero.WriteFile(osFs, testRoot+"/a/keep", []byte("keep"), 0644))
	require.NoError(t, afero.WriteFile(osFs, testRoot+"/a/b/c/file", []byte("file"), 0644))

	require.NoError(t, folder.Delete("a/b/c/file"))

	assertExists(t, testRoot+"/a/b/c/file", false)
	assertExists(t, testRoot+"/a/b/c", false)
	assertExists(t, testRoot+"/a/b", false)
	assertExists(t, testRoot+"/a", true)
	assertExists(t, testRoot+"/a/keep", true)
}

func TestDeleteNeverRemovesRoot(t *testing.T) {
	osFs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(osFs, testRoot+"/only", []byte("only"), 0644))

	require.NoError(t, NewFolder(testRoot).Delete("only"))
	assertExists(t, testRoot, true)
}

func TestRename(t *testing.T) {
	osFs = afero.NewMemMapFs()
	folder := NewFolder(testRoot)
	require.NoError(t, afero.WriteFile(osFs, testRoot+"/old/dir/file", []byte("contents"), 0644))

	require.NoError(t, folder.Rename("old/dir/file", "new/place/file"))

	assertContents(t, "new/place/file", "contents")
	assertExists(t, testRoot+"/old", false)
}

func TestRenameMissing(t *testing.T) {
	osFs = afero.NewMemMapFs()
	require.NoError(t, osFs.MkdirAll(testRoot, 0755))

	err := NewFolder(testRoot).Rename("missing", "other")
	assert.Error(t, err)
	assert.Equal(t, errors.IOError, errors.KindOf(err))
}

func TestRealPathRejectsEscapes(t *testing.T) {
	folder := NewFolder(testRoot)

	path, err := folder.RealPath("a/b")
	require.NoError(t, err)
	assert.Equal(t, "/mirror/a/b", path)

	_, err = folder.RealPath("../etc/passwd")
	assert.Error(t, err)
}

func assertContents(t *testing.T, path, exp string) {
	f, err := NewFolder(testRoot).Open(path)
	require.NoError(t, err)
	defer f.Close()

	contents, err := ioutil.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, exp, string(contents))
}

func assertExists(t *testing.T, path string, exp bool) {
	exists, err := afero.Exists(osFs, path)
	require.NoError(t, err)
	assert.Equal(t, exp, exists, path)
}
