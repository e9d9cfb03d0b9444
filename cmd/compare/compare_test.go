package compare

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/mirrorball/pkg/sync"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		left      map[string]string
		right     map[string]string
		expOutput string
	}{
		{
			name:      "Identical",
			left:      map[string]string{"a": "a", "dir/b": "b"},
			right:     map[string]string{"a": "a", "dir/b": "b"},
			expOutput: "Scanning /left...\nScanning /right...\n",
		},
		{
			name:  "Differences",
			left:  map[string]string{"only-left": "1", "old-name": "2", "changed": "3"},
			right: map[string]string{"only-right": "4", "new-name": "2", "changed": "5"},
			expOutput: "Scanning /left...\nScanning /right...\n" +
				"Modified: changed\n" +
				"Renamed:\n    old-name in /left\n    new-name in /right\n" +
				"Unique: only-left in /left\n" +
				"Unique: only-right in /right\n",
		},
		{
			name:  "Duplicates stop the comparison",
			left:  map[string]string{"a": "same", "b": "same", "c": "other"},
			right: map[string]string{"d": "d"},
			expOutput: "Scanning /left...\n" +
				"The following groups of duplicates exist:\n\n" +
				"  - a\n  - b\n",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, "/left", test.left)
			writeFiles(t, fs, "/right", test.right)
			newFolder = func(root string) sync.Folder {
				return sync.NewFolderOnFs(fs, root)
			}

			var out bytes.Buffer
			stdout = &out
			require.NoError(t, run("/left", "/right"))
			assert.Equal(t, test.expOutput, out.String())
		})
	}
}

func TestRunMissingFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	newFolder = func(root string) sync.Folder {
		return sync.NewFolderOnFs(fs, root)
	}

	var out bytes.Buffer
	stdout = &out
	assert.Error(t, run("/left", "/right"))
}

func writeFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	require.NoError(t, fs.MkdirAll(root, 0755))
	for path, contents := range files {
		require.NoError(t, afero.WriteFile(fs, root+"/"+path, []byte(contents), 0644))
	}
}
