package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/progress"
)

// StateFileName is the name of the snapshot file persisted at the root of
// each mirrored folder. It's hidden, so it never shows up in its own scans.
const StateFileName = ".mirrorballdnc"

// FileState is the fingerprint of a single file in a folder.
type FileState struct {
	// Path is relative to the root of the folder, and always uses forward
	// slashes.
	Path string `json:"path"`

	// Hash is the base64 encoded fingerprint of the file's contents.
	Hash string `json:"hash"`

	// Time is the last modification time, in UTC.
	Time time.Time `json:"time"`

	// Size is the length of the file in bytes.
	Size int64 `json:"size"`
}

// Scan fingerprints every visible file in the folder, and persists the
// result as the folder's snapshot. Fingerprints from the previous snapshot
// are reused for files whose modification time and size haven't changed.
// `sink` receives the fraction of files scanned and the path of the latest
// file.
func (f Folder) Scan(sink progress.Sink) ([]FileState, error) {
	log.WithField("folder", f.root).Info("Loading states")

	previous := map[string]FileState{}
	for _, state := range f.loadSnapshot() {
		previous[state.Path] = state
	}

	files, err := f.visibleFiles()
	if err != nil {
		return nil, errors.WithContext(err, "list files")
	}

	log.WithField("folder", f.root).Infof("Scanning %d files", len(files))

	states := []FileState{}
	var rehashed int
	for i, file := range files {
		modTime := file.info.ModTime().UTC()
		state, ok := previous[file.path]
		if !ok || !state.Time.Equal(modTime) || state.Size != file.info.Size() {
			hash, err := fingerprintFile(f.fs, fsPath(file.path), file.info.Size())
			if err != nil {
				return nil, errors.WithContext(err, fmt.Sprintf("fingerprint %q", file.path))
			}

			state = FileState{
				Path: file.path,
				Hash: hash,
				Time: modTime,
				Size: file.info.Size(),
			}
			rehashed++
		}
		states = append(states, state)

		sink.Report(float64(i+1)/float64(len(files)), file.path)
	}

	if err := f.saveSnapshot(states); err != nil {
		return nil, errors.WithContext(err, "save snapshot")
	}

	log.WithFields(log.Fields{
		"folder":   f.root,
		"files":    len(states),
		"rehashed": rehashed,
	}).Info("Finished loading states")
	return states, nil
}

type visibleFile struct {
	path string
	info os.FileInfo
}

// visibleFiles lists the regular files in the folder, skipping anything
// beneath a hidden file or directory.
func (f Folder) visibleFiles() (files []visibleFile, err error) {
	err = afero.Walk(f.fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WithKind(errors.WithContext(err, "walk"), errors.IOError)
		}

		if path == "." {
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if !info.Mode().IsRegular() {
			log.WithField("path", path).Debug("Skipping irregular file")
			return nil
		}

		files = append(files, visibleFile{path: filepath.ToSlash(path), info: info})
		return nil
	})
	return files, err
}

// loadSnapshot reads the persisted snapshot. A missing or unreadable
// snapshot is treated as empty, which just means every file gets
// fingerprinted again.
func (f Folder) loadSnapshot() []FileState {
	snapshotBytes, err := afero.ReadFile(f.fs, StateFileName)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("Failed to read existing states file")
		} else {
			log.Debug("No existing states file")
		}
		return nil
	}

	var states []FileState
	if err := json.Unmarshal(snapshotBytes, &states); err != nil {
		err = errors.WithKind(errors.WithContext(err, "parse states file"), errors.SnapshotCorrupt)
		log.WithError(err).WithField("kind", errors.KindOf(err)).Warn(
			"Ignoring corrupt states file. All files will be fingerprinted again.")
		return nil
	}
	return states
}

func (f Folder) saveSnapshot(states []FileState) error {
	snapshotBytes, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(f.fs, StateFileName, snapshotBytes, 0644); err != nil {
		return errors.WithKind(errors.WithContext(err, "write"), errors.IOError)
	}
	return nil
}
