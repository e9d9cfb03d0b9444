package sync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/mirrorball/pkg/errors"
)

// Mocked out for unit testing.
var osFs = afero.NewOsFs()

// A Folder is a mirrored directory tree. All paths passed to its methods are
// slash-separated and relative to the root of the folder. Paths that would
// escape the root are rejected.
type Folder struct {
	root string
	fs   *afero.BasePathFs
}

// NewFolder returns the Folder rooted at `root`.
func NewFolder(root string) Folder {
	return NewFolderOnFs(osFs, root)
}

// NewFolderOnFs returns the Folder rooted at `root` within `fs`.
func NewFolderOnFs(fs afero.Fs, root string) Folder {
	return Folder{
		root: root,
		fs:   afero.NewBasePathFs(fs, root).(*afero.BasePathFs),
	}
}

// Root returns the path the folder is rooted at.
func (f Folder) Root() string {
	return f.root
}

// RealPath returns the location of `path` on the host filesystem.
func (f Folder) RealPath(path string) (string, error) {
	realPath, err := f.fs.RealPath(fsPath(path))
	if err != nil {
		return "", errors.WithContext(err, fmt.Sprintf("resolve %q", path))
	}
	return realPath, nil
}

// Length returns the size in bytes of the file at `path`.
func (f Folder) Length(path string) (int64, error) {
	fi, err := f.fs.Stat(fsPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errors.FileNotFound{Path: path}
		}
		return 0, errors.WithKind(errors.WithContext(err, "stat"), errors.IOError)
	}
	return fi.Size(), nil
}

// ReadRange returns exactly `count` bytes of the file at `path`, starting at
// `start`.
func (f Folder) ReadRange(path string, start, count int64) ([]byte, error) {
	file, err := f.fs.Open(fsPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.FileNotFound{Path: path}
		}
		return nil, errors.WithKind(errors.WithContext(err, "open"), errors.IOError)
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return nil, errors.WithKind(errors.WithContext(err, "stat"), errors.IOError)
	}

	// The range is checked before allocating, since `count` comes from the
	// peer.
	if start < 0 || count < 0 || start > fi.Size() || count > fi.Size()-start {
		return nil, errors.WithKind(errors.WithContext(errors.ErrShortRead,
			fmt.Sprintf("range %d+%d is outside of %d bytes", start, count, fi.Size())), errors.IOError)
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, errors.WithKind(errors.WithContext(err, "seek"), errors.IOError)
	}

	content := make([]byte, count)
	got, err := io.ReadFull(file, content)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = errors.WithContext(errors.ErrShortRead,
			fmt.Sprintf("tried to read %d but only got %d", count, got))
	}
	if err != nil {
		return nil, errors.WithKind(err, errors.IOError)
	}
	return content, nil
}

// Open opens the file at `path` for reading.
func (f Folder) Open(path string) (afero.File, error) {
	file, err := f.fs.Open(fsPath(path))
	if err != nil {
		return nil, errors.WithKind(errors.WithContext(err, "open"), errors.IOError)
	}
	return file, nil
}

// Create creates or truncates the file at `path`, creating its parent
// directories first.
func (f Folder) Create(path string) (afero.File, error) {
	if err := f.createParents(path); err != nil {
		return nil, err
	}

	file, err := f.fs.Create(fsPath(path))
	if err != nil {
		return nil, errors.WithKind(errors.WithContext(err, "create"), errors.IOError)
	}
	return file, nil
}

// Truncate replaces the contents of the file at `path` with `contents`.
func (f Folder) Truncate(path string, contents io.Reader) error {
	log.WithField("path", path).Info("Overwriting file")

	file, err := f.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, contents); err != nil {
		return errors.WithKind(errors.WithContext(err, "write"), errors.IOError)
	}
	return nil
}

// Append adds `contents` to the end of the file at `path`.
func (f Folder) Append(path string, contents io.Reader) error {
	file, err := f.fs.OpenFile(fsPath(path), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return errors.WithKind(errors.WithContext(err, "open"), errors.IOError)
	}
	defer file.Close()

	if _, err := io.Copy(file, contents); err != nil {
		return errors.WithKind(errors.WithContext(err, "write"), errors.IOError)
	}
	return nil
}

// Delete removes the file at `path`, along with any parent directories that
// are left empty.
func (f Folder) Delete(path string) error {
	log.WithField("path", path).Info("Deleting file")

	if err := f.fs.Remove(fsPath(path)); err != nil {
		return errors.WithKind(errors.WithContext(err, "remove"), errors.IOError)
	}
	return f.removeEmptyParents(path)
}

// Rename moves the file at `oldPath` to `newPath`, creating the destination
// directories and pruning the source directories if they're left empty.
func (f Folder) Rename(oldPath, newPath string) error {
	log.WithFields(log.Fields{
		"from": oldPath,
		"to":   newPath,
	}).Info("Renaming file")

	if err := f.createParents(newPath); err != nil {
		return err
	}

	if err := f.fs.Rename(fsPath(oldPath), fsPath(newPath)); err != nil {
		return errors.WithKind(errors.WithContext(err, "rename"), errors.IOError)
	}
	return f.removeEmptyParents(oldPath)
}

func (f Folder) createParents(path string) error {
	parent := filepath.Dir(fsPath(path))
	exists, err := afero.DirExists(f.fs, parent)
	if err != nil {
		return errors.WithKind(errors.WithContext(err, "check if parent exists"), errors.IOError)
	}

	if !exists {
		log.WithField("dir", parent).Debug("Creating directory")
		if err := f.fs.MkdirAll(parent, 0755); err != nil {
			return errors.WithKind(errors.WithContext(err, "make parent"), errors.IOError)
		}
	}
	return nil
}

// removeEmptyParents walks up from the directory containing `path`, removing
// each empty directory until it reaches one that isn't empty. The root of
// the folder is never removed.
func (f Folder) removeEmptyParents(path string) error {
	for dir := filepath.Dir(fsPath(path)); !isRoot(dir); dir = filepath.Dir(dir) {
		empty, err := afero.IsEmpty(f.fs, dir)
		if err != nil {
			return errors.WithKind(errors.WithContext(err, "check if empty"), errors.IOError)
		}

		if !empty {
			log.WithField("dir", dir).Debug("Directory is not empty")
			return nil
		}

		log.WithField("dir", dir).Debug("Directory is empty, will delete it")
		if err := f.fs.Remove(dir); err != nil {
			return errors.WithKind(errors.WithContext(err, "remove empty dir"), errors.IOError)
		}
	}
	return nil
}

func isRoot(dir string) bool {
	return dir == "." || dir == string(filepath.Separator)
}

// fsPath converts a slash-separated folder path into a path for the
// underlying filesystem.
func fsPath(path string) string {
	return filepath.FromSlash(path)
}
