package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"io"

	"github.com/spf13/afero"

	"github.com/sidkik/mirrorball/pkg/errors"
)

// SampleSize is the number of bytes read from large files when
// fingerprinting them. Files smaller than SampleSize are hashed in full.
// Larger files are hashed over their first and last SampleSize/2 bytes, so
// two large files that only differ in the middle have the same fingerprint.
const SampleSize = 1024 * 1024

// Mocked out for unit testing.
var fingerprintFile = fingerprintFileImpl

// Fingerprint returns the sha512 fingerprint of the file at `path`.
func Fingerprint(fs afero.Fs, path string) (string, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return "", errors.WithKind(errors.WithContext(err, "stat"), errors.IOError)
	}
	return fingerprintFile(fs, path, fi.Size())
}

func fingerprintFileImpl(fs afero.Fs, path string, size int64) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithKind(errors.WithContext(err, "open"), errors.IOError)
	}
	defer f.Close()

	hasher := sha512.New()
	if size < SampleSize {
		if err := copySample(hasher, f, size); err != nil {
			return "", errors.WithContext(err, "read")
		}
	} else {
		halfSize := int64(SampleSize / 2)
		if err := copySample(hasher, f, halfSize); err != nil {
			return "", errors.WithContext(err, "read head")
		}

		if _, err := f.Seek(-halfSize, io.SeekEnd); err != nil {
			return "", errors.WithKind(errors.WithContext(err, "seek"), errors.IOError)
		}

		if err := copySample(hasher, f, halfSize); err != nil {
			return "", errors.WithContext(err, "read tail")
		}
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// copySample copies exactly `n` bytes from `src` into `dst`. A file that
// turns out to be shorter than its stat'd size is a fatal error.
func copySample(dst io.Writer, src io.Reader, n int64) error {
	_, err := io.CopyN(dst, src, n)
	if err == io.EOF {
		err = errors.ErrShortRead
	}
	return errors.WithKind(err, errors.IOError)
}
