package transfer

import (
	"context"
	"io"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/progress"
	"github.com/sidkik/mirrorball/pkg/sync"
	"github.com/sidkik/mirrorball/pkg/sync/client"
)

// DefaultChunkSize is the size of each piece of a file sent in a single
// request.
const DefaultChunkSize = 1024 * 1024

// Mirror applies file operations to either the local folder or the peer's
// folder. For every operation, `remote` says whether the peer is the source
// (copy) or target (delete, rename) of the operation.
type Mirror struct {
	local     sync.Folder
	peer      client.Client
	clock     clockwork.Clock
	chunkSize int64
}

// New creates a Mirror between `local` and `peer`.
func New(local sync.Folder, peer client.Client, clock clockwork.Clock, chunkSize int64) *Mirror {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Mirror{local: local, peer: peer, clock: clock, chunkSize: chunkSize}
}

// Copy makes the file at `path` identical on both nodes. If `remote` is
// true, the peer's copy is pulled. Otherwise the local copy is pushed.
// A failed copy isn't resumed; the next attempt starts over.
func (m *Mirror) Copy(ctx context.Context, remote bool, path string, sink progress.Sink) error {
	if remote {
		return m.pull(ctx, path, sink)
	}
	return m.push(ctx, path, sink)
}

// push sends the local file in chunks. The first chunk overwrites the
// peer's file, and the rest are appended to it.
func (m *Mirror) push(ctx context.Context, path string, sink progress.Sink) error {
	file, err := m.local.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.WithKind(errors.WithContext(err, "stat"), errors.IOError)
	}
	size := info.Size()

	logger := log.WithFields(log.Fields{
		"path": path,
		"size": size,
	})
	logger.Info("Pushing file to peer")

	transfer := progress.NewTransfer(m.clock, size)
	send := m.peer.Truncate
	var position int64
	for {
		count := m.chunkSize
		if remaining := size - position; remaining < count {
			count = remaining
		}

		chunk := make([]byte, count)
		if _, err := io.ReadFull(file, chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = errors.ErrShortRead
			}
			return errors.WithKind(errors.WithContext(err, "read chunk"), errors.IOError)
		}

		if err := send(ctx, path, chunk); err != nil {
			return errors.WithContext(err, "send chunk")
		}
		send = m.peer.Append
		position += count
		logger.WithField("position", position).Debug("Sent chunk")
		transfer.Report(sink, position)

		// An empty file is still sent once so that it's created on the peer.
		if position >= size {
			break
		}
	}

	logger.Info("Finished pushing file")
	return nil
}

// pull requests the peer's file one range at a time, and writes each range
// into a fresh local file.
func (m *Mirror) pull(ctx context.Context, path string, sink progress.Sink) error {
	length, err := m.peer.Length(ctx, path)
	if err != nil {
		return errors.WithContext(err, "get length")
	}

	logger := log.WithFields(log.Fields{
		"path": path,
		"size": length,
	})
	logger.Info("Pulling file from peer")

	file, err := m.local.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	transfer := progress.NewTransfer(m.clock, length)
	var position int64
	for position < length {
		count := m.chunkSize
		if remaining := length - position; remaining < count {
			count = remaining
		}

		chunk, err := m.peer.Pull(ctx, path, position, count)
		if err != nil {
			return errors.WithContext(err, "pull chunk")
		}

		if _, err := file.Write(chunk); err != nil {
			return errors.WithKind(errors.WithContext(err, "write chunk"), errors.IOError)
		}
		position += count
		logger.WithField("position", position).Debug("Received chunk")
		transfer.Report(sink, position)
	}

	if length == 0 {
		transfer.Report(sink, 0)
	}

	logger.Info("Finished pulling file")
	return nil
}

// Delete removes the file at `path`. Locally, emptied parent directories are
// pruned as well. The peer prunes its own directories.
func (m *Mirror) Delete(ctx context.Context, remote bool, path string) error {
	if !remote {
		return m.local.Delete(path)
	}

	log.WithField("path", path).Info("Deleting file on peer")
	if err := m.peer.Delete(ctx, path); err != nil {
		return errors.WithContext(err, "delete on peer")
	}
	return nil
}

// Rename moves the file at `oldPath` to `newPath`. Failures to rename on the
// peer are only logged: the rename will show up again as an issue the next
// time the folders are compared.
func (m *Mirror) Rename(ctx context.Context, remote bool, oldPath, newPath string) error {
	if !remote {
		return m.local.Rename(oldPath, newPath)
	}

	logger := log.WithFields(log.Fields{
		"from": oldPath,
		"to":   newPath,
	})
	logger.Info("Renaming file on peer")
	if err := m.peer.Rename(ctx, oldPath, newPath); err != nil {
		logger.WithError(err).Warn("Failed to rename file on peer")
	}
	return nil
}
