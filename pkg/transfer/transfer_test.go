package transfer

import (
	"bytes"
	"context"
	"io/ioutil"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/progress"
	"github.com/sidkik/mirrorball/pkg/sync"
	"github.com/sidkik/mirrorball/pkg/sync/client/mocks"
)

const testRoot = "/mirror"

type report struct {
	fraction float64
	text     string
}

func recordReports() (progress.Sink, *[]report) {
	var reports []report
	return progress.Func(func(fraction float64, text string) {
		reports = append(reports, report{fraction, text})
	}), &reports
}

func newTestMirror(t *testing.T, chunkSize int64) (*Mirror, *mocks.Client, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testRoot, 0755))
	peer := &mocks.Client{}
	mirror := New(sync.NewFolderOnFs(fs, testRoot), peer, clockwork.NewFakeClock(), chunkSize)
	return mirror, peer, fs
}

func TestPush(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	require.NoError(t, afero.WriteFile(fs, testRoot+"/dir/file", []byte("0123456789"), 0644))

	peer.On("Truncate", mock.Anything, "dir/file", []byte("0123")).Return(nil).Once()
	peer.On("Append", mock.Anything, "dir/file", []byte("4567")).Return(nil).Once()
	peer.On("Append", mock.Anything, "dir/file", []byte("89")).Return(nil).Once()

	sink, reports := recordReports()
	require.NoError(t, mirror.Copy(context.Background(), false, "dir/file", sink))
	peer.AssertExpectations(t)

	// The fake clock never advances, so no rate can be measured.
	assert.Equal(t, []report{
		{0.4, "0 B/second, 4 B of 10 B"},
		{0.8, "0 B/second, 8 B of 10 B"},
		{1, "0 B/second, 10 B of 10 B"},
	}, *reports)
}

func TestPushRequestCount(t *testing.T) {
	const chunkSize = 4
	tests := []struct {
		name        string
		size        int
		expRequests int
	}{
		{name: "Empty", size: 0, expRequests: 1},
		{name: "LessThanChunk", size: 1, expRequests: 1},
		{name: "ExactlyOneChunk", size: 4, expRequests: 1},
		{name: "JustOverOneChunk", size: 5, expRequests: 2},
		{name: "ManyChunks", size: 4*7 + 3, expRequests: 8},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mirror, peer, fs := newTestMirror(t, chunkSize)
			contents := bytes.Repeat([]byte("x"), test.size)
			require.NoError(t, afero.WriteFile(fs, testRoot+"/file", contents, 0644))

			var methods []string
			var sent int
			record := func(method string) func(mock.Arguments) {
				return func(args mock.Arguments) {
					methods = append(methods, method)
					sent += len(args.Get(2).([]byte))
				}
			}
			peer.On("Truncate", mock.Anything, "file", mock.Anything).
				Return(nil).Run(record("truncate"))
			peer.On("Append", mock.Anything, "file", mock.Anything).
				Return(nil).Run(record("append"))

			require.NoError(t, mirror.Copy(context.Background(), false, "file", progress.Discard))

			require.Len(t, methods, test.expRequests)
			assert.Equal(t, "truncate", methods[0])
			for _, method := range methods[1:] {
				assert.Equal(t, "append", method)
			}
			assert.Equal(t, test.size, sent)
		})
	}
}

func TestPushFailure(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	require.NoError(t, afero.WriteFile(fs, testRoot+"/file", []byte("0123456789"), 0644))

	peerErr := errors.WithKind(errors.New("unreachable"), errors.NetworkError)
	peer.On("Truncate", mock.Anything, "file", mock.Anything).Return(nil)
	peer.On("Append", mock.Anything, "file", mock.Anything).Return(peerErr).Once()

	err := mirror.Copy(context.Background(), false, "file", progress.Discard)
	assert.Error(t, err)
	assert.Equal(t, errors.NetworkError, errors.KindOf(err))

	// The copy stops at the first failed chunk.
	peer.AssertNumberOfCalls(t, "Append", 1)
}

func TestPushMissingFile(t *testing.T) {
	mirror, peer, _ := newTestMirror(t, 4)

	err := mirror.Copy(context.Background(), false, "missing", progress.Discard)
	assert.Error(t, err)
	assert.Equal(t, errors.IOError, errors.KindOf(err))
	peer.AssertNotCalled(t, "Truncate", mock.Anything, mock.Anything, mock.Anything)
}

func TestPull(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)

	peer.On("Length", mock.Anything, "new/dir/file").Return(int64(10), nil)
	peer.On("Pull", mock.Anything, "new/dir/file", int64(0), int64(4)).Return([]byte("0123"), nil).Once()
	peer.On("Pull", mock.Anything, "new/dir/file", int64(4), int64(4)).Return([]byte("4567"), nil).Once()
	peer.On("Pull", mock.Anything, "new/dir/file", int64(8), int64(2)).Return([]byte("89"), nil).Once()

	sink, reports := recordReports()
	require.NoError(t, mirror.Copy(context.Background(), true, "new/dir/file", sink))
	peer.AssertExpectations(t)

	contents, err := afero.ReadFile(fs, testRoot+"/new/dir/file")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(contents))

	require.Len(t, *reports, 3)
	assert.Equal(t, 1.0, (*reports)[2].fraction)
}

func TestPullOverwrites(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	require.NoError(t, afero.WriteFile(fs, testRoot+"/file", []byte("much longer old contents"), 0644))

	peer.On("Length", mock.Anything, "file").Return(int64(3), nil)
	peer.On("Pull", mock.Anything, "file", int64(0), int64(3)).Return([]byte("new"), nil)

	require.NoError(t, mirror.Copy(context.Background(), true, "file", progress.Discard))

	contents, err := afero.ReadFile(fs, testRoot+"/file")
	require.NoError(t, err)
	assert.Equal(t, "new", string(contents))
}

func TestPullEmpty(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	peer.On("Length", mock.Anything, "empty").Return(int64(0), nil)

	sink, reports := recordReports()
	require.NoError(t, mirror.Copy(context.Background(), true, "empty", sink))
	peer.AssertNotCalled(t, "Pull", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	exists, err := afero.Exists(fs, testRoot+"/empty")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []report{{1, "0 B/second, 0 B of 0 B"}}, *reports)
}

func TestPullLengthFailure(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	peer.On("Length", mock.Anything, "file").Return(int64(0), assert.AnError)

	err := mirror.Copy(context.Background(), true, "file", progress.Discard)
	assert.Error(t, err)
	assert.Equal(t, assert.AnError, errors.RootCause(err))

	// Nothing is created locally if the peer's file can't be read.
	exists, err := afero.Exists(fs, testRoot+"/file")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	require.NoError(t, afero.WriteFile(fs, testRoot+"/a/b/file", []byte("x"), 0644))

	require.NoError(t, mirror.Delete(context.Background(), false, "a/b/file"))
	exists, err := afero.Exists(fs, testRoot+"/a")
	require.NoError(t, err)
	assert.False(t, exists)

	peer.On("Delete", mock.Anything, "remote/file").Return(nil).Once()
	require.NoError(t, mirror.Delete(context.Background(), true, "remote/file"))

	peer.On("Delete", mock.Anything, "remote/other").Return(assert.AnError).Once()
	assert.Error(t, mirror.Delete(context.Background(), true, "remote/other"))
	peer.AssertExpectations(t)
}

func TestRename(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 4)
	require.NoError(t, afero.WriteFile(fs, testRoot+"/old/file", []byte("x"), 0644))

	require.NoError(t, mirror.Rename(context.Background(), false, "old/file", "new/file"))
	contents, err := afero.ReadFile(fs, testRoot+"/new/file")
	require.NoError(t, err)
	assert.Equal(t, "x", string(contents))

	// Local failures are returned.
	assert.Error(t, mirror.Rename(context.Background(), false, "missing", "other"))

	// Remote failures are only logged.
	peer.On("Rename", mock.Anything, "a", "b").Return(assert.AnError).Once()
	assert.NoError(t, mirror.Rename(context.Background(), true, "a", "b"))
	peer.AssertExpectations(t)
}

func TestPushedBytesMatchFile(t *testing.T) {
	mirror, peer, fs := newTestMirror(t, 3)
	contents := []byte("the quick brown fox")
	require.NoError(t, afero.WriteFile(fs, testRoot+"/fox", contents, 0644))

	var received bytes.Buffer
	write := func(args mock.Arguments) {
		received.Write(args.Get(2).([]byte))
	}
	peer.On("Truncate", mock.Anything, "fox", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		received.Reset()
		write(args)
	})
	peer.On("Append", mock.Anything, "fox", mock.Anything).Return(nil).Run(write)

	require.NoError(t, mirror.Copy(context.Background(), false, "fox", progress.Discard))

	got, err := ioutil.ReadAll(&received)
	require.NoError(t, err)
	assert.Equal(t, contents, got)
}
