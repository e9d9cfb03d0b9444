package delogo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/progress"
)

// Variables mocked for unit testing.
var (
	fs      = afero.NewOsFs()
	runTool = runToolImpl
)

// ThumbnailOffset is how far into a video its thumbnail is taken from.
const ThumbnailOffset = "00:02:00.00"

// Runner invokes ffmpeg.
type Runner struct {
	ffmpeg string
}

// New returns a Runner that uses the ffmpeg executable at `ffmpeg`.
func New(ffmpeg string) Runner {
	return Runner{ffmpeg: ffmpeg}
}

// OutputPath returns where the de-logoed copy of `input` is written.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "-nologo" + ext
}

// Delogo writes a copy of the video at `input` with the region described by
// `option` blurred out. `option` is passed straight to ffmpeg's delogo
// filter, e.g. "x=10:y=10:w=100:h=50". Progress is the fraction of the
// video's duration that's been processed, along with ffmpeg's latest status
// line.
func (r Runner) Delogo(ctx context.Context, input, option string, sink progress.Sink) error {
	output := OutputPath(input)
	logger := log.WithFields(log.Fields{
		"input":  input,
		"output": output,
	})
	logger.Info("Removing logo")

	if err := fs.Remove(output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.WithContext(err, "remove old output")
	}

	var duration int
	err := runTool(ctx, r.ffmpeg, []string{"-i", input}, func(line string) {
		if seconds, ok := parseDuration(line); ok {
			duration = seconds
		}
	})

	// Probing without an output file always exits with an error, so only
	// failing to start ffmpeg matters.
	if err != nil && !isExitError(err) {
		return errors.WithContext(err, "probe duration")
	}
	logger.WithField("seconds", duration).Debug("Got video duration")

	args := []string{"-i", input, "-vf", "delogo=" + option, "-c:a", "copy", output}
	err = runTool(ctx, r.ffmpeg, args, func(line string) {
		var fraction float64
		if seconds, ok := parseTime(line); ok && duration != 0 {
			fraction = float64(seconds) / float64(duration)
		}
		sink.Report(fraction, line)
	})
	if err != nil {
		return errors.WithContext(err, "run delogo filter")
	}

	exists, err := afero.Exists(fs, output)
	if err != nil {
		return errors.WithContext(err, "check output")
	}

	if !exists {
		return errors.New("ffmpeg didn't create %s", output)
	}

	logger.Info("Finished removing logo")
	return nil
}

// Thumbnail returns a PNG of a single frame of the video at `input`.
func (r Runner) Thumbnail(ctx context.Context, input string) ([]byte, error) {
	dir, err := afero.TempDir(fs, "", "mirrorball-thumbnail")
	if err != nil {
		return nil, errors.WithContext(err, "create temp dir")
	}
	defer func() {
		if err := fs.RemoveAll(dir); err != nil {
			log.WithError(err).WithField("dir", dir).Warn("Failed to remove thumbnail directory")
		}
	}()

	pattern := filepath.Join(dir, "frame-%03d.png")
	args := []string{"-i", input, "-ss", ThumbnailOffset, "-vframes:v", "1", pattern}
	err = runTool(ctx, r.ffmpeg, args, func(line string) {
		log.WithField("input", input).Debug(line)
	})
	if err != nil {
		return nil, errors.WithContext(err, "extract frame")
	}

	png, err := afero.ReadFile(fs, fmt.Sprintf(pattern, 1))
	if err != nil {
		return nil, errors.WithContext(err, "read frame")
	}
	return png, nil
}

var (
	durationPattern = regexp.MustCompile(`Duration:\s(\d\d):(\d\d):(\d\d)\.(\d\d),`)
	timePattern     = regexp.MustCompile(`\stime=(\d\d):(\d\d):(\d\d)\.(\d\d)\s`)
)

// parseDuration extracts the length in seconds of the input video from a
// line of ffmpeg's output.
func parseDuration(line string) (int, bool) {
	return parseSeconds(durationPattern, line)
}

// parseTime extracts how many seconds of the video have been processed from
// a line of ffmpeg's output.
func parseTime(line string) (int, bool) {
	return parseSeconds(timePattern, line)
}

func parseSeconds(pattern *regexp.Regexp, line string) (int, bool) {
	match := pattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}

	var parts [3]int
	for i := range parts {
		// The pattern only matches digits.
		parts[i], _ = strconv.Atoi(match[i+1])
	}
	return parts[0]*3600 + parts[1]*60 + parts[2], true
}

// runToolImpl runs `tool`, and calls `onLine` for each non-empty line it
// writes to stderr.
func runToolImpl(ctx context.Context, tool string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.WithContext(err, "get stderr")
	}

	log.WithField("args", args).Debug("Running " + tool)
	if err := cmd.Start(); err != nil {
		return errors.WithContext(err, "start")
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanLines)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			onLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("Failed to read output")
		// Keep draining so that the tool doesn't block on a full pipe.
		_, _ = io.Copy(ioutil.Discard, stderr)
	}

	return cmd.Wait()
}

// scanLines is like bufio.ScanLines, but also splits on carriage returns,
// which ffmpeg uses to overwrite its status line.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
