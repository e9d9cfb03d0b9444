package delogo

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/mirrorball/pkg/progress"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		line  string
		exp   int
		expOK bool
	}{
		{
			line:  "Duration: 01:02:03.45, start: 0.000000, bitrate: 1205 kb/s",
			exp:   3723,
			expOK: true,
		},
		{
			line:  "Duration: 00:00:09.99, start: 0.000000",
			exp:   9,
			expOK: true,
		},
		{
			line: "Stream #0:0(und): Video: h264",
		},
		{
			line: "Duration: N/A, bitrate: N/A",
		},
	}

	for _, test := range tests {
		seconds, ok := parseDuration(test.line)
		assert.Equal(t, test.expOK, ok, test.line)
		assert.Equal(t, test.exp, seconds, test.line)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		line  string
		exp   int
		expOK bool
	}{
		{
			line:  "frame=  250 fps= 50 q=28.0 size=     512kB time=00:01:10.00 bitrate= 419.4kbits/s",
			exp:   70,
			expOK: true,
		},
		{
			line: "frame=    0 fps=0.0 q=0.0 size=       0kB time=N/A bitrate=N/A",
		},
		{
			// The time has to be a separate field.
			line: "xtime=00:01:10.00 bitrate",
		},
	}

	for _, test := range tests {
		seconds, ok := parseTime(test.line)
		assert.Equal(t, test.expOK, ok, test.line)
		assert.Equal(t, test.exp, seconds, test.line)
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/videos/show-nologo.mp4", OutputPath("/videos/show.mp4"))
	assert.Equal(t, "/videos/a.b-nologo.mkv", OutputPath("/videos/a.b.mkv"))
	assert.Equal(t, "/videos/noext-nologo", OutputPath("/videos/noext"))
}

func TestScanLines(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("one\ntwo\rthree\r\nfour"))
	scanner.Split(scanLines)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"one", "two", "three", "", "four"}, lines)
}

type toolCall struct {
	tool string
	args []string
}

func mockTool(output map[string][]string, onRun func(args []string) error) *[]toolCall {
	var calls []toolCall
	runTool = func(_ context.Context, tool string, args []string, onLine func(string)) error {
		calls = append(calls, toolCall{tool, args})
		for _, line := range output[args[len(args)-1]] {
			onLine(line)
		}
		return onRun(args)
	}
	return &calls
}

func TestDelogo(t *testing.T) {
	fs = afero.NewMemMapFs()
	input := "/videos/show.mp4"
	output := "/videos/show-nologo.mp4"
	require.NoError(t, afero.WriteFile(fs, output, []byte("stale"), 0644))

	calls := mockTool(map[string][]string{
		input: {"Input #0, mov,mp4", "Duration: 00:01:40.00, start: 0.000000"},
		output: {
			"frame=  1 fps=0.0 time=00:00:25.00 bitrate=1kbits/s",
			"frame=  2 fps=0.0 time=00:01:15.00 bitrate=1kbits/s",
		},
	}, func(args []string) error {
		if len(args) == 2 {
			// Probing fails because there's no output file.
			exists, err := afero.Exists(fs, output)
			require.NoError(t, err)
			assert.False(t, exists, "stale output should be removed first")
			return &exec.ExitError{}
		}
		return afero.WriteFile(fs, output, []byte("video"), 0644)
	})

	var reports []string
	sink := progress.Func(func(fraction float64, text string) {
		reports = append(reports, fmt.Sprintf("%.2f %s", fraction, text))
	})
	require.NoError(t, New("ffmpeg").Delogo(context.Background(), input, "x=1:y=2:w=3:h=4", sink))

	assert.Equal(t, []toolCall{
		{"ffmpeg", []string{"-i", input}},
		{"ffmpeg", []string{"-i", input, "-vf", "delogo=x=1:y=2:w=3:h=4", "-c:a", "copy", output}},
	}, *calls)
	assert.Equal(t, []string{
		"0.25 frame=  1 fps=0.0 time=00:00:25.00 bitrate=1kbits/s",
		"0.75 frame=  2 fps=0.0 time=00:01:15.00 bitrate=1kbits/s",
	}, reports)
}

func TestDelogoFailures(t *testing.T) {
	tests := []struct {
		name  string
		onRun func(args []string) error
	}{
		{
			name: "ToolMissing",
			onRun: func([]string) error {
				return exec.ErrNotFound
			},
		},
		{
			name: "FilterFails",
			onRun: func(args []string) error {
				if len(args) == 2 {
					return nil
				}
				return &exec.ExitError{}
			},
		},
		{
			name: "NoOutput",
			onRun: func([]string) error {
				return nil
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			mockTool(nil, test.onRun)
			err := New("ffmpeg").Delogo(context.Background(), "/in.mp4", "x=1", progress.Discard)
			assert.Error(t, err)
		})
	}
}

func TestThumbnail(t *testing.T) {
	fs = afero.NewMemMapFs()

	var pattern string
	calls := mockTool(nil, func(args []string) error {
		pattern = args[len(args)-1]
		return afero.WriteFile(fs, fmt.Sprintf(pattern, 1), []byte("png"), 0644)
	})

	png, err := New("/usr/bin/ffmpeg").Thumbnail(context.Background(), "/videos/show.mp4")
	require.NoError(t, err)
	assert.Equal(t, "png", string(png))

	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"-i", "/videos/show.mp4", "-ss", "00:02:00.00", "-vframes:v", "1", pattern},
		(*calls)[0].args)

	// The temporary frame is cleaned up.
	exists, err := afero.Exists(fs, fmt.Sprintf(pattern, 1))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestThumbnailFailure(t *testing.T) {
	fs = afero.NewMemMapFs()
	mockTool(nil, func([]string) error {
		return &exec.ExitError{}
	})

	_, err := New("ffmpeg").Thumbnail(context.Background(), "/videos/show.mp4")
	assert.Error(t, err)
}
