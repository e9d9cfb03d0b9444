package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/mirrorball/pkg/errors"
)

func mockExit() (*bytes.Buffer, *int) {
	var out bytes.Buffer
	code := -1
	stderr = &out
	exit = func(c int) {
		code = c
	}
	return &out, &code
}

func TestHandleFatalError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		expOutput string
	}{
		{
			name:      "Friendly",
			err:       errors.WithContext(errors.NewFriendlyError("Fix the config."), "parse config"),
			expOutput: "Fix the config.\n",
		},
		{
			name:      "Unexpected",
			err:       errors.WithContext(errors.New("boom"), "scan"),
			expOutput: "Unexpected error: scan: boom\n",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out, code := mockExit()
			HandleFatalError(test.err)
			assert.Equal(t, test.expOutput, out.String())
			assert.Equal(t, 1, *code)
		})
	}
}

func TestHandlePanic(t *testing.T) {
	out, code := mockExit()
	func() {
		defer HandlePanic()
		panic("oops")
	}()
	assert.Equal(t, "Unexpected error: panic: oops\n", out.String())
	assert.Equal(t, 1, *code)
}

func TestHandlePanicNoPanic(t *testing.T) {
	out, code := mockExit()
	func() {
		defer HandlePanic()
	}()
	assert.Empty(t, out.String())
	assert.Equal(t, -1, *code)
}
