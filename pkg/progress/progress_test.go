package progress

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestTransferMessage(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transfer := NewTransfer(clock, 10*1024*1024)

	assert.Equal(t, "0 B/second, 0 B of 10 MiB", transfer.Message(0))

	clock.Advance(2 * time.Second)
	assert.Equal(t, "2.0 MiB/second, 4.0 MiB of 10 MiB", transfer.Message(4*1024*1024))
	assert.Equal(t, 0.4, transfer.Fraction(4*1024*1024))
}

func TestTransferEmpty(t *testing.T) {
	transfer := NewTransfer(clockwork.NewFakeClock(), 0)
	assert.Equal(t, float64(1), transfer.Fraction(0))
}

func TestFuncSink(t *testing.T) {
	var gotFraction float64
	var gotText string
	sink := Func(func(fraction float64, text string) {
		gotFraction, gotText = fraction, text
	})

	NewTransfer(clockwork.NewFakeClock(), 2048).Report(sink, 1024)
	assert.Equal(t, 0.5, gotFraction)
	assert.Equal(t, "0 B/second, 1.0 KiB of 2.0 KiB", gotText)

	Discard.Report(1, "ignored")
}
