package progress

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
)

// Sink receives progress updates from long running operations. Only the most
// recent update matters: implementations may drop or overwrite earlier ones.
type Sink interface {
	Report(fraction float64, text string)
}

// Func adapts an ordinary function to the Sink interface.
type Func func(fraction float64, text string)

// Report calls f.
func (f Func) Report(fraction float64, text string) {
	f(fraction, text)
}

// Discard is a Sink that ignores every update.
var Discard Sink = Func(func(float64, string) {})

// Transfer formats human readable progress for a transfer of a known total
// size, measuring the rate from when it was created.
type Transfer struct {
	clock clockwork.Clock
	start time.Time
	total int64
}

// NewTransfer starts timing a transfer of `total` bytes.
func NewTransfer(clock clockwork.Clock, total int64) Transfer {
	return Transfer{clock: clock, start: clock.Now(), total: total}
}

// Fraction returns how much of the transfer is done after `position` bytes.
func (t Transfer) Fraction(position int64) float64 {
	if t.total == 0 {
		return 1
	}
	return float64(position) / float64(t.total)
}

// Message describes the rate and amount transferred after `position` bytes.
// For example "1.5 MiB/second, 3.0 MiB of 10 MiB".
func (t Transfer) Message(position int64) string {
	var rate uint64
	if elapsed := t.clock.Now().Sub(t.start).Seconds(); elapsed > 0 {
		rate = uint64(float64(position) / elapsed)
	}
	return fmt.Sprintf("%s/second, %s of %s", humanize.IBytes(rate),
		humanize.IBytes(uint64(position)), humanize.IBytes(uint64(t.total)))
}

// Report sends the fraction and message for `position` to `sink`.
func (t Transfer) Report(sink Sink, position int64) {
	sink.Report(t.Fraction(position), t.Message(position))
}
