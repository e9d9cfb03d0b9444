package issue

import (
	"context"
	"sort"

	"github.com/sidkik/mirrorball/pkg/progress"
)

// State is the position of an issue in its lifecycle.
//
//	New    -> Queued  (resolved by the user, choice recorded)
//	Queued -> Busy    (picked up by the scheduler's worker)
//	Busy   -> removed (resolution succeeded)
//	Busy   -> Failed  (resolution failed, message replaced by the error)
//	Failed -> removed (cleared by the user)
type State int

const (
	// New issues are waiting for the user to pick an option.
	New State = iota

	// Queued issues have a choice and are waiting for the worker.
	Queued

	// Busy issues are being resolved. At most one issue is ever Busy.
	Busy

	// Failed issues stay visible until the user clears them.
	Failed
)

func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Queued:
		return "Queued"
	case Busy:
		return "Busy"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Info is the user visible description of an issue.
type Info struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Message      string   `json:"message"`
	Options      []string `json:"options"`
	State        State    `json:"state"`
	Progress     float64  `json:"progress"`
	ProgressText string   `json:"progressText"`
	Choice       string   `json:"choice"`

	// DelogoPath is set on issues about a single file that the user may
	// want to de-logo before deciding.
	DelogoPath string `json:"delogoPath,omitempty"`
}

// ResolveFunc performs the user's `choice` for an issue, reporting its
// progress to `sink`.
type ResolveFunc func(ctx context.Context, choice string, sink progress.Sink) error

// Issue pairs the description of an issue with the action that resolves it.
type Issue struct {
	Info    Info
	Resolve ResolveFunc
}

// Resolution is a user's choice for an issue.
type Resolution struct {
	ID     int    `json:"id"`
	Choice string `json:"choice"`
}

func (info Info) copy() Info {
	// Options is never nil, so it's always serialized as a list.
	info.Options = append([]string{}, info.Options...)
	return info
}

// similar returns whether two issues describe the same problem. The order of
// the options doesn't matter.
func similar(a, b Info) bool {
	if a.Title != b.Title || a.Message != b.Message || len(a.Options) != len(b.Options) {
		return false
	}

	aOptions := append([]string{}, a.Options...)
	bOptions := append([]string{}, b.Options...)
	sort.Strings(aOptions)
	sort.Strings(bOptions)
	for i := range aOptions {
		if aOptions[i] != bOptions[i] {
			return false
		}
	}
	return true
}
