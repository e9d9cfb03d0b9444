package compare

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/mirrorball/cmd/util"
	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/progress"
	"github.com/sidkik/mirrorball/pkg/sync"
)

// Mocked for unit testing.
var (
	stdout    io.Writer = os.Stdout
	newFolder           = sync.NewFolder
)

// New creates a new `compare` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "compare LEFT RIGHT",
		Short: "Compare two local folders",
		Long: "Scan two folders and print the files that are unique to one of\n" +
			"them, renamed, or modified. Duplicates within a folder must be\n" +
			"removed before the folders can be compared.",
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(args[0], args[1]); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(leftRoot, rightRoot string) error {
	left, ok, err := scan(leftRoot)
	if err != nil || !ok {
		return err
	}

	right, ok, err := scan(rightRoot)
	if err != nil || !ok {
		return err
	}

	for _, diff := range sync.Compare(left, right) {
		switch diff.Type {
		case sync.LeftOnly:
			fmt.Fprintf(stdout, "Unique: %s in %s\n", diff.Left, leftRoot)
		case sync.RightOnly:
			fmt.Fprintf(stdout, "Unique: %s in %s\n", diff.Right, rightRoot)
		case sync.Renamed:
			fmt.Fprintf(stdout, "Renamed:\n    %s in %s\n    %s in %s\n",
				diff.Left, leftRoot, diff.Right, rightRoot)
		case sync.Modified:
			fmt.Fprintf(stdout, "Modified: %s\n", diff.Left)
		}
	}
	return nil
}

// scan returns the snapshot of the folder at `root`. If the folder contains
// duplicates, they're printed and `ok` is false.
func scan(root string) (states []sync.FileState, ok bool, err error) {
	fmt.Fprintf(stdout, "Scanning %s...\n", root)
	states, err = newFolder(root).Scan(progress.Discard)
	if err != nil {
		return nil, false, errors.WithContext(err, fmt.Sprintf("scan %s", root))
	}

	duplicates := sync.FindDuplicates(states)
	if len(duplicates) == 0 {
		return states, true, nil
	}

	fmt.Fprintln(stdout, "The following groups of duplicates exist:")
	for _, group := range duplicates {
		fmt.Fprintln(stdout)
		for _, file := range group {
			fmt.Fprintf(stdout, "  - %s\n", file.Path)
		}
	}
	return nil, false, nil
}
