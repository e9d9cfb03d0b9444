package issues

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/sidkik/mirrorball/cmd/util"
	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/issue"
	"github.com/sidkik/mirrorball/pkg/sync/client"
)

// DefaultServer is the address of a node running on this machine with the
// default config.
const DefaultServer = "http://localhost:5000"

// Mocked for unit testing.
var (
	stdout    io.Writer = os.Stdout
	newClient           = client.New
)

// New creates a new `issues` command.
func New() *cobra.Command {
	var server string
	getClient := func() client.Client {
		opts := client.DefaultOptions
		opts.Attempts = 1
		return newClient(server, opts)
	}

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Manage the issues of a running node",
		Long: "List the issues of a running node. The subcommands resolve\n" +
			"issues and queue new work.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := list(context.Background(), getClient()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&server, "server", DefaultServer,
		"The base URL of the node to manage.")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the issues",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := list(context.Background(), getClient()); err != nil {
				util.HandleFatalError(err)
			}
		},
	}, &cobra.Command{
		Use:   "resolve ID CHOICE",
		Short: "Pick an option for an issue, or clear a failed issue",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			if err := resolve(context.Background(), getClient(), args[0], args[1]); err != nil {
				util.HandleFatalError(err)
			}
		},
	}, &cobra.Command{
		Use:   "refresh",
		Short: "Compare the node's folder with its peer",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := getClient().Refresh(context.Background()); err != nil {
				util.HandleFatalError(errors.WithContext(err, "refresh"))
			}
			fmt.Fprintln(stdout, "Queued a refresh.")
		},
	}, &cobra.Command{
		Use:   "delogo PATH OPTION",
		Short: "Remove a logo from a video on the node",
		Long: "Remove a logo from a video on the node. OPTION is the delogo\n" +
			"filter's argument, such as x=10:y=10:w=100:h=50.",
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			if err := getClient().Delogo(context.Background(), args[0], args[1]); err != nil {
				util.HandleFatalError(errors.WithContext(err, "delogo"))
			}
			fmt.Fprintf(stdout, "Queued removing the logo from %s.\n", args[0])
		},
	})
	return cmd
}

func list(ctx context.Context, c client.Client) error {
	issues, err := c.Issues(ctx)
	if err != nil {
		return errors.WithContext(err, "get issues")
	}

	if len(issues) == 0 {
		fmt.Fprintln(stdout, "No issues.")
		return nil
	}

	out := tabwriter.NewWriter(stdout, 0, 10, 5, ' ', 0)
	fmt.Fprintln(out, "ID\tSTATE\tTITLE\tMESSAGE\tOPTIONS")
	for _, info := range issues {
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\n", info.ID, stateString(info),
			info.Title, info.Message, strings.Join(info.Options, ", "))
	}
	return out.Flush()
}

func resolve(ctx context.Context, c client.Client, idStr, choice string) error {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return errors.NewFriendlyError("Issue ID %q is not a number.", idStr)
	}

	if err := c.Resolve(ctx, id, choice); err != nil {
		return errors.WithContext(err, "resolve")
	}
	fmt.Fprintf(stdout, "Resolved issue %d with %q.\n", id, choice)
	return nil
}

func stateString(info issue.Info) string {
	msg := info.State.String()
	color := goterm.BLACK
	switch info.State {
	case issue.New:
		color = goterm.YELLOW
	case issue.Queued:
		color = goterm.BLUE
	case issue.Busy:
		color = goterm.GREEN
		msg = fmt.Sprintf("%s %.0f%%", msg, info.Progress*100)
		if info.ProgressText != "" {
			msg += " " + info.ProgressText
		}
	case issue.Failed:
		color = goterm.RED
	}
	return goterm.Color(msg, color)
}
