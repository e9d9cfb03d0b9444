package version

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/mirrorball/cmd/util"
	"github.com/sidkik/mirrorball/pkg/config"
	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/sync/client"
	"github.com/sidkik/mirrorball/pkg/version"
)

// Mocked for unit testing.
var (
	stdout    io.Writer = os.Stdout
	newClient           = client.New
)

// New creates a new `version` command.
func New() *cobra.Command {
	var configFlags *util.ConfigFlags
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the local and peer version of MirrorBall.",
		Long: "Print the local version of MirrorBall and the version running\n" +
			"on the peer node configured for this host.",
		Run: func(_ *cobra.Command, _ []string) {
			node, err := configFlags.Load()
			if err != nil {
				// The local version is still useful without a config.
				log.WithError(err).Debug("Failed to load config")
				fmt.Fprintf(stdout, "local version: %s\n", version.Version)
				return
			}

			if err := run(context.Background(), node); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	configFlags = util.AddConfigFlags(cmd)
	return cmd
}

func run(ctx context.Context, node config.Node) error {
	fmt.Fprintf(stdout, "local version: %s\n", version.Version)

	opts := client.Options{
		Attempts: 1,
		Timeout:  client.DefaultOptions.Timeout,
	}
	peerVersion, err := newClient(node.PeerServer, opts).Version(ctx)
	if err != nil {
		return errors.WithContext(err, "get peer version")
	}

	fmt.Fprintf(stdout, "peer version:  %s\n", peerVersion)
	return nil
}
