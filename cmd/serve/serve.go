package serve

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/mirrorball/cmd/util"
	"github.com/sidkik/mirrorball/pkg/config"
	"github.com/sidkik/mirrorball/pkg/delogo"
	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/fswatch"
	"github.com/sidkik/mirrorball/pkg/issue"
	"github.com/sidkik/mirrorball/pkg/reconcile"
	"github.com/sidkik/mirrorball/pkg/sync"
	"github.com/sidkik/mirrorball/pkg/sync/client"
	"github.com/sidkik/mirrorball/pkg/sync/server"
	"github.com/sidkik/mirrorball/pkg/transfer"
	"github.com/sidkik/mirrorball/pkg/version"
)

// New creates a new `serve` command.
func New() *cobra.Command {
	var configFlags *util.ConfigFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a MirrorBall node",
		Long: "Serve the local folder to the peer node, and the issues found\n" +
			"by comparing the two folders to the UI.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			node, err := configFlags.Load()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := run(ctx, node); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	configFlags = util.AddConfigFlags(cmd)
	return cmd
}

// components are the long running pieces of a node.
type components struct {
	handler    http.Handler
	scheduler  *issue.Scheduler
	reconciler *reconcile.Reconciler
}

func newComponents(node config.Node, clock clockwork.Clock) components {
	local := sync.NewFolder(node.RootFolder)
	peer := client.New(node.PeerServer, client.Options{
		Attempts: node.RetryAttempts,
		Delay:    node.RetryDelayDuration(),
		Timeout:  client.DefaultOptions.Timeout,
	})
	mirror := transfer.New(local, peer, clock, int64(node.ChunkSize))
	scheduler := issue.NewScheduler(clock, issue.DefaultPollInterval)
	tool := delogo.New(node.FFmpeg)
	reconciler := reconcile.New(local, peer, mirror, scheduler, tool, reconcile.Names{
		Ours: node.OurName,
		Peer: node.PeerName,
	})

	handler := server.New(server.Config{
		Folder:      local,
		Scheduler:   scheduler,
		Reconciler:  reconciler,
		Thumbnailer: tool,
		StaticDir:   node.StaticDir,
		Version:     version.Version,
	})
	return components{
		handler:    handler,
		scheduler:  scheduler,
		reconciler: reconciler,
	}
}

func run(ctx context.Context, node config.Node) error {
	log.WithFields(log.Fields{
		"name":   node.OurName,
		"peer":   node.PeerServer,
		"folder": node.RootFolder,
	}).Info("Starting MirrorBall node")

	clock := clockwork.NewRealClock()
	c := newComponents(node, clock)
	defer c.scheduler.Close()

	if node.AutoRefresh {
		updates, err := fswatch.Watch(ctx, node.RootFolder)
		if err != nil {
			return errors.WithContext(err, "watch folder")
		}
		go fswatch.Debounce(ctx, clock, updates, fswatch.DefaultQuietPeriod, c.reconciler.QueueRefresh)
	}

	return server.Run(ctx, node.ListenAddr, c.handler)
}
