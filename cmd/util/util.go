package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/mirrorball/pkg/config"
	"github.com/sidkik/mirrorball/pkg/errors"
)

// Mocked for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError prints the error in a form suitable for users, and exits.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs the panic and its stack trace before exiting. It must be
// deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Debug("Panic stack trace")
		HandleFatalError(errors.New("panic: %v", r))
	}
}

// ConfigFlags selects the node config used by a command.
type ConfigFlags struct {
	Path string
	Host string
}

// AddConfigFlags registers the flags for selecting the node config on `cmd`.
func AddConfigFlags(cmd *cobra.Command) *ConfigFlags {
	flags := &ConfigFlags{}
	cmd.Flags().StringVar(&flags.Path, "config", config.DefaultPath,
		"Path to the MirrorBall config.")
	cmd.Flags().StringVar(&flags.Host, "host", "",
		"The section of the config to use. Defaults to this machine's host name.")
	return flags
}

// Load parses the node config selected by the flags.
func (flags ConfigFlags) Load() (config.Node, error) {
	node, err := config.Parse(flags.Path, flags.Host)
	if err != nil {
		return config.Node{}, errors.WithContext(err, "parse config")
	}
	return node, nil
}
