package config

import (
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// Variables mocked for unit testing. They're overridden with an in-memory
// filesystem and fixed values in the tests.
var (
	fs            = afero.NewOsFs()
	homedirExpand = homedir.Expand
	hostname      = os.Hostname
)
