package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/mirrorball/pkg/errors"
)

const (
	// DefaultPath is the default path to the MirrorBall config.
	DefaultPath = "~/.mirrorball.yaml"

	// SupportedVersion is the config version understood by this binary.
	SupportedVersion = "v1alpha1"

	DefaultListenAddr    = ":5000"
	DefaultFFmpeg        = "ffmpeg"
	DefaultRetryAttempts = 50
	DefaultRetryDelay    = "500ms"
	DefaultChunkSize     = 1 << 20
)

// File is the contents of the config file. A single file can be shared by
// both nodes, since each node reads the section for its own host name.
type File struct {
	Version string          `json:"version"`
	Hosts   map[string]Node `json:"hosts"`
}

// parseErrTemplate is shown when the config isn't valid YAML, or has fields
// of the wrong type or unknown fields. The yaml library's errors don't say
// where in the file the problem is, so the parser's message is passed on.
const parseErrTemplate = "The MirrorBall config %q could not be parsed.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields, such as quoting retryAttempts\n" +
	" - Misspelled fields, such as peername instead of peerName\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

type incompatibleVersionError struct {
	path, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The MirrorBall config %q has version %q, but this "+
		"version of MirrorBall only understands %q.", err.path, err.actual, SupportedVersion)
}

// readFile parses the config at `path`. The version is checked before the
// strict parse, so an old config is reported as such rather than as having
// unknown fields.
func readFile(path string) (File, error) {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, errors.NewFriendlyError("The MirrorBall config "+
				"file doesn't exist at %q.", path)
		}
		return File{}, errors.WithContext(err, "read file")
	}

	var version struct {
		Version string `json:"version"`
	}
	if err := yaml.Unmarshal(configBytes, &version); err != nil {
		return File{}, errors.NewFriendlyError(parseErrTemplate, path, err)
	}
	if version.Version != "" && version.Version != SupportedVersion {
		return File{}, incompatibleVersionError{path, version.Version}
	}

	file := File{Version: SupportedVersion}
	if err := yaml.UnmarshalStrict(configBytes, &file, yaml.DisallowUnknownFields); err != nil {
		return File{}, errors.NewFriendlyError(parseErrTemplate, path, err)
	}
	return file, nil
}

// Node configures a single MirrorBall node.
type Node struct {
	OurName    string `json:"ourName"`
	PeerName   string `json:"peerName"`
	PeerServer string `json:"peerServer"`
	RootFolder string `json:"rootFolder"`

	ListenAddr    string `json:"listenAddr,omitempty"`
	FFmpeg        string `json:"ffmpeg,omitempty"`
	StaticDir     string `json:"staticDir,omitempty"`
	AutoRefresh   bool   `json:"autoRefresh,omitempty"`
	RetryAttempts int    `json:"retryAttempts,omitempty"`
	RetryDelay    string `json:"retryDelay,omitempty"`
	ChunkSize     int    `json:"chunkSize,omitempty"`
}

// RetryDelayDuration returns the parsed RetryDelay. Nodes returned by Parse
// are guaranteed to have a valid delay.
func (n Node) RetryDelayDuration() time.Duration {
	delay, err := time.ParseDuration(n.RetryDelay)
	if err != nil {
		return 0
	}
	return delay
}

// Parse reads the config file at `path`, and returns the section for `host`.
// If `host` is empty, the machine's host name is used.
func Parse(path, host string) (Node, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Node{}, errors.WithContext(err, "expand config path")
	}

	file, err := readFile(path)
	if err != nil {
		return Node{}, errors.WithContext(err, "parse")
	}

	if host == "" {
		host, err = hostname()
		if err != nil {
			return Node{}, errors.WithContext(err, "get hostname")
		}
	}

	node, ok := file.Hosts[host]
	if !ok {
		var hosts []string
		for name := range file.Hosts {
			hosts = append(hosts, name)
		}
		sort.Strings(hosts)
		return Node{}, errors.NewFriendlyError("The config file %q has no "+
			"section for host %q.\nConfigured hosts: %s", path, host, strings.Join(hosts, ", "))
	}

	node.setDefaults()
	if err := node.validate(); err != nil {
		return Node{}, err
	}

	for _, dir := range []*string{&node.RootFolder, &node.StaticDir} {
		if *dir == "" {
			continue
		}

		*dir, err = homedirExpand(*dir)
		if err != nil {
			return Node{}, errors.WithContext(err, "expand path")
		}

		// Evaluate relative paths relative to the config path.
		if !filepath.IsAbs(*dir) {
			*dir = filepath.Join(filepath.Dir(path), *dir)
		}
	}
	return node, nil
}

func (n *Node) setDefaults() {
	if n.ListenAddr == "" {
		n.ListenAddr = DefaultListenAddr
	}
	if n.FFmpeg == "" {
		n.FFmpeg = DefaultFFmpeg
	}
	if n.RetryAttempts == 0 {
		n.RetryAttempts = DefaultRetryAttempts
	}
	if n.RetryDelay == "" {
		n.RetryDelay = DefaultRetryDelay
	}
	if n.ChunkSize == 0 {
		n.ChunkSize = DefaultChunkSize
	}
}

func (n Node) validate() error {
	required := []struct{ name, value string }{
		{"ourName", n.OurName},
		{"peerName", n.PeerName},
		{"peerServer", n.PeerServer},
		{"rootFolder", n.RootFolder},
	}
	for _, field := range required {
		if field.value == "" {
			return errors.NewFriendlyError("The config field %q is required.", field.name)
		}
	}

	// The names are the options for choosing between versions of a file.
	if n.OurName == n.PeerName {
		return errors.NewFriendlyError("ourName and peerName must be different, "+
			"but both are %q.", n.OurName)
	}

	if n.RetryAttempts < 0 {
		return errors.NewFriendlyError("retryAttempts must be positive, but got %d.", n.RetryAttempts)
	}
	if n.ChunkSize < 0 {
		return errors.NewFriendlyError("chunkSize must be positive, but got %d.", n.ChunkSize)
	}

	if _, err := time.ParseDuration(n.RetryDelay); err != nil {
		return errors.NewFriendlyError("retryDelay %q is not a valid duration, "+
			"such as \"500ms\" or \"2s\".", n.RetryDelay)
	}
	return nil
}
