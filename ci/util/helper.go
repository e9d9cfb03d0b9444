package util

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/mirrorball/pkg/config"
	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/issue"
	"github.com/sidkik/mirrorball/pkg/sync/client"
)

// Node is a MirrorBall node started by the TestHelper.
type Node struct {
	Name   string
	Root   string
	Client client.Client
}

// TestHelper runs a pair of nodes that mirror each other.
type TestHelper struct {
	Left, Right Node
	configPath  string
	dir         string
}

// NewTestHelper writes a config for two nodes that listen on `leftPort` and
// `rightPort`, with empty folders.
func NewTestHelper(t *testing.T, leftPort, rightPort int) *TestHelper {
	dir, err := ioutil.TempDir("", "mirrorball-ci")
	require.NoError(t, err)

	helper := &TestHelper{
		Left:       newNode(t, dir, "left", leftPort),
		Right:      newNode(t, dir, "right", rightPort),
		configPath: filepath.Join(dir, "mirrorball.yaml"),
		dir:        dir,
	}

	file := config.File{
		Version: config.SupportedVersion,
		Hosts: map[string]config.Node{
			"left":  nodeConfig(helper.Left, helper.Right, leftPort, rightPort),
			"right": nodeConfig(helper.Right, helper.Left, rightPort, leftPort),
		},
	}
	configBytes, err := yaml.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(helper.configPath, configBytes, 0644))
	return helper
}

func newNode(t *testing.T, dir, name string, port int) Node {
	root := filepath.Join(dir, name)
	require.NoError(t, os.Mkdir(root, 0755))
	return Node{
		Name: name,
		Root: root,
		Client: client.New(fmt.Sprintf("http://127.0.0.1:%d", port), client.Options{
			Attempts: 20,
			Delay:    250 * time.Millisecond,
			Timeout:  10 * time.Second,
		}),
	}
}

func nodeConfig(ours, peer Node, port, peerPort int) config.Node {
	return config.Node{
		OurName:       ours.Name,
		PeerName:      peer.Name,
		PeerServer:    fmt.Sprintf("http://127.0.0.1:%d", peerPort),
		RootFolder:    ours.Root,
		ListenAddr:    fmt.Sprintf("127.0.0.1:%d", port),
		RetryAttempts: 5,
		RetryDelay:    "100ms",
	}
}

// Start runs `mirrorball serve` for both nodes until `ctx` is cancelled.
func (helper *TestHelper) Start(ctx context.Context) error {
	for _, node := range []Node{helper.Left, helper.Right} {
		cmd := exec.CommandContext(ctx, "mirrorball", "serve",
			"--config", helper.configPath, "--host", node.Name)
		cmd.Env = append(os.Environ(), "MIRRORBALL_LOG_VERBOSE=true")
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return errors.WithContext(err, fmt.Sprintf("start %s", node.Name))
		}

		go func(name string) {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				log.WithError(err).WithField("node", name).Error("Node exited")
			}
		}(node.Name)
	}

	// The clients retry until the servers are ready.
	for _, node := range []Node{helper.Left, helper.Right} {
		if _, err := node.Client.Version(ctx); err != nil {
			return errors.WithContext(err, fmt.Sprintf("wait for %s", node.Name))
		}
	}
	return nil
}

// WaitForIssues polls the node's issues until `ready` returns true.
func WaitForIssues(ctx context.Context, node Node, ready func([]issue.Info) bool) ([]issue.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	for {
		issues, err := node.Client.Issues(ctx)
		if err != nil {
			return nil, errors.WithContext(err, "get issues")
		}

		if ready(issues) {
			return issues, nil
		}

		select {
		case <-ctx.Done():
			return issues, errors.New("timed out waiting for issues: %+v", issues)
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Cleanup removes the nodes' folders.
func (helper *TestHelper) Cleanup() {
	if err := os.RemoveAll(helper.dir); err != nil {
		log.WithError(err).Warn("Failed to remove test folders")
	}
}
