package reconcile

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/issue"
	"github.com/sidkik/mirrorball/pkg/progress"
	"github.com/sidkik/mirrorball/pkg/sync"
	"github.com/sidkik/mirrorball/pkg/sync/client"
)

// Issue titles and messages. They're stable across runs so that the
// scheduler can recognize issues it already knows about.
const (
	RefreshTitle   = "Refresh"
	RefreshMessage = "Comparing files to discover issues"

	DuplicatesTitle   = "Duplicates"
	DuplicatesMessage = "Which location is preferred? Others will be deleted"

	ExtraTitle   = "Extra file"
	CopyOption   = "Copy"
	DeleteOption = "Delete"

	RenameTitle   = "Different names/locations"
	RenameMessage = "Select the name to use"

	ModifiedTitle = "Different contents at the same path"

	DelogoTitle = "De-logo"
)

// Mirror performs file operations on either node.
type Mirror interface {
	Copy(ctx context.Context, remote bool, path string, sink progress.Sink) error
	Delete(ctx context.Context, remote bool, path string) error
	Rename(ctx context.Context, remote bool, oldPath, newPath string) error
}

// Delogoer removes logos from videos.
type Delogoer interface {
	Delogo(ctx context.Context, input, option string, sink progress.Sink) error
}

// Names identifies the two nodes to the user.
type Names struct {
	Ours string
	Peer string
}

// Reconciler compares the local folder with the peer's, and turns every
// difference into an issue for the user to resolve.
type Reconciler struct {
	local     sync.Folder
	peer      client.Client
	mirror    Mirror
	scheduler *issue.Scheduler
	delogoer  Delogoer
	names     Names
}

// New creates a Reconciler that adds its issues to `scheduler`.
func New(local sync.Folder, peer client.Client, mirror Mirror, scheduler *issue.Scheduler,
	delogoer Delogoer, names Names) *Reconciler {
	return &Reconciler{
		local:     local,
		peer:      peer,
		mirror:    mirror,
		scheduler: scheduler,
		delogoer:  delogoer,
		names:     names,
	}
}

// QueueRefresh schedules a comparison of the two folders.
func (r *Reconciler) QueueRefresh() {
	r.scheduler.Add(issue.Issue{
		Info: issue.Info{
			Title:   RefreshTitle,
			Message: RefreshMessage,
			Options: []string{},
			State:   issue.Queued,
		},
		Resolve: func(ctx context.Context, _ string, sink progress.Sink) error {
			return r.Refresh(ctx, sink)
		},
	})
}

// QueueDelogo schedules removing the logo from the local video at `path`.
func (r *Reconciler) QueueDelogo(path, option string) {
	r.scheduler.Add(issue.Issue{
		Info: issue.Info{
			Title:   DelogoTitle,
			Message: path,
			Options: []string{},
			State:   issue.Queued,
		},
		Resolve: func(ctx context.Context, _ string, sink progress.Sink) error {
			input, err := r.local.RealPath(path)
			if err != nil {
				return err
			}
			return r.delogoer.Delogo(ctx, input, option, sink)
		},
	})
}

// Refresh scans the local folder while fetching the peer's snapshot, and
// replaces every pending issue with the differences between them.
func (r *Reconciler) Refresh(ctx context.Context, sink progress.Sink) error {
	var local, remote []sync.FileState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		remote, err = r.peer.States(gctx)
		return errors.WithContext(err, "get peer states")
	})
	g.Go(func() (err error) {
		local, err = r.local.Scan(sink)
		return errors.WithContext(err, "scan")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	localDuplicates := sync.FindDuplicates(local)
	remoteDuplicates := sync.FindDuplicates(remote)

	r.scheduler.ClearNonBusy()

	r.addDuplicates(localDuplicates, false)
	r.addDuplicates(remoteDuplicates, true)
	if len(localDuplicates) != 0 || len(remoteDuplicates) != 0 {
		log.WithFields(log.Fields{
			"local": len(localDuplicates),
			"peer":  len(remoteDuplicates),
		}).Info("Found duplicates. Resolve them before comparing.")
		return nil
	}

	diffs := sync.Compare(local, remote)
	for _, diff := range diffs {
		switch diff.Type {
		case sync.LeftOnly:
			r.addExtra(false, diff.Left)
		case sync.RightOnly:
			r.addExtra(true, diff.Right)
		case sync.Renamed:
			r.addRename(diff.Left, diff.Right)
		case sync.Modified:
			r.addModified(diff.Left)
		}
	}

	log.WithFields(log.Fields{
		"local": len(local),
		"peer":  len(remote),
		"diffs": len(diffs),
	}).Info("Compared folders")
	return nil
}

// addDuplicates adds an issue for each group of identical files on one node.
// The user picks the path to keep, and the others are deleted.
func (r *Reconciler) addDuplicates(groups [][]sync.FileState, remote bool) {
	for _, group := range groups {
		var paths []string
		for _, file := range group {
			paths = append(paths, file.Path)
		}

		r.scheduler.Add(issue.Issue{
			Info: issue.Info{
				Title:   DuplicatesTitle,
				Message: DuplicatesMessage,
				Options: paths,
			},
			Resolve: func(ctx context.Context, choice string, _ progress.Sink) error {
				if !contains(paths, choice) {
					return invalidChoice(choice)
				}

				for _, path := range paths {
					if path == choice {
						continue
					}

					if err := r.mirror.Delete(ctx, remote, path); err != nil {
						return err
					}
				}
				return nil
			},
		})
	}
}

// addExtra adds an issue for a file that's only on one node. `remote` is
// whether that node is the peer.
func (r *Reconciler) addExtra(remote bool, path string) {
	location := r.names.Ours
	if remote {
		location = r.names.Peer
	}

	r.scheduler.Add(issue.Issue{
		Info: issue.Info{
			Title:      ExtraTitle,
			Message:    fmt.Sprintf("Only on %s - %s", location, path),
			Options:    []string{CopyOption, DeleteOption},
			DelogoPath: path,
		},
		Resolve: func(ctx context.Context, choice string, sink progress.Sink) error {
			switch choice {
			case CopyOption:
				return r.mirror.Copy(ctx, remote, path, sink)
			case DeleteOption:
				return r.mirror.Delete(ctx, remote, path)
			default:
				return invalidChoice(choice)
			}
		},
	})
}

// addRename adds an issue for identical files at different paths. Choosing
// the local path renames the peer's file, and vice versa.
func (r *Reconciler) addRename(localPath, remotePath string) {
	r.scheduler.Add(issue.Issue{
		Info: issue.Info{
			Title:   RenameTitle,
			Message: RenameMessage,
			Options: []string{localPath, remotePath},
		},
		Resolve: func(ctx context.Context, choice string, _ progress.Sink) error {
			switch choice {
			case localPath:
				return r.mirror.Rename(ctx, true, remotePath, localPath)
			case remotePath:
				return r.mirror.Rename(ctx, false, localPath, remotePath)
			default:
				return invalidChoice(choice)
			}
		},
	})
}

// addModified adds an issue for a path whose contents differ between the
// nodes. The user picks the node whose version wins.
func (r *Reconciler) addModified(path string) {
	r.scheduler.Add(issue.Issue{
		Info: issue.Info{
			Title:   ModifiedTitle,
			Message: fmt.Sprintf("Which version of %s", path),
			Options: []string{r.names.Peer, r.names.Ours},
		},
		Resolve: func(ctx context.Context, choice string, sink progress.Sink) error {
			switch choice {
			case r.names.Peer:
				return r.mirror.Copy(ctx, true, path, sink)
			case r.names.Ours:
				return r.mirror.Copy(ctx, false, path, sink)
			default:
				return invalidChoice(choice)
			}
		},
	})
}

func invalidChoice(choice string) error {
	return errors.WithKind(errors.New("not a valid choice: %s", choice), errors.InvalidChoice)
}

func contains(options []string, choice string) bool {
	for _, option := range options {
		if option == choice {
			return true
		}
	}
	return false
}
