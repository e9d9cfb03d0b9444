package issue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/progress"
)

// DefaultPollInterval is how often the worker looks for a Queued issue.
const DefaultPollInterval = 500 * time.Millisecond

// Scheduler owns the list of issues, and resolves Queued issues one at a
// time in a background worker.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration

	lock   sync.Mutex
	issues []*tracked
	nextID int

	startOnce sync.Once
	trigger   chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
}

type tracked struct {
	info    Info
	resolve ResolveFunc
}

// NewScheduler creates a Scheduler that polls for work every `interval`.
// The worker isn't started until the first issue is added.
func NewScheduler(clock clockwork.Clock, interval time.Duration) *Scheduler {
	return &Scheduler{
		clock:    clock,
		interval: interval,
		nextID:   1,
		trigger:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Add tracks a new issue. Issues that aren't Queued start out as New. If an
// issue with the same title, message and options is already tracked, the
// new issue is dropped and Add returns false.
func (s *Scheduler) Add(issue Issue) (int, bool) {
	s.startOnce.Do(func() {
		go s.run()
	})

	s.lock.Lock()
	defer s.lock.Unlock()

	for _, existing := range s.issues {
		if similar(existing.info, issue.Info) {
			log.WithFields(log.Fields{
				"title":   issue.Info.Title,
				"message": issue.Info.Message,
			}).Debug("Ignoring duplicate issue")
			return 0, false
		}
	}

	info := issue.Info.copy()
	info.ID = s.nextID
	s.nextID++
	if info.State != Queued {
		info.State = New
	}

	s.issues = append(s.issues, &tracked{info: info, resolve: issue.Resolve})
	log.WithFields(log.Fields{
		"id":    info.ID,
		"title": info.Title,
		"state": info.State,
	}).Debug("Added issue")

	if info.State == Queued {
		s.triggerWorker()
	}
	return info.ID, true
}

// Resolve applies the user's choice to an issue. New issues are queued with
// the choice, and Failed issues are cleared. Anything else is a benign race
// between the caller's view of the issue and the worker, and is ignored.
func (s *Scheduler) Resolve(id int, choice string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	i, ok := s.find(id)
	if !ok {
		logRace(id, "Tried to resolve unknown issue")
		return
	}

	issue := s.issues[i]
	switch issue.info.State {
	case New:
		issue.info.State = Queued
		issue.info.Choice = choice
		log.WithFields(log.Fields{
			"id":     id,
			"choice": choice,
		}).Info("Queued issue")
		s.triggerWorker()
	case Failed:
		s.issues = append(s.issues[:i], s.issues[i+1:]...)
		log.WithField("id", id).Info("Cleared failed issue")
	default:
		logRace(id, fmt.Sprintf("Tried to resolve %s issue", issue.info.State))
	}
}

// List returns a copy of every tracked issue.
func (s *Scheduler) List() []Info {
	s.lock.Lock()
	defer s.lock.Unlock()

	infos := []Info{}
	for _, issue := range s.issues {
		infos = append(infos, issue.info.copy())
	}
	return infos
}

// ClearNonBusy stops tracking every issue except the one being resolved.
func (s *Scheduler) ClearNonBusy() {
	s.lock.Lock()
	defer s.lock.Unlock()

	var kept []*tracked
	for _, issue := range s.issues {
		if issue.info.State == Busy {
			kept = append(kept, issue)
		}
	}
	s.issues = kept
}

// Close stops the worker. An issue that's currently Busy is left to finish
// on its own.
func (s *Scheduler) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.trigger:
		case <-s.clock.After(s.interval):
		}
		s.runNext()
	}
}

// runNext resolves the first Queued issue, if there is one and nothing is
// already Busy.
func (s *Scheduler) runNext() {
	s.lock.Lock()
	var next *tracked
	for _, issue := range s.issues {
		if issue.info.State == Busy {
			s.lock.Unlock()
			return
		}

		if next == nil && issue.info.State == Queued {
			next = issue
		}
	}

	if next == nil {
		s.lock.Unlock()
		return
	}

	next.info.State = Busy
	id, title, choice := next.info.ID, next.info.Title, next.info.Choice
	s.lock.Unlock()

	logger := log.WithFields(log.Fields{
		"id":     id,
		"title":  title,
		"choice": choice,
	})
	logger.Info("Resolving issue")

	sink := progress.Func(func(fraction float64, text string) {
		s.lock.Lock()
		defer s.lock.Unlock()
		next.info.Progress = fraction
		next.info.ProgressText = text
	})
	err := runResolve(next.resolve, choice, sink)

	s.lock.Lock()
	defer s.lock.Unlock()
	if err != nil {
		logger.WithError(err).WithField("kind", errors.KindOf(err)).Error("Failed to resolve issue")
		next.info.State = Failed
		next.info.Message = err.Error()
		return
	}

	logger.Info("Resolved issue")
	for i, issue := range s.issues {
		if issue == next {
			s.issues = append(s.issues[:i], s.issues[i+1:]...)
			break
		}
	}
}

// runResolve invokes the resolution, converting a panic into an error so that
// the worker keeps running.
func runResolve(resolve ResolveFunc, choice string, sink progress.Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic: %v", r)
		}
	}()

	if resolve == nil {
		return nil
	}
	return resolve(context.Background(), choice, sink)
}

func (s *Scheduler) find(id int) (int, bool) {
	for i, issue := range s.issues {
		if issue.info.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Scheduler) triggerWorker() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func logRace(id int, msg string) {
	log.WithFields(log.Fields{
		"id":   id,
		"kind": errors.StateRace,
	}).Warn(msg)
}
