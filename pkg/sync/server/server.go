package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/mirrorball/pkg/errors"
	"github.com/sidkik/mirrorball/pkg/issue"
	"github.com/sidkik/mirrorball/pkg/progress"
	"github.com/sidkik/mirrorball/pkg/sync"
	"github.com/sidkik/mirrorball/pkg/sync/client"
)

// Reconciler queues the issues that the server exposes.
type Reconciler interface {
	QueueRefresh()
	QueueDelogo(path, option string)
}

// Thumbnailer renders a still image of a video.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, input string) ([]byte, error)
}

// Config is everything the server exposes over HTTP.
type Config struct {
	Folder      sync.Folder
	Scheduler   *issue.Scheduler
	Reconciler  Reconciler
	Thumbnailer Thumbnailer

	// StaticDir holds the issue resolution UI. It's optional.
	StaticDir string

	Version string
}

type server struct {
	Config
}

// New returns the HTTP handler for a node. It serves both the endpoints the
// peer uses to transfer files, and the endpoints the UI uses to manage
// issues.
func New(config Config) http.Handler {
	s := &server{config}

	router := mux.NewRouter()
	api := router.PathPrefix(client.APIPrefix).Subrouter()
	api.HandleFunc("/states", s.getStates).Methods(http.MethodGet)
	api.HandleFunc("/length/{path:.*}", s.getLength).Methods(http.MethodGet)
	api.HandleFunc("/pull/{start:[0-9]+}/{count:[0-9]+}/{path:.*}", s.getPull).Methods(http.MethodGet)
	api.HandleFunc("/truncate/{path:.*}", s.putTruncate).Methods(http.MethodPut)
	api.HandleFunc("/append/{path:.*}", s.putAppend).Methods(http.MethodPut)
	api.HandleFunc("/delete/{path:.*}", s.delete).Methods(http.MethodDelete)
	api.HandleFunc("/rename", s.postRename).Methods(http.MethodPost)
	api.HandleFunc("/issues", s.getIssues).Methods(http.MethodGet)
	api.HandleFunc("/resolve", s.postResolve).Methods(http.MethodPost)
	api.HandleFunc("/diff", s.postDiff).Methods(http.MethodPost)
	api.HandleFunc("/delogo", s.postDelogo).Methods(http.MethodPost)
	api.HandleFunc("/thumbnail/{path:.*}", s.getThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/version", s.getVersion).Methods(http.MethodGet)

	if s.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	}
	return router
}

// Run serves `handler` on `addr` until `ctx` is cancelled.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WithContext(err, "listen")
	}

	httpServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to shut down cleanly")
		}
	}()

	log.WithField("addr", lis.Addr().String()).Info("MirrorBall server is ready")
	if err := httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return errors.WithContext(err, "serve")
	}
	return nil
}

func (s *server) getStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.Folder.Scan(progress.Discard)
	if err != nil {
		writeError(w, r, errors.WithContext(err, "scan"))
		return
	}
	writeJSON(w, r, states)
}

func (s *server) getLength(w http.ResponseWriter, r *http.Request) {
	length, err := s.Folder.Length(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, length)
}

func (s *server) getPull(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	start, err := strconv.ParseInt(vars["start"], 10, 64)
	if err != nil {
		writeBadRequest(w, r, errors.WithContext(err, "parse start"))
		return
	}

	count, err := strconv.ParseInt(vars["count"], 10, 64)
	if err != nil {
		writeBadRequest(w, r, errors.WithContext(err, "parse count"))
		return
	}

	contents, err := s.Folder.ReadRange(vars["path"], start, count)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(contents); err != nil {
		log.WithError(err).Debug("Failed to write pulled range")
	}
}

func (s *server) putTruncate(w http.ResponseWriter, r *http.Request) {
	if err := s.Folder.Truncate(mux.Vars(r)["path"], r.Body); err != nil {
		writeError(w, r, err)
	}
}

func (s *server) putAppend(w http.ResponseWriter, r *http.Request) {
	if err := s.Folder.Append(mux.Vars(r)["path"], r.Body); err != nil {
		writeError(w, r, err)
	}
}

func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.Folder.Delete(mux.Vars(r)["path"]); err != nil {
		writeError(w, r, err)
	}
}

func (s *server) postRename(w http.ResponseWriter, r *http.Request) {
	var req client.RenameRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := s.Folder.Rename(req.OldName, req.NewName); err != nil {
		writeError(w, r, err)
	}
}

func (s *server) getIssues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.Scheduler.List())
}

func (s *server) postResolve(w http.ResponseWriter, r *http.Request) {
	var req issue.Resolution
	if !readJSON(w, r, &req) {
		return
	}
	s.Scheduler.Resolve(req.ID, req.Choice)
}

func (s *server) postDiff(w http.ResponseWriter, r *http.Request) {
	s.Reconciler.QueueRefresh()
}

func (s *server) postDelogo(w http.ResponseWriter, r *http.Request) {
	var req client.DelogoRequest
	if !readJSON(w, r, &req) {
		return
	}

	if req.Path == "" || req.Option == "" {
		writeBadRequest(w, r, errors.New("path and option are required"))
		return
	}
	s.Reconciler.QueueDelogo(req.Path, req.Option)
}

func (s *server) getThumbnail(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	log.WithField("path", path).Info("Generating thumbnail")

	input, err := s.Folder.RealPath(path)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	png, err := s.Thumbnailer.Thumbnail(r.Context(), input)
	if err != nil {
		writeError(w, r, errors.WithContext(err, "generate thumbnail"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.WithError(err).Debug("Failed to write thumbnail")
	}
}

func (s *server) getVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.Version)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, r, errors.WithContext(err, "parse request"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, src interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(src); err != nil {
		log.WithError(err).WithField("url", r.URL.String()).Warn("Failed to write response")
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).WithField("url", r.URL.String()).Debug("Bad request")
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var notFound errors.FileNotFound
	if errors.As(err, &notFound) {
		status = http.StatusNotFound
	}

	log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"url":    r.URL.String(),
		"status": status,
	}).Warn("Request failed")
	http.Error(w, err.Error(), status)
}
