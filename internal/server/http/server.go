// Package http exposes the service over HTTP/JSON: script repository
// operations under /script, the HAR upload boundary, and the
// administrative announcement endpoints under /operation.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/perfcanvas/scriptstore/internal/logging"
	"github.com/perfcanvas/scriptstore/internal/server/models"
	"github.com/perfcanvas/scriptstore/internal/server/script"
	"github.com/perfcanvas/scriptstore/internal/server/vcs"
)

// fileEntryService is the slice of the file entry service the handlers
// consume.
type fileEntryService interface {
	GetAll(ctx context.Context, user models.User) ([]models.FileEntry, error)
	GetAllAt(ctx context.Context, user models.User, path string, rev vcs.Revision) ([]models.FileEntry, error)
	GetOne(ctx context.Context, user models.User, path string, rev vcs.Revision) (*models.FileEntry, error)
	Save(ctx context.Context, user models.User, entry *models.FileEntry) error
	AddFolder(ctx context.Context, user models.User, path, folderName, comment string) error
	Delete(ctx context.Context, user models.User, basePath string, fileNames []string) error
	DeleteOne(ctx context.Context, user models.User, path string) error
	HandlerByKey(key string) (script.Handler, error)
	PrepareNewEntry(ctx context.Context, user models.User, path, fileName, name, url string, handler script.Handler, libAndResource bool, options string) (*models.FileEntry, error)
	PrepareNewEntryForQuickTest(ctx context.Context, user models.User, url string, handler script.Handler) (string, error)
	LoadHAR(raw []byte, removeStaticResource bool) (string, error)
	ConvertToScript(raw []byte, removeStaticResource bool) (map[string]string, error)
}

type announcementService interface {
	Get(ctx context.Context) (string, error)
	Save(ctx context.Context, content string) error
}

// Server is the HTTP front of the service.
type Server struct {
	address       string
	logger        logging.Logger
	entries       fileEntryService
	announcements announcementService
	jwtSecret     []byte
}

func NewServer(address string, logger logging.Logger, entries fileEntryService, announcements announcementService, secretKey string) *Server {
	return &Server{
		address:       address,
		logger:        logger.With("module", "http_server"),
		entries:       entries,
		announcements: announcements,
		jwtSecret:     []byte(secretKey),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)

	sc := r.PathPrefix("/script").Subrouter()
	sc.Use(s.authenticate)
	sc.HandleFunc("/list", s.handleListAll).Methods(http.MethodGet)
	sc.HandleFunc("/list/{path:.*}", s.handleListAt).Methods(http.MethodGet)
	sc.HandleFunc("/detail/{path:.*}", s.handleDetail).Methods(http.MethodGet)
	sc.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	sc.HandleFunc("/new", s.handleNew).Methods(http.MethodPost)
	sc.HandleFunc("/new/folder", s.handleNewFolder).Methods(http.MethodPost)
	sc.HandleFunc("/delete", s.handleDelete).Methods(http.MethodPost)
	sc.HandleFunc("/quicktest", s.handleQuickTest).Methods(http.MethodPost)
	sc.HandleFunc("/har", s.handleHARUpload).Methods(http.MethodPost)
	sc.HandleFunc("/har/convert", s.handleHARConvert).Methods(http.MethodPost)

	op := r.PathPrefix("/operation").Subrouter()
	op.Use(s.authenticate, s.adminOnly)
	op.HandleFunc("/announcement", s.handleGetAnnouncement).Methods(http.MethodGet)
	op.HandleFunc("/announcement", s.handleSaveAnnouncement).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting HTTP server", "addr", s.address)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
