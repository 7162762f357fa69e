package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resizeimage-go/internal/codec"
	"resizeimage-go/internal/config"
	"resizeimage-go/internal/engine"
	"resizeimage-go/internal/logger"
	"resizeimage-go/internal/request"
	"resizeimage-go/internal/statistics"
	"resizeimage-go/internal/target"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// BytesResizer converges an in-memory image on a target size.
type BytesResizer interface {
	ResizeBytes(ctx context.Context, data []byte, format codec.Format, spec target.Spec, tolerance float64) (*engine.Result, *statistics.Run, error)
}

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	resizer    BytesResizer
	totals     *statistics.Totals
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Response headers describing an accepted resize.
const (
	HeaderIterations   = "X-Resize-Iterations"
	HeaderOriginalSize = "X-Resize-Original-Size"
	HeaderTargetSize   = "X-Resize-Target-Size"
	HeaderFinalSize    = "X-Resize-Final-Size"
	HeaderWidth        = "X-Resize-Width"
	HeaderHeight       = "X-Resize-Height"
)

func NewServer(cfg *config.Config, log *logrus.Logger, r BytesResizer) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		router:  mux.NewRouter(),
		resizer: r,
		totals:  statistics.NewTotals(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/resize", s.handleResize).Methods("POST")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")
}

// Totals returns the counters served by /api/statistics.
func (s *Server) Totals() *statistics.Totals {
	return s.totals
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	logger.WithOperation(s.log, "serve").Infof("Starting resize API on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "ok",
	})
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.totals.Snapshot(),
	})
}

// handleResize accepts a multipart upload in the "file" field together with
// targetsize or percent, and optionally tolerance and format.
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	s.totals.IncrementRequests()

	limit := s.cfg.Server.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		s.fail(w, "", fmt.Errorf("%w: invalid upload: %v", request.ErrArgument, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, "", fmt.Errorf("%w: file is required", request.ErrArgument))
		return
	}
	defer file.Close()

	log := logger.WithFileOperation(s.log, header.Filename, "api_resize")

	spec, err := request.ParseTarget(r.FormValue("targetsize"), r.FormValue("percent"))
	if err != nil {
		s.fail(w, header.Filename, err)
		return
	}

	tolerance := s.cfg.Tolerance
	if v := r.FormValue("tolerance"); v != "" {
		if tolerance, err = request.ParseTolerance(v); err != nil {
			s.fail(w, header.Filename, err)
			return
		}
	}

	format, err := outputFormat(r.FormValue("format"), header.Filename)
	if err != nil {
		s.fail(w, header.Filename, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, header.Filename, fmt.Errorf("%w: read upload: %v", request.ErrArgument, err))
		return
	}

	out, run, err := s.resizer.ResizeBytes(r.Context(), data, format, spec, tolerance)
	if err != nil {
		log.WithError(err).Warn("Resize request failed")
		s.fail(w, header.Filename, err)
		return
	}
	run.InputPath = header.Filename
	s.totals.RecordSuccess(run)

	log.WithFields(logrus.Fields{
		"size":       out.Size,
		"iterations": out.Iterations,
	}).Info("Resize request served")

	h := w.Header()
	h.Set("Content-Type", codec.ContentType(format))
	h.Set("Content-Length", strconv.Itoa(len(out.Data)))
	h.Set(HeaderIterations, strconv.Itoa(out.Iterations))
	h.Set(HeaderOriginalSize, strconv.Itoa(out.OriginalSize))
	h.Set(HeaderTargetSize, strconv.FormatFloat(out.TargetBytes, 'f', 0, 64))
	h.Set(HeaderFinalSize, strconv.Itoa(out.Size))
	h.Set(HeaderWidth, strconv.Itoa(out.Width))
	h.Set(HeaderHeight, strconv.Itoa(out.Height))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		log.WithError(err).Debug("Client went away")
	}
}

// outputFormat resolves the requested format name, falling back to the upload's
// own extension.
func outputFormat(name, filename string) (codec.Format, error) {
	if name = strings.TrimSpace(name); name != "" {
		return codec.FormatFromPath("out." + strings.TrimPrefix(name, "."))
	}
	return codec.FormatFromPath(filename)
}

func (s *Server) fail(w http.ResponseWriter, filename string, err error) {
	s.totals.RecordFailure(filename, "resize", err, errors.Is(err, engine.ErrNonConvergence))
	s.writeError(w, err.Error(), statusFor(err))
}

// statusFor maps resize errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, request.ErrArgument), errors.Is(err, target.ErrInvalidTargetSpec):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNonConvergence):
		return http.StatusUnprocessableEntity
	case errors.Is(err, codec.ErrCodec):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
