package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"debrief/internal/config"
	"debrief/internal/logging"
	"debrief/internal/pipeline"
	"debrief/internal/services"
)

// maxChunkBytes bounds one uploaded audio chunk.
const maxChunkBytes = 64 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	pipe   *pipeline.Pipeline

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		pipe:   d.pipe,
	}

	router := chi.NewRouter()
	router.Get("/healthz", srv.handleHealth)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(cfg.Paths.APIToken))
		r.Post("/meetings/chunks", srv.handleChunkUpload)
		r.Get("/meetings/ack", srv.handleAck)
		r.Get("/meetings/status", srv.handleStatus)
		r.Get("/clients/{clientID}/memory", srv.handleClientMemory)
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.InfoContext(ctx, "api server listening",
		logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChunkUpload accepts one multipart chunk: client_id, meeting_id,
// chunk_index, total_chunks fields plus the audio under "file".
func (s *apiServer) handleChunkUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBytes)
	if err := r.ParseMultipartForm(maxChunkBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload: "+err.Error())
		return
	}
	index, err := strconv.Atoi(r.FormValue("chunk_index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "chunk_index must be an integer")
		return
	}
	total, err := strconv.Atoi(r.FormValue("total_chunks"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "total_chunks must be an integer")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file part: "+err.Error())
		return
	}

	result, err := s.pipe.Receive(r.Context(), pipeline.ChunkUpload{
		ClientID:  r.FormValue("client_id"),
		MeetingID: r.FormValue("meeting_id"),
		Index:     index,
		Total:     total,
		Filename:  header.Filename,
		Data:      data,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":           true,
		"uploaded":           result.Uploaded,
		"dispatch_triggered": result.TriggeredDispatch,
	})
}

func (s *apiServer) handleAck(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	meetingID := r.URL.Query().Get("meeting_id")
	if clientID == "" || meetingID == "" {
		writeError(w, http.StatusBadRequest, "client_id and meeting_id required")
		return
	}
	uploaded, err := s.pipe.UploadedCount(r.Context(), clientID, meetingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":  clientID,
		"meeting_id": meetingID,
		"uploaded":   uploaded,
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	meetingID := r.URL.Query().Get("meeting_id")
	if clientID == "" || meetingID == "" {
		writeError(w, http.StatusBadRequest, "client_id and meeting_id required")
		return
	}
	status, err := s.pipe.Status(r.Context(), clientID, meetingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleClientMemory(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	mem, err := s.pipe.ClientMemory(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the sentinel error classes onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
