package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"mediaflow/internal/api"
	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/logs"
	"mediaflow/internal/services"
	"mediaflow/internal/store"
)

const defaultLogTailLines = 200

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.WithComponent(logger, "api"),
		daemon: d,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)

	router.HandleFunc("/api/watchfolders", srv.handleWatchfolderList).Methods(http.MethodGet)
	router.HandleFunc("/api/watchfolders", srv.handleWatchfolderCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/watchfolders/{id}", srv.handleWatchfolderGet).Methods(http.MethodGet)
	router.HandleFunc("/api/watchfolders/{id}", srv.handleWatchfolderUpdate).Methods(http.MethodPut)
	router.HandleFunc("/api/watchfolders/{id}/active", srv.handleWatchfolderActive).Methods(http.MethodPatch)
	router.HandleFunc("/api/watchfolders/{id}", srv.handleWatchfolderDelete).Methods(http.MethodDelete)

	router.HandleFunc("/api/presets", srv.handlePresetList).Methods(http.MethodGet)
	router.HandleFunc("/api/presets", srv.handlePresetCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/presets/{id}", srv.handlePresetGet).Methods(http.MethodGet)
	router.HandleFunc("/api/presets/{id}", srv.handlePresetUpdate).Methods(http.MethodPut)
	router.HandleFunc("/api/presets/{id}", srv.handlePresetDelete).Methods(http.MethodDelete)

	router.HandleFunc("/api/workers", srv.handleWorkerList).Methods(http.MethodGet)
	router.HandleFunc("/api/workers", srv.handleWorkerCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/workers/{id}", srv.handleWorkerGet).Methods(http.MethodGet)
	router.HandleFunc("/api/workers/{id}", srv.handleWorkerUpdate).Methods(http.MethodPut)
	router.HandleFunc("/api/workers/{id}/active", srv.handleWorkerActive).Methods(http.MethodPatch)
	router.HandleFunc("/api/workers/{id}", srv.handleWorkerDelete).Methods(http.MethodDelete)

	router.HandleFunc("/api/jobs", srv.handleJobList).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}", srv.handleJobGet).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}/retry", srv.handleJobRetry).Methods(http.MethodPost)

	router.HandleFunc("/api/logs", srv.handleLogTail).Methods(http.MethodGet)
	router.HandleFunc("/api/logs/download", srv.handleLogDownload).Methods(http.MethodGet)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
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

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
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
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleWatchfolderList(w http.ResponseWriter, r *http.Request) {
	folders, err := s.daemon.store.ListWatchfolders(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WatchfolderListResponse{Watchfolders: api.FromWatchfolders(folders)})
}

func (s *apiServer) handleWatchfolderCreate(w http.ResponseWriter, r *http.Request) {
	var req api.WatchfolderRequest
	if !s.decode(w, r, &req) {
		return
	}
	folder, err := s.daemon.store.CreateWatchfolder(r.Context(), req.ToWatchfolder())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.WatchfolderResponse{Watchfolder: api.FromWatchfolder(folder)})
}

func (s *apiServer) handleWatchfolderGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	folder, err := s.daemon.store.WatchfolderByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WatchfolderResponse{Watchfolder: api.FromWatchfolder(folder)})
}

func (s *apiServer) handleWatchfolderUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.WatchfolderRequest
	if !s.decode(w, r, &req) {
		return
	}
	current, err := s.daemon.store.WatchfolderByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	folder := req.ToWatchfolder()
	folder.ID = id
	if req.Active == nil {
		folder.Active = current.Active
	}
	updated, err := s.daemon.store.UpdateWatchfolder(r.Context(), folder)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WatchfolderResponse{Watchfolder: api.FromWatchfolder(updated)})
}

func (s *apiServer) handleWatchfolderActive(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.ActiveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.store.SetWatchfolderActive(r.Context(), id, req.Active); err != nil {
		s.writeStoreError(w, err)
		return
	}
	folder, err := s.daemon.store.WatchfolderByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WatchfolderResponse{Watchfolder: api.FromWatchfolder(folder)})
}

func (s *apiServer) handleWatchfolderDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.store.DeleteWatchfolder(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handlePresetList(w http.ResponseWriter, r *http.Request) {
	presets, err := s.daemon.store.ListPresets(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PresetListResponse{Presets: api.FromPresets(presets)})
}

func (s *apiServer) handlePresetCreate(w http.ResponseWriter, r *http.Request) {
	var req api.PresetRequest
	if !s.decode(w, r, &req) {
		return
	}
	preset, err := s.daemon.store.CreatePreset(r.Context(), req.ToPreset())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.PresetResponse{Preset: api.FromPreset(preset)})
}

func (s *apiServer) handlePresetGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	preset, err := s.daemon.store.PresetByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PresetResponse{Preset: api.FromPreset(preset)})
}

func (s *apiServer) handlePresetUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.PresetRequest
	if !s.decode(w, r, &req) {
		return
	}
	preset := req.ToPreset()
	preset.ID = id
	updated, err := s.daemon.store.UpdatePreset(r.Context(), preset)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PresetResponse{Preset: api.FromPreset(updated)})
}

func (s *apiServer) handlePresetDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.store.DeletePreset(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleWorkerList(w http.ResponseWriter, r *http.Request) {
	workers, err := s.daemon.store.ListWorkersWithLoad(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WorkerListResponse{Workers: api.FromWorkerLoads(workers)})
}

func (s *apiServer) handleWorkerCreate(w http.ResponseWriter, r *http.Request) {
	var req api.WorkerRequest
	if !s.decode(w, r, &req) {
		return
	}
	created, err := s.daemon.store.CreateWorker(r.Context(), req.ToWorker())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	worker, err := s.daemon.store.WorkerWithLoad(r.Context(), created.ID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.WorkerResponse{Worker: api.FromWorkerLoad(worker)})
}

func (s *apiServer) handleWorkerGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	worker, err := s.daemon.store.WorkerWithLoad(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WorkerResponse{Worker: api.FromWorkerLoad(worker)})
}

func (s *apiServer) handleWorkerUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.WorkerRequest
	if !s.decode(w, r, &req) {
		return
	}
	current, err := s.daemon.store.WorkerByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	worker := req.ToWorker()
	worker.ID = id
	if req.Active == nil {
		worker.Active = current.Active
	}
	if _, err := s.daemon.store.UpdateWorker(r.Context(), worker); err != nil {
		s.writeStoreError(w, err)
		return
	}
	updated, err := s.daemon.store.WorkerWithLoad(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WorkerResponse{Worker: api.FromWorkerLoad(updated)})
}

func (s *apiServer) handleWorkerActive(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req api.ActiveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.store.SetWorkerActive(r.Context(), id, req.Active); err != nil {
		s.writeStoreError(w, err)
		return
	}
	worker, err := s.daemon.store.WorkerWithLoad(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.WorkerResponse{Worker: api.FromWorkerLoad(worker)})
}

func (s *apiServer) handleWorkerDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.store.DeleteWorker(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleJobList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.JobFilter{}
	if value := strings.TrimSpace(query.Get("watchfolder")); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid watchfolder id")
			return
		}
		filter.WatchfolderID = id
	}
	if value := strings.TrimSpace(query.Get("status")); value != "" {
		status := store.JobStatus(value)
		if !status.Valid() {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job status %q", value))
			return
		}
		filter.Status = status
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	jobs, err := s.daemon.store.ListJobs(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleJobGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	job, err := s.daemon.store.JobByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleJobRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.store.RetryFailed(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	job, err := s.daemon.store.JobByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleLogTail(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogTailLines
	if value := strings.TrimSpace(r.URL.Query().Get("lines")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid lines value")
			return
		}
		limit = parsed
	}
	lines, err := logs.TailFile(s.daemon.logPath, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogTailResponse{Lines: lines})
}

func (s *apiServer) handleLogDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+logging.LogFileName)
	http.ServeFile(w, r, s.daemon.logPath)
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeStoreError maps store and service errors to HTTP statuses.
func (s *apiServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConfiguration):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrPresetInUse),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrDuplicateJob):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
