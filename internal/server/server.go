package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/lawtrack/docs/swagger" // registers the OpenAPI document
	"github.com/raysh454/lawtrack/internal/app"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/tracker"
)

// Server is the HTTP + WebSocket dashboard API.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer wires the routes over an existing orchestrator.
func NewServer(cfg Config, orch *app.Orchestrator, logger logging.Logger) (*Server, error) {
	if orch == nil {
		return nil, errors.New("server: nil orchestrator provided")
	}
	if logger == nil {
		return nil, errors.New("server: nil logger provided")
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		router:       chi.NewRouter(),
		logger:       logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			// The dashboard is served from arbitrary local origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator.
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/add-law", s.optionsHandler("POST"))
	r.Options("/api/remove-law", s.optionsHandler("POST"))
	r.Options("/api/bulk-add", s.optionsHandler("POST"))
	r.Options("/api/check-updates", s.optionsHandler("POST"))
	r.Options("/api/jobs/{jobID}", s.optionsHandler("GET, DELETE"))

	// Tracked laws
	r.Get("/api/laws", s.handleListLaws)
	r.Get("/api/law-detail", s.handleLawDetail)
	r.Get("/api/law-updates", s.handleLawUpdates)
	r.Post("/api/add-law", s.handleAddLaw)
	r.Post("/api/remove-law", s.handleRemoveLaw)

	// Cycle results
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/statistics", s.handleStatistics)

	// Artifacts
	r.Get("/api/diffs", s.handleListDiffs)
	r.Get("/api/law-diff", s.handleLawDiff)
	r.Get("/api/law-diff/pdf", s.handleLawDiffPDF)

	// Relationships
	r.Get("/api/law-hierarchy", s.handleHierarchy)
	r.Get("/api/law-info", s.handleLawInfo)

	// Jobs over REST
	r.Post("/api/check-updates", s.handleStartCheckJob)
	r.Post("/api/bulk-add", s.handleStartBulkAddJob)
	r.Get("/api/jobs", s.handleListJobs)
	r.Get("/api/jobs/{jobID}", s.handleGetJob)
	r.Delete("/api/jobs/{jobID}", s.handleCancelJob)

	// WebSockets for job progress
	r.Get("/ws/check-updates", s.handleCheckWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close cancels running jobs.
func (s *Server) Close() {
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrAlreadyTracked), errors.Is(err, app.ErrCheckRunning):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrLawNotFound), errors.Is(err, tracker.ErrNotTracked), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(action, logging.Field{Key: "error", Value: err.Error()})
	} else {
		s.logger.Warn(action, logging.Field{Key: "error", Value: err.Error()})
	}
	writeError(w, status, err.Error())
}

// --- HTTP handlers ---

// Tracked laws

// handleListLaws godoc
// @Summary List tracked laws
// @Tags laws
// @Produce json
// @Success 200 {object} TrackedLawsResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/laws [get]
func (s *Server) handleListLaws(w http.ResponseWriter, r *http.Request) {
	laws, err := s.orchestrator.ListLaws(r.Context())
	if err != nil {
		s.fail(w, "listing laws", err)
		return
	}
	s.logger.Info("listed laws", logging.Field{Key: "count", Value: len(laws)})
	writeJSON(w, http.StatusOK, TrackedLawsResponse{Total: len(laws), Laws: laws})
}

// handleLawDetail godoc
// @Summary Get one tracked law with its change history
// @Tags laws
// @Produce json
// @Param name query string true "law name"
// @Success 200 {object} model.TrackedLaw
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/law-detail [get]
func (s *Server) handleLawDetail(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name query parameter")
		return
	}
	law, err := s.orchestrator.GetLaw(r.Context(), name)
	if err != nil {
		s.fail(w, "getting law", err)
		return
	}
	writeJSON(w, http.StatusOK, law)
}

// handleLawUpdates godoc
// @Summary List laws with recorded changes, most changed first
// @Tags laws
// @Produce json
// @Success 200 {array} LawUpdateSummary
// @Router /api/law-updates [get]
func (s *Server) handleLawUpdates(w http.ResponseWriter, r *http.Request) {
	laws, err := s.orchestrator.ListLaws(r.Context())
	if err != nil {
		s.fail(w, "listing law updates", err)
		return
	}
	out := make([]LawUpdateSummary, 0, len(laws))
	for _, l := range laws {
		if l.ChangeCount > 0 {
			out = append(out, LawUpdateSummary{Name: l.Name, ChangeCount: l.ChangeCount, LastChecked: l.LastChecked})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangeCount > out[j].ChangeCount })
	writeJSON(w, http.StatusOK, out)
}

func decodeLawName(r *http.Request) (string, error) {
	var body LawNameRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", errors.New("invalid JSON")
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return "", errors.New("법령명이 필요합니다")
	}
	return name, nil
}

// handleAddLaw godoc
// @Summary Start tracking a law
// @Tags laws
// @Accept json
// @Produce json
// @Param body body LawNameRequest true "law to add"
// @Success 201 {object} model.TrackedLaw
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/add-law [post]
func (s *Server) handleAddLaw(w http.ResponseWriter, r *http.Request) {
	name, err := decodeLawName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	law, err := s.orchestrator.AddLaw(r.Context(), name)
	if err != nil {
		s.fail(w, "adding law", err)
		return
	}
	s.logger.Info("added law", logging.Field{Key: "law", Value: law.Name})
	writeJSON(w, http.StatusCreated, law)
}

// handleRemoveLaw godoc
// @Summary Stop tracking a law
// @Tags laws
// @Accept json
// @Produce json
// @Param body body LawNameRequest true "law to remove"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/remove-law [post]
func (s *Server) handleRemoveLaw(w http.ResponseWriter, r *http.Request) {
	name, err := decodeLawName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.orchestrator.RemoveLaw(r.Context(), name); err != nil {
		s.fail(w, "removing law", err)
		return
	}
	s.logger.Info("removed law", logging.Field{Key: "law", Value: name})
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: name + " 제거 완료"})
}

// Cycle results

// handleHistory godoc
// @Summary Recent update records, newest first
// @Tags updates
// @Produce json
// @Param limit query int false "maximum records" default(50)
// @Success 200 {array} model.UpdateRecord
// @Router /api/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	recs, err := s.orchestrator.History(r.Context(), limit)
	if err != nil {
		s.fail(w, "loading history", err)
		return
	}
	if recs == nil {
		recs = []model.UpdateRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleStatistics godoc
// @Summary Dashboard statistics
// @Tags updates
// @Produce json
// @Success 200 {object} StatisticsResponse
// @Router /api/statistics [get]
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.orchestrator.Stats(ctx)
	if err != nil {
		s.fail(w, "loading stats", err)
		return
	}
	laws, err := s.orchestrator.ListLaws(ctx)
	if err != nil {
		s.fail(w, "listing laws", err)
		return
	}
	resp := StatisticsResponse{
		TotalLaws:     stats.Tracked,
		TotalChanges:  stats.TotalChanges,
		LastCheck:     stats.LastCheck,
		RecentUpdates: stats.RecentUpdates,
	}
	for _, l := range laws {
		if l.ChangeCount > 0 {
			resp.UpdatedLaws++
		}
	}
	if len(laws) > 0 {
		graph, err := s.orchestrator.Graph(ctx)
		if err != nil {
			s.fail(w, "building graph", err)
			return
		}
		resp.Categories = len(graph.Categories)
	}
	if resp.RecentUpdates == nil {
		resp.RecentUpdates = []model.UpdateRecord{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Artifacts

// handleListDiffs godoc
// @Summary List stored comparison artifacts
// @Tags diffs
// @Produce json
// @Success 200 {array} store.ArtifactInfo
// @Router /api/diffs [get]
func (s *Server) handleListDiffs(w http.ResponseWriter, r *http.Request) {
	infos, err := s.orchestrator.Artifacts(r.Context())
	if err != nil {
		s.fail(w, "listing artifacts", err)
		return
	}
	if infos == nil {
		infos = []store.ArtifactInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// artifactName reads and vets the filename query parameter.
func artifactName(r *http.Request) (string, bool) {
	name := r.URL.Query().Get("filename")
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

// handleLawDiff godoc
// @Summary Get a stored comparison artifact
// @Tags diffs
// @Produce html
// @Param filename query string true "artifact file name"
// @Success 200 {string} string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/law-diff [get]
func (s *Server) handleLawDiff(w http.ResponseWriter, r *http.Request) {
	name, ok := artifactName(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "잘못된 파일명입니다")
		return
	}
	data, err := s.orchestrator.Artifact(r.Context(), name)
	if err != nil {
		s.fail(w, "loading artifact", err)
		return
	}
	ct := "text/html; charset=utf-8"
	if strings.HasSuffix(name, ".txt") {
		ct = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleLawDiffPDF godoc
// @Summary Print a stored HTML artifact to PDF
// @Tags diffs
// @Produce application/pdf
// @Param filename query string true "artifact file name"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/law-diff/pdf [get]
func (s *Server) handleLawDiffPDF(w http.ResponseWriter, r *http.Request) {
	name, ok := artifactName(r)
	if !ok || !strings.HasSuffix(name, ".html") {
		writeError(w, http.StatusBadRequest, "잘못된 파일명입니다")
		return
	}
	pdf, err := s.orchestrator.ArtifactPDF(r.Context(), name)
	if err != nil {
		s.fail(w, "exporting pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''`+pdfName(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func pdfName(htmlName string) string {
	return strings.ReplaceAll(strings.TrimSuffix(htmlName, ".html")+".pdf", " ", "%20")
}

// Relationships

// handleHierarchy godoc
// @Summary Relationship graph of the tracked laws
// @Tags hierarchy
// @Produce json
// @Success 200 {object} hierarchy.GraphData
// @Router /api/law-hierarchy [get]
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	graph, err := s.orchestrator.Graph(r.Context())
	if err != nil {
		s.fail(w, "building graph", err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// handleLawInfo godoc
// @Summary Taxonomy entry for a law name
// @Tags hierarchy
// @Produce json
// @Param name query string true "law name"
// @Success 200 {object} hierarchy.Info
// @Failure 400 {object} ErrorResponse
// @Router /api/law-info [get]
func (s *Server) handleLawInfo(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name query parameter")
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.LawInfo(name))
}

// Jobs (REST)

// handleStartCheckJob godoc
// @Summary Start a check cycle
// @Tags jobs
// @Produce json
// @Success 202 {object} app.Job
// @Failure 409 {object} ErrorResponse
// @Router /api/check-updates [post]
func (s *Server) handleStartCheckJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.orchestrator.StartCheckJob(r.Context())
	if err != nil {
		s.fail(w, "starting check job", err)
		return
	}
	s.logger.Info("started check job", logging.Field{Key: "job_id", Value: job.ID})
	writeJSON(w, http.StatusAccepted, job)
}

// handleStartBulkAddJob godoc
// @Summary Add many laws in the background
// @Tags jobs
// @Accept json
// @Produce json
// @Param body body BulkAddRequest true "laws to add"
// @Success 202 {object} app.Job
// @Failure 400 {object} ErrorResponse
// @Router /api/bulk-add [post]
func (s *Server) handleStartBulkAddJob(w http.ResponseWriter, r *http.Request) {
	var body BulkAddRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	names, err := tracker.ParseLawList(strings.NewReader(strings.Join(body.Names, "\n")))
	if err != nil || len(names) == 0 {
		writeError(w, http.StatusBadRequest, "법령목록이 필요합니다")
		return
	}
	job := s.orchestrator.StartBulkAddJob(r.Context(), names)
	s.logger.Info("started bulk-add job", logging.Field{Key: "job_id", Value: job.ID}, logging.Field{Key: "count", Value: len(names)})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	writeJSON(w, http.StatusOK, jobs)
}

// WebSockets

func (s *Server) handleCheckWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	job, err := s.orchestrator.StartCheckJob(r.Context())
	if err != nil {
		s.logger.Warn("starting check job", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started check job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Client went away.
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}
	if final := s.orchestrator.GetJob(job.ID); final != nil {
		_ = conn.WriteJSON(final)
	}
}
