package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"caremind/internal/logger"
	"caremind/internal/pipeline"
	"caremind/internal/session"
	"caremind/internal/storage"
)

// Views is the view service as the API uses it.
type Views interface {
	Doctor(ctx context.Context, patientID string) (pipeline.DoctorView, error)
	Pharmacist(ctx context.Context, patientID string) (pipeline.PharmacistView, error)
	Nurse(ctx context.Context, patientID string) (pipeline.NurseView, error)
	Problems(ctx context.Context, patientID string) (pipeline.ProblemListView, error)
	PatientSummary(ctx context.Context, patientID string) (pipeline.PatientSummaryView, error)
	FollowUp(ctx context.Context, patientID, question string) (pipeline.TextView, error)
	Family(ctx context.Context, patientID string) (pipeline.TextView, error)
}

type Handlers struct {
	db     *storage.DB
	views  Views
	log    zerolog.Logger
	groups map[pipeline.View]*session.Group[any]

	mu         sync.Mutex
	checklists map[string]*pipeline.Checklist
}

func NewHandlers(db *storage.DB, views Views) *Handlers {
	h := &Handlers{
		db:         db,
		views:      views,
		log:        logger.NewLogger("api"),
		checklists: map[string]*pipeline.Checklist{},
	}
	h.groups = map[pipeline.View]*session.Group[any]{
		pipeline.ViewDoctor: session.NewGroup(func(ctx context.Context, id string) (any, error) {
			return views.Doctor(ctx, id)
		}),
		pipeline.ViewPharmacist: session.NewGroup(func(ctx context.Context, id string) (any, error) {
			return views.Pharmacist(ctx, id)
		}),
		pipeline.ViewNurse: session.NewGroup(func(ctx context.Context, id string) (any, error) {
			return views.Nurse(ctx, id)
		}, session.OnCommit(h.commitChecklist)),
		pipeline.ViewProblems: session.NewGroup(func(ctx context.Context, id string) (any, error) {
			return views.Problems(ctx, id)
		}, session.KeepValueOnError[any]()),
		pipeline.ViewPatientSummary: session.NewGroup(func(ctx context.Context, id string) (any, error) {
			return views.PatientSummary(ctx, id)
		}),
		pipeline.ViewFamily: session.NewGroup(func(ctx context.Context, id string) (any, error) {
			return views.Family(ctx, id)
		}),
	}
	return h
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/patients", h.ListPatients).Methods("GET")
	api.HandleFunc("/patients/{patientID}", h.GetPatient).Methods("GET")
	api.HandleFunc("/patients/{patientID}/chart", h.GetChart).Methods("GET")
	api.HandleFunc("/patients/{patientID}/ask", h.Ask).Methods("POST")
	api.HandleFunc("/patients/{patientID}/checklist/{itemID}/toggle", h.ToggleChecklistItem).Methods("POST")
	api.HandleFunc("/patients/{patientID}/views/{view}", h.GetView).Methods("GET")
	api.HandleFunc("/patients/{patientID}/views/{view}/refresh", h.RefreshView).Methods("POST")
	api.HandleFunc("/runs", h.ListRuns).Methods("GET")
}

func (h *Handlers) checklist(patientID string) *pipeline.Checklist {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.checklists[patientID]
	if !ok {
		c = pipeline.NewChecklist(nil)
		h.checklists[patientID] = c
	}
	return c
}

// commitChecklist makes a committed nurse view the toggle-able checklist.
// Failed refreshes leave the current items and their completion state alone.
func (h *Handlers) commitChecklist(state session.State[any]) {
	if state.Err != nil {
		return
	}
	if view, ok := state.Value.(pipeline.NurseView); ok {
		h.checklist(state.Key).Replace(view.Items)
	}
}

type viewResponse struct {
	PatientID string `json:"patientId"`
	View      string `json:"view"`
	Data      any    `json:"data"`
	Error     string `json:"error,omitempty"`
	Seq       uint64 `json:"seq"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (h *Handlers) stateResponse(patientID string, view pipeline.View, state session.State[any]) viewResponse {
	resp := viewResponse{PatientID: patientID, View: string(view), Data: state.Value, Seq: state.Seq}
	if nurse, ok := state.Value.(pipeline.NurseView); ok && state.Loaded() {
		nurse.Items = h.checklist(patientID).Items()
		resp.Data = nurse
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	if !state.UpdatedAt.IsZero() {
		resp.UpdatedAt = state.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handlers) refresher(w http.ResponseWriter, r *http.Request) (string, pipeline.View, *session.Refresher[any], bool) {
	vars := mux.Vars(r)
	patientID := vars["patientID"]
	view := pipeline.View(vars["view"])
	group, ok := h.groups[view]
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown_view", "Unknown view: "+string(view))
		return "", "", nil, false
	}
	return patientID, view, group.Get(patientID), true
}

// GetView returns the last committed state of a view, refreshing first when
// nothing was committed yet or refresh=1 is set.
func (h *Handlers) GetView(w http.ResponseWriter, r *http.Request) {
	patientID, view, ref, ok := h.refresher(w, r)
	if !ok {
		return
	}
	if !ref.Snapshot().Loaded() || r.URL.Query().Get("refresh") == "1" {
		h.refresh(w, r, patientID, view, ref)
		return
	}
	h.writeJSON(w, http.StatusOK, h.stateResponse(patientID, view, ref.Snapshot()))
}

func (h *Handlers) RefreshView(w http.ResponseWriter, r *http.Request) {
	patientID, view, ref, ok := h.refresher(w, r)
	if !ok {
		return
	}
	h.refresh(w, r, patientID, view, ref)
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request, patientID string, view pipeline.View, ref *session.Refresher[any]) {
	_, err := ref.Refresh(r.Context())
	if errors.Is(err, session.ErrStale) {
		h.writeError(w, http.StatusConflict, "stale", "A newer refresh superseded this request")
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("patientId", patientID).Str("view", string(view)).Msg("view refresh failed")
	}
	h.writeJSON(w, http.StatusOK, h.stateResponse(patientID, view, ref.Snapshot()))
}

func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientID"]
	var body struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	answer, err := h.views.FollowUp(r.Context(), patientID, body.Question)
	resp := viewResponse{PatientID: patientID, View: string(pipeline.ViewFollowUp), Data: answer}
	if err != nil {
		resp.Error = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	list := h.checklist(vars["patientID"])
	if !list.Toggle(vars["itemID"]) {
		h.writeError(w, http.StatusNotFound, "not_found", "Checklist item not found")
		return
	}
	completed, total := list.Progress()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"items":     list.Items(),
		"completed": completed,
		"total":     total,
	})
}

func (h *Handlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.db.ListPatients()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"patients": patients, "count": len(patients)})
}

func (h *Handlers) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.db.GetPatient(mux.Vars(r)["patientID"])
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if patient == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Patient not found")
		return
	}
	h.writeJSON(w, http.StatusOK, patient)
}

func (h *Handlers) GetChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.db.GetChart(mux.Vars(r)["patientID"])
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if chart == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Chart not found")
		return
	}
	h.writeJSON(w, http.StatusOK, chart)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := h.db.ListRuns(r.URL.Query().Get("patientId"), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
