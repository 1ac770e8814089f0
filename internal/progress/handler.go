package progress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/2beens/pushupjourney/internal/telemetry/tracing"
	"github.com/2beens/pushupjourney/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxImportSize = 5 << 20

type progressService interface {
	State(ctx context.Context) State
	SetCount(ctx context.Context, count int) (State, error)
	ToggleCompleted(ctx context.Context) State
	ToggleJoker(ctx context.Context) State
	AdvanceDay(ctx context.Context) State
	Navigate(ctx context.Context, dayNumber int) (State, error)
	Achievements(ctx context.Context) []Achievement
	LevelTable() []LevelInfo
	Export(ctx context.Context) ([]byte, error)
	ExportFileName() string
	Import(ctx context.Context, data []byte) (State, error)
	Reset(ctx context.Context) State
}

type Handler struct {
	service progressService
}

func NewHandler(service progressService) *Handler {
	return &Handler{
		service: service,
	}
}

// SetupRoutes registers the progress routes. Import and reset are registered by SetupAdminRoutes,
// so they can be guarded separately.
func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/progress", h.HandleState).Methods("GET", "OPTIONS").Name("progress-state")
	r.HandleFunc("/progress/count", h.HandleSetCount).Methods("POST", "OPTIONS").Name("progress-set-count")
	r.HandleFunc("/progress/completed/toggle", h.HandleToggleCompleted).Methods("POST", "OPTIONS").Name("progress-toggle-completed")
	r.HandleFunc("/progress/joker/toggle", h.HandleToggleJoker).Methods("POST", "OPTIONS").Name("progress-toggle-joker")
	r.HandleFunc("/progress/advance", h.HandleAdvance).Methods("POST", "OPTIONS").Name("progress-advance")
	r.HandleFunc("/progress/days/{day}", h.HandleNavigate).Methods("GET", "OPTIONS").Name("progress-navigate")
	r.HandleFunc("/progress/achievements", h.HandleAchievements).Methods("GET", "OPTIONS").Name("progress-achievements")
	r.HandleFunc("/progress/levels", h.HandleLevels).Methods("GET", "OPTIONS").Name("progress-levels")
	r.HandleFunc("/progress/export", h.HandleExport).Methods("GET", "OPTIONS").Name("progress-export")
}

func (h *Handler) SetupAdminRoutes(r *mux.Router) {
	r.HandleFunc("/progress/import", h.HandleImport).Methods("POST", "OPTIONS").Name("progress-import")
	r.HandleFunc("/progress/reset", h.HandleReset).Methods("POST", "OPTIONS").Name("progress-reset")
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.state")
	defer span.End()

	pkg.WriteJSON(w, h.service.State(ctx), http.StatusOK)
}

type setCountRequest struct {
	Count *int `json:"count"`
}

func (h *Handler) HandleSetCount(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.setcount")
	defer span.End()

	var req setCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("set count, unmarshal json params: %s", err)
		http.Error(w, "error, count must be a whole number", http.StatusBadRequest)
		return
	}
	if req.Count == nil {
		http.Error(w, "error, count missing", http.StatusBadRequest)
		return
	}

	state, err := h.service.SetCount(ctx, *req.Count)
	if err != nil {
		http.Error(w, "error, "+err.Error(), http.StatusBadRequest)
		return
	}
	pkg.WriteJSON(w, state, http.StatusOK)
}

func (h *Handler) HandleToggleCompleted(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.togglecompleted")
	defer span.End()

	pkg.WriteJSON(w, h.service.ToggleCompleted(ctx), http.StatusOK)
}

func (h *Handler) HandleToggleJoker(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.togglejoker")
	defer span.End()

	pkg.WriteJSON(w, h.service.ToggleJoker(ctx), http.StatusOK)
}

func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.advance")
	defer span.End()

	pkg.WriteJSON(w, h.service.AdvanceDay(ctx), http.StatusOK)
}

func (h *Handler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.navigate")
	defer span.End()

	day, err := strconv.Atoi(mux.Vars(r)["day"])
	if err != nil {
		http.Error(w, "error, day NaN", http.StatusBadRequest)
		return
	}

	state, err := h.service.Navigate(ctx, day)
	switch {
	case errors.Is(err, ErrDayNotFound):
		http.Error(w, "error, day not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrDayInFuture):
		http.Error(w, "error, day not reached yet", http.StatusBadRequest)
		return
	case err != nil:
		log.Errorf("navigate to day %d: %s", day, err)
		http.Error(w, "error, navigate failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, state, http.StatusOK)
}

func (h *Handler) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.achievements")
	defer span.End()

	pkg.WriteJSON(w, h.service.Achievements(ctx), http.StatusOK)
}

func (h *Handler) HandleLevels(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.levels")
	defer span.End()

	pkg.WriteJSON(w, h.service.LevelTable(), http.StatusOK)
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.export")
	defer span.End()

	data, err := h.service.Export(ctx)
	if err != nil {
		log.Errorf("export progress: %s", err)
		http.Error(w, "error, export failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteAttachment(w, pkg.ContentType.JSON, h.service.ExportFileName(), data)
}

func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.import")
	defer span.End()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		http.Error(w, "error, failed to read import data", http.StatusBadRequest)
		return
	}

	state, err := h.service.Import(ctx, data)
	if err != nil {
		log.Warnf("import progress: %s", err)
		http.Error(w, "Failed to import data. The file may be corrupted or in the wrong format.", http.StatusBadRequest)
		return
	}
	log.Infof("progress imported, current day %d", state.Progress.CurrentDay)
	pkg.WriteJSON(w, state, http.StatusOK)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.reset")
	defer span.End()

	state := h.service.Reset(ctx)
	log.Infoln("all progress reset")
	pkg.WriteJSON(w, state, http.StatusOK)
}
