package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/2beens/pushupjourney/internal/telemetry/tracing"
	"github.com/2beens/pushupjourney/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=notify

type settingsRepo interface {
	Load(ctx context.Context) Settings
	Save(ctx context.Context, settings Settings) error
}

type Handler struct {
	settings settingsRepo
}

func NewHandler(settings settingsRepo) *Handler {
	return &Handler{
		settings: settings,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/notifications/settings", h.HandleGet).Methods("GET", "OPTIONS").Name("get-notification-settings")
	r.HandleFunc("/notifications/settings", h.HandlePut).Methods("PUT", "OPTIONS").Name("put-notification-settings")
	r.HandleFunc("/notifications/settings/times", h.HandleAddTime).Methods("POST", "OPTIONS").Name("add-notification-time")
	r.HandleFunc("/notifications/settings/times/{time}", h.HandleRemoveTime).Methods("DELETE", "OPTIONS").Name("remove-notification-time")
	r.HandleFunc("/notifications/settings/days/{day}/toggle", h.HandleToggleDay).Methods("POST", "OPTIONS").Name("toggle-notification-day")
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.settings.get")
	defer span.End()

	pkg.WriteJSON(w, h.settings.Load(ctx), http.StatusOK)
}

func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.settings.put")
	defer span.End()

	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		log.Errorf("put notification settings, unmarshal json: %s", err)
		http.Error(w, "invalid settings", http.StatusBadRequest)
		return
	}

	h.save(ctx, w, settings)
}

type addTimeRequest struct {
	Time string `json:"time"`
}

func (h *Handler) HandleAddTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.settings.addtime")
	defer span.End()

	var req addTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	settings := h.settings.Load(ctx)
	if err := settings.AddTime(req.Time); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.save(ctx, w, settings)
}

func (h *Handler) HandleRemoveTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.settings.removetime")
	defer span.End()

	settings := h.settings.Load(ctx)
	settings.RemoveTime(mux.Vars(r)["time"])
	h.save(ctx, w, settings)
}

func (h *Handler) HandleToggleDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.settings.toggleday")
	defer span.End()

	day, err := strconv.Atoi(mux.Vars(r)["day"])
	if err != nil {
		http.Error(w, "invalid day", http.StatusBadRequest)
		return
	}

	settings := h.settings.Load(ctx)
	if err := settings.ToggleDay(day); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.save(ctx, w, settings)
}

func (h *Handler) save(ctx context.Context, w http.ResponseWriter, settings Settings) {
	if err := settings.Normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.settings.Save(ctx, settings); err != nil {
		log.Errorf("save notification settings: %s", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSON(w, settings, http.StatusOK)
}
