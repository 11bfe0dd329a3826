package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/middleware"
	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/service"
	"github.com/Dan9191/calendar-ads/internal/utils"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc           *service.Service
	webhookSecret string
	log           *logrus.Logger
}

func NewHandler(svc *service.Service, webhookSecret string, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, webhookSecret: webhookSecret, log: log}
}

// Register mounts the routes. Health and the billing webhook go on public;
// everything else on protected, which must run the auth middleware.
func (h *Handler) Register(public, protected *mux.Router) {
	public.HandleFunc("/health", h.Health).Methods("GET")
	public.HandleFunc("/webhooks/billing", h.BillingWebhook).Methods("POST")

	protected.HandleFunc("/overviews", h.CreateOverview).Methods("POST")
	protected.HandleFunc("/overviews/{id:[0-9]+}", h.GetOverview).Methods("GET")
	protected.HandleFunc("/overviews/{id:[0-9]+}/schedule", h.GenerateSchedule).Methods("POST")
	protected.HandleFunc("/overviews/{id:[0-9]+}/installments", h.ListInstallments).Methods("GET")
	protected.HandleFunc("/overviews/{id:[0-9]+}/late-fees/assess", h.AssessLateFees).Methods("POST")
	protected.HandleFunc("/installments/{id:[0-9]+}/waiver", h.SetWaiver).Methods("PUT")
	protected.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	protected.HandleFunc("/payments/{id:[0-9]+}", h.UpdatePayment).Methods("PUT")
	protected.HandleFunc("/payments/{id:[0-9]+}", h.DeletePayment).Methods("DELETE")
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateOverview handles payment overview creation
func (h *Handler) CreateOverview(w http.ResponseWriter, r *http.Request) {
	var in models.OverviewInput
	if !h.decode(w, r, &in) {
		return
	}
	o, err := h.svc.CreateOverview(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o.View())
}

// GetOverview returns the overview view
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetOverview(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GenerateSchedule generates or regenerates the installments of an overview
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req models.ScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.OverviewID = id
	views, err := h.svc.GenerateSchedule(r.Context(), userID(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, views)
}

// ListInstallments returns the installment views of an overview
func (h *Handler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	views, err := h.svc.ListInstallments(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// AssessLateFees charges outstanding late fees of an overview
func (h *Handler) AssessLateFees(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.AssessLateFees(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type waiverRequest struct {
	Waived *bool `json:"waived"`
}

// SetWaiver toggles the late-fee waiver of an installment
func (h *Handler) SetWaiver(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req waiverRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Waived == nil {
		h.writeError(w, fmt.Errorf("waived is required: %w", models.ErrValidation))
		return
	}
	view, err := h.svc.SetLateFeeWaiver(r.Context(), userID(r), id, *req.Waived)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CreatePayment records a payment
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in models.PaymentInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.svc.CreatePayment(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePayment edits a payment
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in models.PaymentInput
	if !h.decode(w, r, &in) {
		return
	}
	if in.ID != 0 && in.ID != id {
		h.writeError(w, fmt.Errorf("body id %d does not match path id %d: %w", in.ID, id, models.ErrValidation))
		return
	}
	p, err := h.svc.UpdatePayment(r.Context(), userID(r), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePayment removes a payment
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePayment(r.Context(), userID(r), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type billingEvent struct {
	PaymentID int64  `json:"paymentId"`
	Status    string `json:"status"`
}

// BillingWebhook receives payment status callbacks from the billing provider.
// Only cancellations change state; other statuses are acknowledged.
func (h *Handler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, fmt.Errorf("failed to read body: %w", models.ErrValidation))
		return
	}
	if !utils.VerifyHMAC(body, r.Header.Get(utils.SignatureHeader), h.webhookSecret) {
		h.log.Warn("Billing webhook with invalid signature")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var ev billingEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.PaymentID <= 0 {
		h.writeError(w, fmt.Errorf("invalid billing event: %w", models.ErrValidation))
		return
	}

	h.log.WithFields(logrus.Fields{"payment_id": ev.PaymentID, "status": ev.Status}).Info("Billing event received")
	if ev.Status == string(models.PaymentStatusCancelled) {
		if err := h.svc.CancelPayment(r.Context(), ev.PaymentID); err != nil {
			h.writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(r *http.Request) int64 {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, fmt.Errorf("invalid id: %w", models.ErrValidation))
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, fmt.Errorf("invalid request body: %v: %w", err, models.ErrValidation))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConsistency):
		h.log.Errorf("Consistency error: %v", err)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
