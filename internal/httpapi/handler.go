package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"
)

type Handler struct {
	store store.QueueStore
	loc   *time.Location
}

type Options struct {
	Location *time.Location
}

func NewHandler(store store.QueueStore, options Options) *Handler {
	loc := options.Location
	if loc == nil {
		loc = time.Local
	}
	return &Handler{store: store, loc: loc}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/actions/call-next", h.handleCallNext)
	mux.HandleFunc("/api/tickets/active", h.handleActiveTicket)
	mux.HandleFunc("/api/tickets/snapshot", h.handleTicketSnapshot)
	mux.HandleFunc("/api/tickets/", h.handleTicketActions)
	mux.HandleFunc("/api/availability", h.handleAvailability)
	mux.HandleFunc("/api/bookings", h.handleBookings)
	mux.HandleFunc("/api/bookings/redeem", h.handleRedeemBooking)
	mux.HandleFunc("/api/bookings/", h.handleBookingLookup)
	mux.HandleFunc("/api/services", h.handleServices)
	mux.HandleFunc("/api/services/", h.handleServiceByID)
	mux.HandleFunc("/api/counters", h.handleCounters)
	mux.HandleFunc("/api/counters/", h.handleCounterStatus)
	mux.HandleFunc("/api/holidays", h.handleHolidays)
	mux.HandleFunc("/api/stats/daily", h.handleDailyStats)
	mux.HandleFunc("/api/events", h.handleEvents)
	return mux
}

func (h *Handler) today() models.Date {
	return models.DateOf(time.Now().In(h.loc))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type createTicketRequest struct {
	ServiceID int64 `json:"service_id"`
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id is required")
		return
	}

	ticket, err := h.store.IssueTicket(r.Context(), store.IssueTicketInput{
		ServiceID: req.ServiceID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

type callNextRequest struct {
	ServiceID int64 `json:"service_id"`
	CounterID int64 `json:"counter_id"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req callNextRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.ServiceID <= 0 || req.CounterID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id and counter_id are required")
		return
	}

	input := store.CallNextInput{
		ServiceID: req.ServiceID,
		CounterID: req.CounterID,
		CalledAt:  time.Now().UTC(),
	}
	if session, ok := sessionFromContext(r.Context()); ok {
		staffID := session.UserID
		input.StaffID = &staffID
	}

	ticket, err := h.store.CallNext(r.Context(), input)
	if err != nil {
		var busy *store.CounterBusyError
		if errors.As(err, &busy) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: responseError{
				Code:                    "counter_busy",
				Message:                 "counter is still serving a ticket",
				ConflictingTicketNumber: busy.TicketNumber,
			}})
			return
		}
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[1] != "actions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ticketID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket id must be a positive integer")
		return
	}

	var ticket models.Ticket
	switch parts[2] {
	case "recall":
		ticket, err = h.store.RecallTicket(r.Context(), ticketID)
	case "complete":
		ticket, err = h.store.CompleteTicket(r.Context(), ticketID)
	case "skip":
		ticket, err = h.store.SkipTicket(r.Context(), ticketID)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleActiveTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	counterID, err := parseID(r.URL.Query().Get("counter_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter_id must be a positive integer")
		return
	}

	ticket, found, err := h.store.GetActiveTicket(r.Context(), counterID, h.today())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	serviceID, err := parseID(r.URL.Query().Get("service_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a positive integer")
		return
	}

	tickets, err := h.store.SnapshotTickets(r.Context(), serviceID, h.today())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	serviceID, err := parseID(r.URL.Query().Get("service_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a positive integer")
		return
	}
	date := h.today()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		date, err = models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
	}

	availability, err := h.store.CheckAvailability(r.Context(), serviceID, date)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, availability)
}

type createBookingRequest struct {
	ServiceID    int64  `json:"service_id"`
	Date         string `json:"date"`
	Channel      string `json:"channel"`
	VisitorName  string `json:"visitor_name"`
	VisitorPhone string `json:"visitor_phone"`
}

func (h *Handler) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Channel = strings.TrimSpace(req.Channel)
	req.VisitorName = strings.TrimSpace(req.VisitorName)
	req.VisitorPhone = strings.TrimSpace(req.VisitorPhone)
	if req.Channel == "" {
		req.Channel = models.ChannelOnline
	}
	if req.Channel != models.ChannelOnline && req.Channel != models.ChannelOffline {
		writeError(w, http.StatusBadRequest, "invalid_request", "channel must be online or offline")
		return
	}
	if req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id is required")
		return
	}
	if req.VisitorPhone != "" && !isValidPhone(req.VisitorPhone) {
		writeError(w, http.StatusBadRequest, "invalid_request", "visitor_phone must be 8-16 digits")
		return
	}

	date := h.today()
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	if req.Channel == models.ChannelOnline && date.Before(h.today()) {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must not be in the past")
		return
	}

	booking, err := h.store.CreateBooking(r.Context(), store.CreateBookingInput{
		ServiceID:    req.ServiceID,
		Date:         date,
		Channel:      req.Channel,
		VisitorName:  req.VisitorName,
		VisitorPhone: req.VisitorPhone,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

type redeemBookingRequest struct {
	Code      string `json:"code"`
	ServiceID int64  `json:"service_id"`
}

func (h *Handler) handleRedeemBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req redeemBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "code and service_id are required")
		return
	}

	ticket, err := h.store.RedeemBooking(r.Context(), req.Code, req.ServiceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleBookingLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/bookings/"), "/")
	if code == "" || strings.Contains(code, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	booking, err := h.store.GetBookingByCode(r.Context(), code)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	services, err := h.store.ListServices(r.Context(), time.Now().In(h.loc))
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, services)
}

func (h *Handler) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/services/"), "/")
	if strings.Contains(raw, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	serviceID, err := parseID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "service id must be a positive integer")
		return
	}

	service, err := h.store.GetService(r.Context(), serviceID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, service)
}

func (h *Handler) handleCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	counters, err := h.store.ListCounters(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, counters)
}

type counterStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleCounterStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/counters/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[1] != "status" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	counterID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter id must be a positive integer")
		return
	}

	var req counterStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	switch req.Status {
	case models.CounterActive, models.CounterInactive, models.CounterBreak:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "status must be active, inactive, or break")
		return
	}

	counter, err := h.store.UpdateCounterStatus(r.Context(), counterID, req.Status)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, counter)
}

func (h *Handler) handleHolidays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	year := h.today().Year
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			writeError(w, http.StatusBadRequest, "invalid_request", "year must be a four digit year")
			return
		}
		year = parsed
	}

	holidays, err := h.store.ListHolidays(r.Context(), year)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, holidays)
}

func (h *Handler) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	date := h.today()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	stats, err := h.store.DailyStats(r.Context(), date)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	offset := store.OutboxOffset{
		LastEventTime: time.Unix(0, 0).UTC(),
		LastEventID:   "00000000-0000-0000-0000-000000000000",
	}
	if afterRaw := strings.TrimSpace(r.URL.Query().Get("after")); afterRaw != "" {
		parsed, err := time.Parse(time.RFC3339, afterRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "after must be RFC3339 timestamp")
			return
		}
		offset.LastEventTime = parsed
	}
	if afterID := strings.TrimSpace(r.URL.Query().Get("after_id")); afterID != "" {
		offset.LastEventID = afterID
	}

	limit := 100
	if limitRaw := strings.TrimSpace(r.URL.Query().Get("limit")); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := h.store.ListOutboxEvents(r.Context(), offset, limit)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string      `json:"session_id"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	result, err := h.store.Login(r.Context(), store.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		SessionID: result.Session.SessionID,
		ExpiresAt: result.Session.ExpiresAt,
		User:      result.User,
	})
}

type meResponse struct {
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		UserID:    session.UserID,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
	})
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func isValidPhone(value string) bool {
	if len(value) < 8 || len(value) > 16 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code                    string `json:"code"`
	Message                 string `json:"message"`
	ConflictingTicketNumber string `json:"conflicting_ticket_number,omitempty"`
}

func mapError(err error) (int, string, string) {
	var busy *store.CounterBusyError
	switch {
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrCounterNotFound):
		return http.StatusNotFound, "counter_not_found", "counter not found"
	case errors.Is(err, store.ErrBookingNotFound):
		return http.StatusNotFound, "booking_not_found", "booking not found"
	case errors.Is(err, store.ErrQueueEmpty):
		return http.StatusConflict, "queue_empty", "no waiting tickets"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrCounterUnavailable):
		return http.StatusConflict, "counter_unavailable", "counter is not active"
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusConflict, "quota_exceeded", "daily booking quota exceeded"
	case errors.Is(err, store.ErrServiceMismatch):
		return http.StatusConflict, "service_mismatch", "booking belongs to another service"
	case errors.Is(err, store.ErrBookingUsed):
		return http.StatusConflict, "already_used", "booking already used"
	case errors.Is(err, store.ErrBookingCancelled):
		return http.StatusConflict, "booking_cancelled", "booking was cancelled"
	case errors.Is(err, store.ErrBookingExpired):
		return http.StatusConflict, "booking_expired", "booking has expired"
	case errors.Is(err, store.ErrWrongDate):
		return http.StatusConflict, "wrong_date", "booking is for another date"
	case errors.Is(err, store.ErrHolidayClosed):
		return http.StatusConflict, "holiday_closed", "bookings are closed for this holiday"
	case errors.Is(err, store.ErrBadCredentials), errors.Is(err, store.ErrUserNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid username or password"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	case errors.As(err, &busy):
		return http.StatusConflict, "counter_busy", "counter is still serving a ticket"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
