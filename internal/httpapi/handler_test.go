package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"
)

type fakeStore struct {
	issueFn         func(ctx context.Context, input store.IssueTicketInput) (models.Ticket, error)
	availabilityFn  func(ctx context.Context, serviceID int64, date models.Date) (store.Availability, error)
	createBookingFn func(ctx context.Context, input store.CreateBookingInput) (models.Booking, error)
	redeemFn        func(ctx context.Context, code string, serviceID int64) (models.Ticket, error)
	getBookingFn    func(ctx context.Context, code string) (models.Booking, error)
	expireFn        func(ctx context.Context, before models.Date, batchSize int) (int, error)
	callFn          func(ctx context.Context, input store.CallNextInput) (models.Ticket, error)
	recallFn        func(ctx context.Context, ticketID int64) (models.Ticket, error)
	completeFn      func(ctx context.Context, ticketID int64) (models.Ticket, error)
	skipFn          func(ctx context.Context, ticketID int64) (models.Ticket, error)
	getTicketFn     func(ctx context.Context, ticketID int64) (models.Ticket, error)
	snapshotFn      func(ctx context.Context, serviceID int64, date models.Date) ([]models.Ticket, error)
	activeFn        func(ctx context.Context, counterID int64, date models.Date) (models.Ticket, bool, error)
	servicesFn      func(ctx context.Context, at time.Time) ([]store.ServiceStatus, error)
	getServiceFn    func(ctx context.Context, serviceID int64) (models.Service, error)
	countersFn      func(ctx context.Context) ([]models.Counter, error)
	updateCounterFn func(ctx context.Context, counterID int64, status string) (models.Counter, error)
	holidaysFn      func(ctx context.Context, year int) ([]models.Holiday, error)
	statsFn         func(ctx context.Context, date models.Date) ([]models.DailyServiceStat, error)
	outboxFn        func(ctx context.Context, after store.OutboxOffset, limit int) ([]store.OutboxEvent, error)
	getOffsetFn     func(ctx context.Context) (store.OutboxOffset, error)
	updateOffsetFn  func(ctx context.Context, offset store.OutboxOffset) error
	loginFn         func(ctx context.Context, input store.LoginInput) (store.LoginResult, error)
	getSessionFn    func(ctx context.Context, sessionID string) (store.Session, error)
}

func (f fakeStore) IssueTicket(ctx context.Context, input store.IssueTicketInput) (models.Ticket, error) {
	if f.issueFn == nil {
		return models.Ticket{}, nil
	}
	return f.issueFn(ctx, input)
}

func (f fakeStore) CheckAvailability(ctx context.Context, serviceID int64, date models.Date) (store.Availability, error) {
	if f.availabilityFn == nil {
		return store.Availability{}, nil
	}
	return f.availabilityFn(ctx, serviceID, date)
}

func (f fakeStore) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
	if f.createBookingFn == nil {
		return models.Booking{}, nil
	}
	return f.createBookingFn(ctx, input)
}

func (f fakeStore) RedeemBooking(ctx context.Context, code string, serviceID int64) (models.Ticket, error) {
	if f.redeemFn == nil {
		return models.Ticket{}, nil
	}
	return f.redeemFn(ctx, code, serviceID)
}

func (f fakeStore) GetBookingByCode(ctx context.Context, code string) (models.Booking, error) {
	if f.getBookingFn == nil {
		return models.Booking{}, nil
	}
	return f.getBookingFn(ctx, code)
}

func (f fakeStore) ExpireBookings(ctx context.Context, before models.Date, batchSize int) (int, error) {
	if f.expireFn == nil {
		return 0, nil
	}
	return f.expireFn(ctx, before, batchSize)
}

func (f fakeStore) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
	if f.callFn == nil {
		return models.Ticket{}, nil
	}
	return f.callFn(ctx, input)
}

func (f fakeStore) RecallTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	if f.recallFn == nil {
		return models.Ticket{}, nil
	}
	return f.recallFn(ctx, ticketID)
}

func (f fakeStore) CompleteTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	if f.completeFn == nil {
		return models.Ticket{}, nil
	}
	return f.completeFn(ctx, ticketID)
}

func (f fakeStore) SkipTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	if f.skipFn == nil {
		return models.Ticket{}, nil
	}
	return f.skipFn(ctx, ticketID)
}

func (f fakeStore) GetTicket(ctx context.Context, ticketID int64) (models.Ticket, error) {
	if f.getTicketFn == nil {
		return models.Ticket{}, nil
	}
	return f.getTicketFn(ctx, ticketID)
}

func (f fakeStore) SnapshotTickets(ctx context.Context, serviceID int64, date models.Date) ([]models.Ticket, error) {
	if f.snapshotFn == nil {
		return nil, nil
	}
	return f.snapshotFn(ctx, serviceID, date)
}

func (f fakeStore) GetActiveTicket(ctx context.Context, counterID int64, date models.Date) (models.Ticket, bool, error) {
	if f.activeFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.activeFn(ctx, counterID, date)
}

func (f fakeStore) ListServices(ctx context.Context, at time.Time) ([]store.ServiceStatus, error) {
	if f.servicesFn == nil {
		return nil, nil
	}
	return f.servicesFn(ctx, at)
}

func (f fakeStore) GetService(ctx context.Context, serviceID int64) (models.Service, error) {
	if f.getServiceFn == nil {
		return models.Service{}, nil
	}
	return f.getServiceFn(ctx, serviceID)
}

func (f fakeStore) ListCounters(ctx context.Context) ([]models.Counter, error) {
	if f.countersFn == nil {
		return nil, nil
	}
	return f.countersFn(ctx)
}

func (f fakeStore) UpdateCounterStatus(ctx context.Context, counterID int64, status string) (models.Counter, error) {
	if f.updateCounterFn == nil {
		return models.Counter{}, nil
	}
	return f.updateCounterFn(ctx, counterID, status)
}

func (f fakeStore) ListHolidays(ctx context.Context, year int) ([]models.Holiday, error) {
	if f.holidaysFn == nil {
		return nil, nil
	}
	return f.holidaysFn(ctx, year)
}

func (f fakeStore) DailyStats(ctx context.Context, date models.Date) ([]models.DailyServiceStat, error) {
	if f.statsFn == nil {
		return nil, nil
	}
	return f.statsFn(ctx, date)
}

func (f fakeStore) ListOutboxEvents(ctx context.Context, after store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	if f.outboxFn == nil {
		return nil, nil
	}
	return f.outboxFn(ctx, after, limit)
}

func (f fakeStore) GetOutboxOffset(ctx context.Context) (store.OutboxOffset, error) {
	if f.getOffsetFn == nil {
		return store.OutboxOffset{}, nil
	}
	return f.getOffsetFn(ctx)
}

func (f fakeStore) UpdateOutboxOffset(ctx context.Context, offset store.OutboxOffset) error {
	if f.updateOffsetFn == nil {
		return nil
	}
	return f.updateOffsetFn(ctx, offset)
}

func (f fakeStore) Login(ctx context.Context, input store.LoginInput) (store.LoginResult, error) {
	if f.loginFn == nil {
		return store.LoginResult{}, nil
	}
	return f.loginFn(ctx, input)
}

func (f fakeStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	if f.getSessionFn == nil {
		return store.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

func TestIssueTicketSuccess(t *testing.T) {
	st := fakeStore{
		issueFn: func(ctx context.Context, input store.IssueTicketInput) (models.Ticket, error) {
			return models.Ticket{
				ID:        1,
				ServiceID: input.ServiceID,
				Sequence:  7,
				Number:    "A-007",
				Status:    models.StatusWaiting,
			}, nil
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]int64{"service_id": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var ticket models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ticket.Number != "A-007" || ticket.Status != models.StatusWaiting {
		t.Fatalf("unexpected ticket response: %+v", ticket)
	}
}

func TestIssueTicketMissingService(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})

	body, _ := json.Marshal(map[string]int64{})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestIssueTicketServiceNotFound(t *testing.T) {
	st := fakeStore{
		issueFn: func(ctx context.Context, input store.IssueTicketInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrServiceNotFound
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]int64{"service_id": 99})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
	assertErrorCode(t, resp, "service_not_found")
}

func TestCallNextQueueEmpty(t *testing.T) {
	st := fakeStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrQueueEmpty
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]int64{"service_id": 1, "counter_id": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	assertErrorCode(t, resp, "queue_empty")
}

func TestCallNextCounterBusy(t *testing.T) {
	st := fakeStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
			return models.Ticket{}, &store.CounterBusyError{TicketNumber: "B-003"}
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]int64{"service_id": 1, "counter_id": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "counter_busy" {
		t.Fatalf("expected counter_busy, got %s", payload.Error.Code)
	}
	if payload.Error.ConflictingTicketNumber != "B-003" {
		t.Fatalf("expected conflicting ticket B-003, got %q", payload.Error.ConflictingTicketNumber)
	}
}

func TestCallNextCounterUnavailable(t *testing.T) {
	st := fakeStore{
		callFn: func(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrCounterUnavailable
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]int64{"service_id": 1, "counter_id": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	assertErrorCode(t, resp, "counter_unavailable")
}

func TestTicketActionRoutes(t *testing.T) {
	cases := []struct {
		action string
		err    error
		status int
		code   string
	}{
		{"recall", nil, http.StatusOK, ""},
		{"complete", store.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{"skip", store.ErrTicketNotFound, http.StatusNotFound, "ticket_not_found"},
	}

	for _, tc := range cases {
		st := fakeStore{
			recallFn: func(ctx context.Context, ticketID int64) (models.Ticket, error) {
				return models.Ticket{ID: ticketID, Status: models.StatusServing}, tc.err
			},
			completeFn: func(ctx context.Context, ticketID int64) (models.Ticket, error) {
				return models.Ticket{}, tc.err
			},
			skipFn: func(ctx context.Context, ticketID int64) (models.Ticket, error) {
				return models.Ticket{}, tc.err
			},
		}
		h := NewHandler(st, Options{})

		req := httptest.NewRequest(http.MethodPost, "/api/tickets/42/actions/"+tc.action, nil)
		resp := httptest.NewRecorder()

		h.Routes().ServeHTTP(resp, req)

		if resp.Code != tc.status {
			t.Fatalf("action %s: expected status %d, got %d", tc.action, tc.status, resp.Code)
		}
		if tc.code != "" {
			assertErrorCode(t, resp, tc.code)
		}
	}
}

func TestTicketActionUnknown(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/42/actions/promote", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestAvailability(t *testing.T) {
	st := fakeStore{
		availabilityFn: func(ctx context.Context, serviceID int64, date models.Date) (store.Availability, error) {
			if date != models.NewDate(2026, time.March, 5) {
				t.Fatalf("unexpected date %v", date)
			}
			return store.Availability{Available: true, Remaining: 4, Quota: 10}, nil
		},
	}
	h := NewHandler(st, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/availability?service_id=1&date=2026-03-05", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var availability store.Availability
	if err := json.NewDecoder(resp.Body).Decode(&availability); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !availability.Available || availability.Remaining != 4 {
		t.Fatalf("unexpected availability: %+v", availability)
	}
}

func TestCreateBookingQuotaExceeded(t *testing.T) {
	st := fakeStore{
		createBookingFn: func(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
			return models.Booking{}, store.ErrQuotaExceeded
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]interface{}{
		"service_id": 1,
		"date":       "2099-01-02",
		"channel":    "online",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	assertErrorCode(t, resp, "quota_exceeded")
}

func TestCreateBookingPastDate(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})

	body, _ := json.Marshal(map[string]interface{}{
		"service_id": 1,
		"date":       "2020-01-02",
		"channel":    "online",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCreateBookingBadChannel(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})

	body, _ := json.Marshal(map[string]interface{}{
		"service_id": 1,
		"channel":    "walkup",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestRedeemBookingErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{store.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
		{store.ErrServiceMismatch, http.StatusConflict, "service_mismatch"},
		{store.ErrBookingUsed, http.StatusConflict, "already_used"},
		{store.ErrBookingCancelled, http.StatusConflict, "booking_cancelled"},
		{store.ErrBookingExpired, http.StatusConflict, "booking_expired"},
		{store.ErrWrongDate, http.StatusConflict, "wrong_date"},
	}

	for _, tc := range cases {
		st := fakeStore{
			redeemFn: func(ctx context.Context, code string, serviceID int64) (models.Ticket, error) {
				return models.Ticket{}, tc.err
			},
		}
		h := NewHandler(st, Options{})

		body, _ := json.Marshal(map[string]interface{}{"code": "BA-12340900", "service_id": 1})
		req := httptest.NewRequest(http.MethodPost, "/api/bookings/redeem", bytes.NewReader(body))
		resp := httptest.NewRecorder()

		h.Routes().ServeHTTP(resp, req)

		if resp.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, resp.Code)
		}
		assertErrorCode(t, resp, tc.code)
	}
}

func TestRedeemBookingSuccess(t *testing.T) {
	st := fakeStore{
		redeemFn: func(ctx context.Context, code string, serviceID int64) (models.Ticket, error) {
			bookingID := int64(5)
			return models.Ticket{
				ID:        10,
				ServiceID: serviceID,
				Number:    "B-001",
				Status:    models.StatusWaiting,
				BookingID: &bookingID,
			}, nil
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]interface{}{"code": "BB-77711015", "service_id": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/redeem", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var ticket models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ticket.BookingID == nil || *ticket.BookingID != 5 {
		t.Fatalf("expected booking link, got %+v", ticket)
	}
}

func TestActiveTicketNoContent(t *testing.T) {
	st := fakeStore{
		activeFn: func(ctx context.Context, counterID int64, date models.Date) (models.Ticket, bool, error) {
			return models.Ticket{}, false, nil
		},
	}
	h := NewHandler(st, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/active?counter_id=3", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
}

func TestCounterStatusValidation(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})

	body, _ := json.Marshal(map[string]string{"status": "sleeping"})
	req := httptest.NewRequest(http.MethodPost, "/api/counters/2/status", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestCounterStatusUpdate(t *testing.T) {
	st := fakeStore{
		updateCounterFn: func(ctx context.Context, counterID int64, status string) (models.Counter, error) {
			return models.Counter{ID: counterID, Name: "Counter 2", Status: status}, nil
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]string{"status": "break"})
	req := httptest.NewRequest(http.MethodPost, "/api/counters/2/status", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var counter models.Counter
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if counter.Status != models.CounterBreak {
		t.Fatalf("unexpected counter: %+v", counter)
	}
}

func TestServiceByID(t *testing.T) {
	st := fakeStore{
		getServiceFn: func(ctx context.Context, serviceID int64) (models.Service, error) {
			if serviceID != 4 {
				return models.Service{}, store.ErrServiceNotFound
			}
			return models.Service{ID: 4, Name: "Pajak Kendaraan", Code: "P"}, nil
		},
	}
	h := NewHandler(st, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/services/4", nil)
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var service models.Service
	if err := json.NewDecoder(resp.Body).Decode(&service); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if service.Code != "P" {
		t.Fatalf("unexpected service: %+v", service)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/services/9", nil)
	resp = httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
	assertErrorCode(t, resp, "service_not_found")
}

func TestLoginBadCredentials(t *testing.T) {
	st := fakeStore{
		loginFn: func(ctx context.Context, input store.LoginInput) (store.LoginResult, error) {
			return store.LoginResult{}, store.ErrBadCredentials
		},
	}
	h := NewHandler(st, Options{})

	body, _ := json.Marshal(map[string]string{"username": "agus", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	h.Routes().ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthMiddlewareBlocksStaffEndpoint(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})
	wrapped := AuthMiddleware(fakeStore{}, h.Routes())

	body, _ := json.Marshal(map[string]int64{"service_id": 1, "counter_id": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/actions/call-next", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	wrapped.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestAuthMiddlewarePassesPublicEndpoint(t *testing.T) {
	h := NewHandler(fakeStore{}, Options{})
	wrapped := AuthMiddleware(fakeStore{}, h.Routes())

	body, _ := json.Marshal(map[string]int64{"service_id": 1})
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	wrapped.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestAuthMiddlewareAcceptsSession(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	st := fakeStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			if sessionID != "session-1" {
				return store.Session{}, store.ErrSessionNotFound
			}
			return store.Session{SessionID: sessionID, UserID: 9, Role: "staff", ExpiresAt: expires}, nil
		},
	}
	h := NewHandler(st, Options{})
	wrapped := AuthMiddleware(st, h.Routes())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer session-1")
	resp := httptest.NewRecorder()

	wrapped.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var me meResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if me.UserID != 9 || me.Role != "staff" {
		t.Fatalf("unexpected session response: %+v", me)
	}
}

func assertErrorCode(t *testing.T, resp *httptest.ResponseRecorder, code string) {
	t.Helper()
	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if payload.Error.Code != code {
		t.Fatalf("expected error code %s, got %s", code, payload.Error.Code)
	}
}
