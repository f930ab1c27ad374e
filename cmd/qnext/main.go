package main

import (
	"context"
	"encoding/json"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/config"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/httpapi"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/hub"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store/postgres"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/telemetry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const zeroUUID = "00000000-0000-0000-0000-000000000000"

func main() {
	cfg := config.Load()
	loc := cfg.Location()
	shutdownTelemetry := telemetry.Setup("qnext")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	queueStore := postgres.NewStore(pool, postgres.Options{
		Location:   loc,
		SessionTTL: cfg.SessionTTL,
	})
	h := hub.New()
	handler := httpapi.NewHandler(queueStore, httpapi.Options{Location: loc})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", newRealtimeHandler(h))
	mux.Handle("/", handler.Routes())

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(httpapi.AuthMiddleware(queueStore, mux))), "qnext")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("qnext listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	go runDispatcher(queueStore, h, cfg)
	go runExpirySweeper(queueStore, loc, cfg)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func newRealtimeHandler(h *hub.Hub) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			h.UpdateSubscription(client, hub.Subscription{
				ServiceID: parsed.ServiceID,
				CounterID: parsed.CounterID,
			})
		}
	})
}

// runDispatcher tails the outbox and fans events out to connected
// displays. The durable offset makes restarts resume, not replay.
func runDispatcher(queueStore store.QueueStore, h *hub.Hub, cfg config.Config) {
	offset, err := queueStore.GetOutboxOffset(context.Background())
	if err != nil {
		log.Printf("load offset error: %v", err)
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	pollInterval := cfg.OutboxPollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	var running int32
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for range ticker.C {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		events, err := queueStore.ListOutboxEvents(ctx, offset, cfg.OutboxBatchSize)
		cancel()
		if err == nil {
			for _, event := range events {
				offset.LastEventTime = event.CreatedAt
				offset.LastEventID = event.EventID
				env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
				payload, _ := json.Marshal(env)
				h.Broadcast(payload, hub.Subscription{
					ServiceID: event.ServiceID,
					CounterID: event.CounterID,
				})
			}
			if len(events) > 0 {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := queueStore.UpdateOutboxOffset(ctx, offset); err != nil {
					log.Printf("update offset error: %v", err)
				}
				cancel()
			}
		}
		atomic.StoreInt32(&running, 0)
	}
}

// runExpirySweeper marks stale pending bookings as expired once their
// date has passed.
func runExpirySweeper(queueStore store.QueueStore, loc *time.Location, cfg config.Config) {
	interval := cfg.ExpirySweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		today := models.DateOf(time.Now().In(loc))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		expired, err := queueStore.ExpireBookings(ctx, today, cfg.ExpiryBatchSize)
		cancel()
		if err != nil {
			log.Printf("expire bookings error: %v", err)
			continue
		}
		if expired > 0 {
			log.Printf("expired bookings count=%d", expired)
		}
	}
}
