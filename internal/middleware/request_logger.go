package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
)

const (
	requestLogTimeout = 3 * time.Second
	requestLogBuffer  = 1024
)

// RequestLogSink stores finished requests. The Mongo request log repository
// satisfies it.
type RequestLogSink interface {
	InsertLog(ctx context.Context, entry *models.RequestLog) error
}

// RequestLogWriter stores request logs on a single background worker.
// Entries that arrive while the buffer is full are dropped.
type RequestLogWriter struct {
	sink    RequestLogSink
	log     *zap.Logger
	entries chan *models.RequestLog
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewRequestLogWriter(sink RequestLogSink, log *zap.Logger) *RequestLogWriter {
	w := &RequestLogWriter{
		sink:    sink,
		log:     log.Named("request_log"),
		entries: make(chan *models.RequestLog, requestLogBuffer),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *RequestLogWriter) run() {
	defer close(w.done)
	for entry := range w.entries {
		ctx, cancel := context.WithTimeout(context.Background(), requestLogTimeout)
		if err := w.sink.InsertLog(ctx, entry); err != nil {
			w.log.Warn("failed to store request log", zap.String("request_id", entry.RequestID), zap.Error(err))
		}
		cancel()
	}
}

// Write queues entry. It never blocks.
func (w *RequestLogWriter) Write(entry *models.RequestLog) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.entries <- entry:
	default:
		w.log.Warn("request log buffer full, dropping entry", zap.String("request_id", entry.RequestID))
	}
}

// Close stops accepting entries and waits until the queued ones are stored
// or ctx is done.
func (w *RequestLogWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.entries)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestLogger logs every request with zap and, when writer is not nil,
// queues it for storage. Storage failures never fail the request.
func RequestLogger(log *zap.Logger, writer *RequestLogWriter) echo.MiddlewareFunc {
	log = log.Named("http")
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURIPath:   true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			userID := UserID(c)
			if userID != 0 {
				fields = append(fields, zap.Uint("user_id", userID))
			}

			switch {
			case v.Status >= 500:
				log.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Status >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}

			if writer == nil {
				return nil
			}
			entry := &models.RequestLog{
				RequestID: v.RequestID,
				Method:    v.Method,
				Path:      v.URIPath,
				Status:    v.Status,
				LatencyMs: v.Latency.Milliseconds(),
				UserID:    userID,
				RemoteIP:  v.RemoteIP,
				CreatedAt: v.StartTime.UTC(),
			}
			if v.Error != nil {
				entry.Error = v.Error.Error()
			}
			writer.Write(entry)
			return nil
		},
	})
}
