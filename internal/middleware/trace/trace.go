// Package trace assigns request ids and logs completed requests.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "finanote/internal/log"
)

const HeaderRequestID = "X-Request-ID"

type contextKey string

const infoKey contextKey = "trace_info"

// Info is shared by every layer handling one request. Inner middleware fills
// in the user once it is authenticated.
type Info struct {
	RequestID string
	userID    atomic.Int64
}

func (i *Info) SetUser(id int64) { i.userID.Store(id) }
func (i *Info) UserID() int64    { return i.userID.Load() }

// FromContext returns the request's Info, or nil outside a traced request.
func FromContext(ctx context.Context) *Info {
	info, _ := ctx.Value(infoKey).(*Info)
	return info
}

// RequestID returns the current request id or "".
func RequestID(ctx context.Context) string {
	if info := FromContext(ctx); info != nil {
		return info.RequestID
	}
	return ""
}

// SetUser records the authenticated user on the current request, if traced.
func SetUser(ctx context.Context, id int64) {
	if info := FromContext(ctx); info != nil {
		info.SetUser(id)
	}
}

type Metrics struct {
	TotalRequests int64
	ServerErrors  int64
}

type Middleware struct {
	extractIP func(*http.Request) string
	total     atomic.Int64
	errors5xx atomic.Int64
}

func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware accepts a caller-supplied X-Request-ID when it is a UUID and
// generates one otherwise. The id is echoed in the response.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		info := &Info{RequestID: requestID}

		ctx := context.WithValue(r.Context(), infoKey, info)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldRequestID, requestID))
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.total.Add(1)
		if rw.statusCode >= 500 {
			m.errors5xx.Add(1)
		}

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		applog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP, info.UserID())
	})
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests: m.total.Load(),
		ServerErrors:  m.errors5xx.Load(),
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
