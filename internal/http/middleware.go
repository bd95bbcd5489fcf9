package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/mmk-admin-console/internal/adapters/flash"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/guard"
	"github.com/target/mmk-admin-console/internal/ports"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: "internal",
						Err:     apperrors.Unknown("Internal Server Error"),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID propagates X-Request-ID, generating one when the caller sent none.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

// FlashScope gives every request its own flash.Scope. Whatever the services
// navigate to or notify while handling the request is written back as
// X-Console-Redirect and X-Console-Notice headers.
func FlashScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, scope := flash.WithScope(r.Context())
			fw := &flashWriter{ResponseWriter: w, scope: scope}
			next.ServeHTTP(fw, r.WithContext(ctx))
		})
	}
}

type flashWriter struct {
	http.ResponseWriter
	scope       *flash.Scope
	wroteHeader bool
}

func (w *flashWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		applyFlash(w.Header(), w.scope)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *flashWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *flashWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// redirectResponse is the body of a guard redirect.
type redirectResponse struct {
	Redirect string        `json:"redirect"`
	Guard    string        `json:"guard,omitempty"`
	Notice   *ports.Notice `json:"notice,omitempty"`
}

// Guarded runs the navigation guards before a console page. A redirect is
// answered with 303 and the target in Location; the page is not rendered.
func Guarded(chain *guard.Chain) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := chain.Run(r.Context(), guard.NewNavigation(r.URL.Path))
			if d.Allow {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Location", d.Redirect)
			WriteJSON(w, http.StatusSeeOther, redirectResponse{
				Redirect: d.Redirect,
				Guard:    d.Guard,
				Notice:   d.Notice,
			})
		})
	}
}

// requireSession rejects API calls made without an authenticated session.
func requireSession(session interface{ IsAuthenticated() bool }) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !session.IsAuthenticated() {
				writeAppError(w, apperrors.Unauthorized("Not signed in"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
