package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/himanishpuri/TrueLossless/pkg/logger"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Root endpoint
	mux.HandleFunc("/", s.handleRoot)

	// Health endpoints
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health/metrics", s.getOnly(s.handleMetrics))

	// Verification endpoints
	mux.HandleFunc("/api/analyze", s.postOnly(s.handleAnalyze))
	mux.HandleFunc("/api/preview", s.postOnly(s.handlePreview))
	mux.HandleFunc("/api/spectrogram", s.postOnly(s.handleSpectrogram))

	// Search ranking
	mux.HandleFunc("/api/rank", s.postOnly(s.handleRank))

	mux.HandleFunc("/api/history", s.getOnly(s.handleHistory))

	return loggingMiddleware(corsMiddleware(s.config.AllowedOrigins)(mux))
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Expose-Headers", "X-Preview-Start, X-Preview-Duration, Content-Disposition")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs every request at DEBUG and slow or failed ones at INFO
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		log := logger.GetLogger()
		log.Debugf("%s %s from %s", r.Method, r.URL.Path, getClientIP(r))

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start).Round(time.Millisecond)
		if wrapped.statusCode >= 400 || elapsed > 5*time.Second {
			log.Infof("%s %s -> %d (%s)", r.Method, r.URL.Path, wrapped.statusCode, elapsed)
		} else {
			log.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, wrapped.statusCode, elapsed)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := ":" + strings.TrimPrefix(s.config.Port, ":")
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("🚀 TrueLossless server starting on %s", addr)
	if s.config.HistoryEnabled {
		s.log.Infof("   Database: %s", s.config.DBPath)
	} else {
		s.log.Infof("   History: disabled")
	}
	s.log.Infof("   Temp Dir: %s", s.config.TempDir)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health                  - Health check")
	s.log.Infof("   GET    /api/health/metrics      - Verdict totals")
	s.log.Infof("   POST   /api/analyze             - Verify an uploaded file")
	s.log.Infof("   POST   /api/preview             - Cut a preview clip from an uploaded file")
	s.log.Infof("   POST   /api/spectrogram         - Render a spectrogram PNG")
	s.log.Infof("   POST   /api/rank                - Rank search results against a reference")
	s.log.Infof("   GET    /api/history             - Recent verdicts and picks")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
