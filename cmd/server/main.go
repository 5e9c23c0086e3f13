package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stockbars/internal/aggregate"
	"stockbars/internal/app"
	"stockbars/internal/bars"
	"stockbars/internal/config"
	"stockbars/internal/fetcher"
	"stockbars/internal/logger"
)

type barsFetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) (*fetcher.Result, error)
}

type barsResponse struct {
	Symbol  string            `json:"symbol"`
	Path    string            `json:"path"`
	Added   int               `json:"added"`
	Summary aggregate.Summary `json:"summary"`
	Records []bars.Record     `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(cfg, log, app.Options{QueryCache: true})
	if err != nil {
		log.Fatal("build app", zap.Error(err))
	}
	defer a.Close()

	timeout := time.Duration(cfg.Provider.RequestTimeoutSec) * time.Second
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(log, limitBody(newMux(a.Fetcher, timeout, log))))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("data_dir", cfg.DataDir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("server stopped")
}

func newMux(f barsFetcher, timeout time.Duration, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/bars", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handleGetBars(w, r, f, timeout, log)
	})
	return mux
}

func handleGetBars(w http.ResponseWriter, r *http.Request, f barsFetcher, timeout time.Duration, log *zap.Logger) {
	q := r.URL.Query()
	req := fetcher.Request{Symbol: strings.TrimSpace(q.Get("symbol"))}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	if v := q.Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "months must be a positive integer")
			return
		}
		req.Months = n
	}
	if v := q.Get("date_range"); v != "" {
		start, end, err := fetcher.ParseDateRange(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Start, req.End = start, end
	}

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := f.Fetch(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("fetch bars", zap.String("symbol", req.Symbol), zap.Int("status", status), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}

	records := aggregate.Between(res.Records, res.Start, res.End)
	resp := barsResponse{
		Symbol:  res.Symbol,
		Path:    res.Path,
		Added:   res.Added,
		Summary: aggregate.Summarize(records),
		Records: records,
	}
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fetcher.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, bars.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, bars.ErrProvider), errors.Is(err, bars.ErrMalformed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client accepts gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request bodies; the API takes none.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 16
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func recoverPanic(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
