// Package admin serves the HTTP side of the whiteboard server: health,
// metrics and read-only board inspection.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"WhiteboardServer/internal/export"
	"WhiteboardServer/internal/state"
)

// Boards is the read side of the session store.
type Boards interface {
	Boards() []state.BoardSnapshot
	Board(boardID int) (state.BoardSnapshot, error)
}

type api struct {
	boards Boards
	log    *zap.Logger
}

// NewRouter builds the admin routes.
func NewRouter(boards Boards, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	a := &api{boards: boards, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/boards", func(r chi.Router) {
		r.Get("/", a.listBoards)
		r.Get("/{id}", a.getBoard)
		r.Get("/{id}/export.pdf", a.exportBoard)
	})
	return r
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("admin request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) listBoards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.boards.Boards())
}

func (a *api) getBoard(w http.ResponseWriter, r *http.Request) {
	b, ok := a.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *api) exportBoard(w http.ResponseWriter, r *http.Request) {
	b, ok := a.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.PDF(&buf, b); err != nil {
		a.log.Error("pdf export failed", zap.Int("board_id", b.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", fmt.Sprintf("board-%d.pdf", b.ID)))
	w.Write(buf.Bytes())
}

func (a *api) lookup(w http.ResponseWriter, r *http.Request) (state.BoardSnapshot, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "board id must be an integer")
		return state.BoardSnapshot{}, false
	}
	b, err := a.boards.Board(id)
	if errors.Is(err, state.ErrUnknownBoard) {
		writeError(w, http.StatusNotFound, err.Error())
		return state.BoardSnapshot{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return state.BoardSnapshot{}, false
	}
	return b, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve runs h on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("admin server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "admin server on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "admin shutdown")
		}
		return nil
	}
}
