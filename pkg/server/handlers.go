package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"

	"github.com/srodi/procscore/pkg/engine"
	"github.com/srodi/procscore/pkg/facts"
	"github.com/srodi/procscore/pkg/report"
	"github.com/srodi/procscore/pkg/types"
)

const (
	headerSnapshotID = "X-Snapshot-ID"
	headerTotalRows  = "X-Total-Rows"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// report takes a fresh snapshot. With a limit the snapshot is kept so later pages can be
// read from it through /report/{id}.
func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := s.scanner.Scan()
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("scan failed")
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrResourceExhausted) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	if limit > 0 {
		s.snapshots.Set(snap.ID, snap, ttlcache.DefaultTTL)
	}
	s.writePage(w, r, snap, 0, limit)
}

func (s *Server) reportPage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item := s.snapshots.Get(id)
	if item == nil {
		http.Error(w, "snapshot not found or expired", http.StatusNotFound)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writePage(w, r, item.Value(), offset, limit)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, snap *types.Snapshot, offset, limit int) {
	rows := report.Window(snap.Samples, offset, limit)
	w.Header().Set(headerSnapshotID, snap.ID)
	w.Header().Set(headerTotalRows, strconv.Itoa(len(snap.Samples)))

	var err error
	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		err = report.WriteJSON(w, report.Page{
			SnapshotID: snap.ID,
			TakenAt:    snap.TakenAt.UTC().Format(time.RFC3339Nano),
			Offset:     offset,
			Total:      len(snap.Samples),
			Skipped:    snap.Skipped,
			Samples:    rows,
		})
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err = report.WriteTable(w, rows, report.TableOptions{}); err == nil {
			_, err = io.WriteString(w, report.Footnote)
		}
	}
	if err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("writing report")
	}
}

func (s *Server) readFacts(w http.ResponseWriter, r *http.Request) {
	if err := s.facts.Open(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	defer s.facts.Release()

	banner, err := s.facts.Read(r.Context())
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("reading host facts")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, banner)
}

func (s *Server) writeFactsMask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 32))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mask, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		http.Error(w, "mask must be an integer", http.StatusBadRequest)
		return
	}
	if err := s.facts.Write(mask); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, facts.ErrInvalidMask) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}
