package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"dockwatch/internal/docker"
	"dockwatch/internal/metrics"
)

// logBackfillLines bounds the backfill when a log client connects without a
// resumption identifier.
const logBackfillLines = 100

// metricsFrame is one push frame of the live metrics stream. Byte-denominated
// fields are megabytes; percentages carry two decimals.
type metricsFrame struct {
	CPU         float64 `json:"cpu"`
	Memory      float64 `json:"memory"`
	MemoryLimit float64 `json:"memory_limit"`
	NetRX       float64 `json:"net_rx"`
	NetTX       float64 `json:"net_tx"`
	DiskRead    float64 `json:"disk_read"`
	DiskWrite   float64 `json:"disk_write"`
	Timestamp   string  `json:"timestamp"`
}

// handleStatsStream pushes normalized metrics for one container, driven by
// the engine's own stats cadence. A container that is not running gets a
// single terminal error frame.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	id := streamTarget(r)
	if id == "" {
		http.NotFound(w, r)
		return
	}
	sse, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	session := uuid.NewString()
	log := s.log.With("session", session, "container", id)

	ctx := r.Context()
	inspect, err := s.runtime.InspectContainer(ctx, id)
	if err != nil {
		sse.Error("Container not found")
		return
	}
	if !inspect.State.Running {
		sse.Error("Container excluded")
		return
	}

	rc, err := s.runtime.StatsStream(ctx, id)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	defer rc.Close()
	log.Info("metrics stream open")
	defer log.Info("metrics stream closed")

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw docker.Stats
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		sample := metrics.Normalize(id, raw)
		frame := metricsFrame{
			CPU:         metrics.Round2(sample.CPUPercent),
			Memory:      metrics.ToMB(sample.MemUsedBytes),
			MemoryLimit: metrics.ToMB(sample.MemLimitBytes),
			NetRX:       metrics.ToMB(sample.NetRXBytes),
			NetTX:       metrics.ToMB(sample.NetTXBytes),
			DiskRead:    metrics.ToMB(sample.BlkReadBytes),
			DiskWrite:   metrics.ToMB(sample.BlkWriteBytes),
			Timestamp:   s.now().Format("15:04:05"),
		}
		if err := sse.JSON("", frame); err != nil {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if err := sc.Err(); err != nil {
		sse.Error(err.Error())
		return
	}
	sse.Error("Stats stream ended")
}

// handleLogStream tails container logs. A reconnecting client supplies the
// identifier of its last received frame (Last-Event-ID header, or last_id
// query param for cross-origin EventSource), interpreted as a fractional
// unix timestamp; logs are fetched since then. Without an identifier the
// stream backfills the last 100 lines.
//
// Every frame is stamped with the server's wall clock at emission, not the
// log line's own timestamp. A reconnect therefore resumes from "now" —
// a small gap is possible, a repeated backfill storm is not.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	id := streamTarget(r)
	if id == "" {
		http.NotFound(w, r)
		return
	}
	sse, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	session := uuid.NewString()
	log := s.log.With("session", session, "container", id)

	ctx := r.Context()
	since, tail := resumePoint(r)
	rc, err := s.runtime.Logs(ctx, id, since, tail, true)
	if err != nil {
		sse.Error(err.Error())
		return
	}
	defer rc.Close()
	log.Info("log stream open", "since", since, "tail", tail)
	defer log.Info("log stream closed")

	err = docker.ScanLogLines(rc, func(line string) error {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return sse.Event(s.frameID(), line)
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		sse.Error(err.Error())
		return
	}
	sse.Error("Log stream ended")
}

// frameID is the resumption identifier: the current wall-clock unix time
// with fractional seconds.
func (s *Server) frameID() string {
	now := s.now()
	return strconv.FormatFloat(float64(now.UnixNano())/1e9, 'f', 6, 64)
}

// resumePoint decides between since-timestamp resume and bounded backfill.
func resumePoint(r *http.Request) (since float64, tail int) {
	lastID := r.Header.Get("Last-Event-ID")
	if lastID == "" {
		lastID = r.URL.Query().Get("last_id")
	}
	if lastID != "" {
		if v, err := strconv.ParseFloat(lastID, 64); err == nil && v > 0 {
			return v, 0
		}
	}
	return 0, logBackfillLines
}
