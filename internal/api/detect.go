package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/triage-ai/phishguard/internal/engine"
	"github.com/triage-ai/phishguard/internal/storage"
	"go.uber.org/zap"
)

// handleDetect implements POST /detect.
func (d *Dependencies) handleDetect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if d.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxBodyBytes)
	}

	var req DetectRequest
	if err := readJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResp{Detail: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	message, err := req.message()
	if err != nil {
		d.Logger.Debug("rejected detect request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
		return
	}

	verdict, err := d.Engine.Check(r.Context(), message)
	if err != nil {
		// Client went away or the deadline passed; there is no verdict to record.
		d.Logger.Warn("detect request cancelled", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "Request cancelled"})
		return
	}

	requestID := uuid.New().String()

	// Fire-and-forget: the writer never blocks the response.
	d.Writer.Write(storage.NewDetectionEvent(requestID, engine.SourceHTTP, message, verdict, time.Since(start)))

	w.Header().Set("X-Request-ID", requestID)
	writeJSON(w, http.StatusOK, DetectResponse{
		Safe:   verdict.Safe,
		Reason: verdict.Reason,
	})
}
