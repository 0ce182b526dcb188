package server

import (
	"io"
	"net/http"

	"github.com/claude/mapty/internal/importer"
	"github.com/claude/mapty/internal/tracker"
)

// maxImportBytes bounds an uploaded export.
const maxImportBytes = 10 << 20

// importResponse reports the outcome of an uploaded export.
type importResponse struct {
	tracker.ImportResult
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

// handleImport merges an uploaded export into the live collection.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, importResponse{Error: err.Error()})
		return
	}
	workouts, rejected, err := importer.ParseExport(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, importResponse{Error: err.Error()})
		return
	}
	for _, rj := range rejected {
		s.log.Warn("rejected uploaded workout", "index", rj.Index, "error", rj.Err)
	}

	s.mu.Lock()
	res, err := s.ctrl.Import(r.Context(), workouts)
	s.mu.Unlock()

	resp := importResponse{ImportResult: res, Rejected: len(rejected)}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	s.log.Info("export uploaded",
		"inserted", res.Inserted,
		"duplicated", res.Duplicated,
		"rejected", len(rejected),
		"user", loginFromContext(r),
	)
	writeJSON(w, http.StatusOK, resp)
}
