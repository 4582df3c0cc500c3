// Package api implements the Aggregator's HTTP surface: file upload,
// download, delete, the audit-log ingestion endpoint, and liveness.
//
// Every handler follows the same shape the teacher's health server used —
// a plain http.ServeMux wrapping a struct of collaborators, JSON
// responses, explicit method checks — generalized here to the object
// storage pipeline instead of cluster health.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vaultmesh/vaultmesh/pkg/aggregator"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// AuditLogger is the subset of metastore.AuditSink the audit-ingestion
// endpoint depends on.
type AuditLogger interface {
	Log(entry types.AuditLogEntry)
}

// Server is the Aggregator's HTTP API.
type Server struct {
	pipeline *aggregator.Pipeline
	audit    AuditLogger
	cipher   string
	mux      *http.ServeMux
}

// NewServer builds the Aggregator HTTP API over pipeline. cipherTag is
// the cipher every upload without an explicit tag is stamped with.
func NewServer(pipeline *aggregator.Pipeline, audit AuditLogger, cipherTag string) *Server {
	s := &Server{pipeline: pipeline, audit: audit, cipher: cipherTag, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/files/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/files/{fileId}/download", s.handleDownload)
	s.mux.HandleFunc("DELETE /api/files/{fileId}", s.handleDelete)
	s.mux.HandleFunc("POST /api/system-logs", s.handleSystemLog)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.Handle("/health", metrics.HealthHandler())
	s.mux.Handle("/ready", metrics.ReadyHandler("metastore", "api"))
	s.mux.Handle("/live", metrics.LivenessHandler())

	metrics.RegisterComponent("api", true, "serving")

	return s
}

// Handler returns the http.Handler to mount on a listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the API on addr with the same timeout profile the
// teacher's health server used.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // uploads/downloads may legitimately run long
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get("X-File-Name")
	sizeHeader := r.Header.Get("X-File-Size")
	fileID := r.Header.Get("X-File-ID")

	if name == "" || sizeHeader == "" {
		writeError(w, http.StatusBadRequest, "X-File-Name and X-File-Size headers are required")
		return
	}
	size, err := strconv.ParseInt(sizeHeader, 10, 64)
	if err != nil || size <= 0 {
		writeError(w, http.StatusBadRequest, "X-File-Size must be a positive decimal integer")
		return
	}

	cipherTag := r.Header.Get("X-Cipher-Tag")
	if cipherTag == "" {
		cipherTag = s.cipher
	}

	id, err := s.pipeline.Upload(r.Context(), aggregator.UploadInput{
		Name:      name,
		Owner:     ownerFromRequest(r),
		CipherTag: cipherTag,
		FileID:    fileID,
		Size:      size,
		Data:      r.Body,
	})
	if err != nil {
		writeVMErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileId":   id,
		"status":   "queued",
		"fileName": name,
		"size":     size,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	w.Header().Set("Content-Type", "application/octet-stream")

	err := s.pipeline.Download(r.Context(), aggregator.DownloadInput{FileID: fileID}, w)
	if err != nil {
		writeVMErr(w, err)
		return
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	if err := s.pipeline.Delete(r.Context(), fileID); err != nil {
		writeVMErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleSystemLog(w http.ResponseWriter, r *http.Request) {
	field := func(name string) string {
		if v := r.FormValue(name); v != "" {
			return v
		}
		return r.URL.Query().Get(name)
	}

	eventType := field("event_type")
	description := field("description")
	if eventType == "" || description == "" {
		writeError(w, http.StatusBadRequest, "event_type and description are required")
		return
	}

	severity := field("severity")
	if severity == "" {
		severity = string(types.SeverityInfo)
	}
	serviceName := field("service_name")
	if serviceName == "" {
		serviceName = "load-balancer"
	}

	s.audit.Log(types.AuditLogEntry{
		Kind:        types.EventKind(eventType),
		OwnerID:     field("user_id"),
		Description: description,
		Severity:    types.Severity(severity),
		Component:   serviceName,
		Timestamp:   time.Now(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "HEALTHY",
	})
}

func ownerFromRequest(r *http.Request) string {
	if owner := r.Header.Get("X-Owner"); owner != "" {
		return owner
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithComponent("api").Error().Err(err).Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeVMErr maps a vmerr.Kind to the HTTP status code it represents at
// the API boundary, per the typed error taxonomy design.
func writeVMErr(w http.ResponseWriter, err error) {
	switch vmerr.KindOf(err) {
	case vmerr.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case vmerr.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case vmerr.KindResource:
		writeError(w, http.StatusServiceUnavailable, "No healthy nodes available")
	case vmerr.KindCancelled:
		writeError(w, http.StatusServiceUnavailable, "request interrupted")
	case vmerr.KindIntegrity, vmerr.KindCrypto:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case vmerr.KindTransport, vmerr.KindStorage:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.WithComponent("api").Error().Err(err).Msg("internal error serving request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
