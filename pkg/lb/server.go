package lb

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/types"
)

// Enqueuer is the subset of queue.Queue the server depends on.
type Enqueuer interface {
	Enqueue(r *types.Request)
	Size() int
}

// Server is the Load Balancer's client-facing HTTP API. It accepts the
// same upload/download/delete shape the Aggregator answers, enqueues each
// request onto the Request Queue, and blocks for the Worker to forward it
// to whichever backend node gets selected.
type Server struct {
	queue      Enqueuer
	httpClient *http.Client
	mux        *http.ServeMux
}

// NewServer builds the Load Balancer HTTP API over queue.
func NewServer(queue Enqueuer) *Server {
	s := &Server{
		queue:      queue,
		httpClient: &http.Client{}, // no timeout: uploads/downloads may run long
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/files/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/files/{fileId}/download", s.handleDownload)
	s.mux.HandleFunc("DELETE /api/files/{fileId}", s.handleDelete)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.Handle("/health", metrics.HealthHandler())
	s.mux.Handle("/ready", metrics.ReadyHandler("registry"))
	s.mux.Handle("/live", metrics.LivenessHandler())

	metrics.RegisterComponent("api", true, "serving")

	return s
}

// Handler returns the http.Handler to mount on a listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get("X-File-Name")
	sizeHeader := r.Header.Get("X-File-Size")
	if name == "" || sizeHeader == "" {
		writeError(w, http.StatusBadRequest, "X-File-Name and X-File-Size headers are required")
		return
	}
	size, err := strconv.ParseInt(sizeHeader, 10, 64)
	if err != nil || size <= 0 {
		writeError(w, http.StatusBadRequest, "X-File-Size must be a positive decimal integer")
		return
	}

	headers := cloneHeader(r.Header)
	body := r.Body

	var upstreamStatus int
	var upstreamBody []byte
	var upstreamHeader http.Header

	req := &types.Request{
		ID:        uuid.NewString(),
		Operation: types.OperationUpload,
		SizeBytes: size,
		Arrival:   time.Now(),
		Forward: func(endpoint string) error {
			status, hdr, respBody, ferr := s.forward(http.MethodPost, endpoint, "/api/files/upload", headers, body)
			upstreamStatus, upstreamHeader, upstreamBody = status, hdr, respBody
			return ferr
		},
	}
	s.dispatch(w, req, &upstreamStatus, &upstreamHeader, &upstreamBody)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	headers := cloneHeader(r.Header)

	var upstreamStatus int
	var upstreamBody []byte
	var upstreamHeader http.Header

	req := &types.Request{
		ID:        uuid.NewString(),
		Operation: types.OperationDownload,
		Arrival:   time.Now(),
		Forward: func(endpoint string) error {
			status, hdr, respBody, ferr := s.forward(http.MethodGet, endpoint, "/api/files/"+fileID+"/download", headers, nil)
			upstreamStatus, upstreamHeader, upstreamBody = status, hdr, respBody
			return ferr
		},
	}
	s.dispatch(w, req, &upstreamStatus, &upstreamHeader, &upstreamBody)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	headers := cloneHeader(r.Header)

	var upstreamStatus int
	var upstreamBody []byte
	var upstreamHeader http.Header

	req := &types.Request{
		ID:        uuid.NewString(),
		Operation: types.OperationDownload,
		Arrival:   time.Now(),
		Forward: func(endpoint string) error {
			status, hdr, respBody, ferr := s.forward(http.MethodDelete, endpoint, "/api/files/"+fileID, headers, nil)
			upstreamStatus, upstreamHeader, upstreamBody = status, hdr, respBody
			return ferr
		},
	}
	s.dispatch(w, req, &upstreamStatus, &upstreamHeader, &upstreamBody)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "HEALTHY",
		"queue_size": s.queue.Size(),
	})
}

// dispatch enqueues req and blocks for the worker's outcome, then relays
// whatever the upstream node answered (or a synthesized error if the
// request never reached a node at all).
func (s *Server) dispatch(w http.ResponseWriter, req *types.Request, status *int, header *http.Header, body *[]byte) {
	done := make(chan error, 1)
	req.Done = done

	s.queue.Enqueue(req)

	err := <-done
	if err != nil {
		log.WithComponent("lb-server").Error().Err(err).Str("request_id", req.ID).Msg("request failed")
		writeError(w, http.StatusBadGateway, "failed to reach a storage node: "+err.Error())
		return
	}

	for k, vv := range *header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(*status)
	_, _ = w.Write(*body)
}

// forward performs the actual HTTP round trip to endpoint and buffers the
// response so it can be relayed once the caller's handler resumes.
func (s *Server) forward(method, endpoint, path string, header http.Header, body io.Reader) (int, http.Header, []byte, error) {
	upstreamReq, err := http.NewRequest(method, "http://"+endpoint+path, body)
	if err != nil {
		return 0, nil, nil, err
	}
	upstreamReq.Header = header

	resp, err := s.httpClient.Do(upstreamReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, data, nil
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithComponent("lb-server").Error().Err(err).Msg("failed to encode JSON response")
	}
}
