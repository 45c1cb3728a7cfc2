package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meysamhadeli/astview/code_analyzer/models"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/meysamhadeli/astview/layout"
	"github.com/meysamhadeli/astview/renderer"
	"github.com/meysamhadeli/astview/snapshot_store"
	"github.com/meysamhadeli/astview/workspace"
)

type textRequest struct {
	Text string `json:"text"`
}

type resultResponse struct {
	Hierarchy *hierarchy.Node `json:"hierarchy"`
	Error     string          `json:"error,omitempty"`
	Line      int             `json:"line,omitempty"`
	Column    int             `json:"column,omitempty"`
	Retained  bool            `json:"retained"`
	Nodes     int             `json:"nodes"`
}

type zoomRequest struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// clickRequest hits either a viewport point or, when Index is set, a node by pre-order index.
type clickRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Index *int    `json:"index,omitempty"`
}

type clickResponse struct {
	Hit   bool            `json:"hit"`
	Index int             `json:"index,omitempty"`
	Label string          `json:"label,omitempty"`
	Span  *workspace.Span `json:"span,omitempty"`
}

type transformResponse struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	K         float64 `json:"k"`
	Transform string  `json:"transform"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, textRequest{Text: s.session.Text()})
}

func (s *Server) handlePutText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.edits.Lock()
	result := s.session.SetText(r.Context(), req.Text)
	s.edits.Unlock()

	writeJSON(w, http.StatusOK, toResultResponse(result))
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toResultResponse(s.session.Result()))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := s.session.Renderer().WriteSVG(w); err != nil {
		s.logger.Error("failed to write svg", "error", err)
	}
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Factor <= 0 {
		jsonErr(w, "factor must be positive", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, toTransformResponse(s.session.Renderer().Zoom(req.Factor, req.X, req.Y)))
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, toTransformResponse(s.session.Renderer().Pan(req.DX, req.DY)))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Renderer().ResetView()
	writeJSON(w, http.StatusOK, toTransformResponse(s.session.Renderer().Transform()))
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		node renderer.NodeShape
		hit  bool
	)
	if req.Index != nil {
		node, hit = s.session.Select(*req.Index)
	} else {
		node, hit = s.session.Click(req.X, req.Y)
	}
	if !hit {
		writeJSON(w, http.StatusOK, clickResponse{})
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{
		Hit:   true,
		Index: node.Index,
		Label: node.Label.Text,
		Span:  &workspace.Span{Start: node.Start, End: node.End},
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshots())
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := s.session.SaveSnapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}
	if err := s.session.DeleteSnapshot(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	s.edits.Lock()
	result, err := s.session.RestoreSnapshot(r.Context(), id)
	s.edits.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := toResultResponse(result)
	writeJSON(w, http.StatusOK, struct {
		Text string `json:"text"`
		resultResponse
	}{Text: s.session.Text(), resultResponse: resp})
}

func snapshotID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		jsonErr(w, "invalid snapshot id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var failure *models.ParseFailure
	switch {
	case errors.Is(err, snapshot_store.ErrNotFound):
		jsonErr(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &failure), errors.Is(err, hierarchy.ErrDepthExceeded):
		jsonErr(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, workspace.ErrNoHistory):
		jsonErr(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Error("request failed", "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
	}
}

func toResultResponse(result workspace.Result) resultResponse {
	resp := resultResponse{
		Hierarchy: result.Hierarchy,
		Retained:  result.Retained,
		Nodes:     hierarchy.Count(result.Hierarchy),
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
		var failure *models.ParseFailure
		if errors.As(result.Err, &failure) {
			resp.Line = failure.Line
			resp.Column = failure.Column
		}
	}
	return resp
}

func toTransformResponse(t layout.Transform) transformResponse {
	return transformResponse{X: t.X, Y: t.Y, K: t.K, Transform: t.String()}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
