package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pkg/utils"
)

const maxBodyBytes = 1 << 20

// NeighborResponse 是一条相似物品。
type NeighborResponse struct {
	ItemID string  `json:"item_id"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

// SimilarResponse 是 GET /v1/items/{itemID}/similar 的响应。
type SimilarResponse struct {
	ItemID    string             `json:"item_id"`
	Neighbors []NeighborResponse `json:"neighbors"`
}

// RecommendRequest 是 POST /v1/recommend 的请求体；item_id 与 history 至少给出一个。
type RecommendRequest struct {
	UserID  string             `json:"user_id" validate:"max=256"`
	Scene   string             `json:"scene" validate:"max=64"`
	ItemID  string             `json:"item_id" validate:"required_without=History,max=256"`
	History map[string]float64 `json:"history" validate:"required_without=ItemID,max=1000"`
	Top     int                `json:"top" validate:"gte=0,lte=200"`
}

// ItemResponse 是 Pipeline 输出的一个物品。
type ItemResponse struct {
	ID     string                 `json:"id"`
	Title  string                 `json:"title"`
	Score  float64                `json:"score"`
	Labels map[string]utils.Label `json:"labels,omitempty"`
}

// RecommendResponse 是 POST /v1/recommend 的响应。
type RecommendResponse struct {
	Items []ItemResponse `json:"items"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	stats := s.deps.Engine.Stats()
	status := http.StatusOK
	state := "ok"
	if !stats.Trained {
		status = http.StatusServiceUnavailable
		state = "training"
	}
	s.writeJSON(w, status, map[string]any{
		"status":  state,
		"users":   stats.Users,
		"items":   stats.Items,
		"trained": stats.Trained,
	})
}

func (s *Server) similar(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 200 {
			s.writeError(w, r, http.StatusBadRequest, "top must be an integer in [0, 200]")
			return
		}
		top = n
	}

	neighbors, found, err := s.deps.Engine.Neighbors(itemID, top)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveNeighbors(found)
	}
	if !found {
		s.writeError(w, r, http.StatusNotFound, "item not found")
		return
	}

	resp := SimilarResponse{ItemID: itemID, Neighbors: make([]NeighborResponse, len(neighbors))}
	for i, nb := range neighbors {
		resp.Neighbors[i] = NeighborResponse{ItemID: nb.ItemID, Label: nb.Label, Score: nb.Score}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline == nil {
		s.writeError(w, r, http.StatusNotImplemented, "no pipeline configured")
		return
	}

	var req RecommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	rctx := &core.RecommendContext{
		UserID:  req.UserID,
		Scene:   req.Scene,
		History: req.History,
		Params:  map[string]any{},
	}
	if req.ItemID != "" {
		rctx.Params[core.ParamItemID] = req.ItemID
	}

	items, err := s.deps.Pipeline.Run(r.Context(), rctx, nil)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if req.Top > 0 && len(items) > req.Top {
		items = items[:req.Top]
	}

	resp := RecommendResponse{Items: make([]ItemResponse, len(items))}
	for i, it := range items {
		resp.Items[i] = ItemResponse{ID: it.ID, Title: it.Title, Score: it.Score, Labels: it.Labels}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsNotTrained(err):
		s.writeError(w, r, http.StatusServiceUnavailable, "engine not trained")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusServiceUnavailable, "request canceled")
	default:
		s.deps.Logger.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("request failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg, RequestID: chimiddleware.GetReqID(r.Context())})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.deps.Logger.Debug().Err(err).Msg("write response")
	}
}
