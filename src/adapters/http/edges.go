package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func deleteMode(raw string) (domain.DeleteMode, bool) {
	switch raw {
	case "", string(domain.DeleteSoft):
		return domain.DeleteSoft, true
	case string(domain.DeleteHard):
		return domain.DeleteHard, true
	default:
		return "", false
	}
}

func (s *Server) CreateEdge(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	var request EdgeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	edge, err := s.edgeService.CreateEdge(r.Context(), projectID, request.toDomain())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) CreateEdgesBatch(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	var request BatchEdgeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if len(request.Edges) == 0 {
		http.Error(w, "edges is required and cannot be empty", http.StatusBadRequest)
		return
	}
	if len(request.Edges) > 500 {
		http.Error(w, "maximum 500 edges allowed per batch", http.StatusBadRequest)
		return
	}

	reqs := make([]domain.CreateEdgeRequest, 0, len(request.Edges))
	for _, dto := range request.Edges {
		reqs = append(reqs, dto.toDomain())
	}

	created, err := s.edgeService.CreateEdgesBatch(r.Context(), projectID, reqs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) GetEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid edge ID", http.StatusBadRequest)
		return
	}

	edge, err := s.edgeService.GetEdge(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, edge)
}

func (s *Server) ListEdges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := domain.EdgeFilters{
		ProjectID:        q.Get("project"),
		SourceType:       q.Get("sourceType"),
		SourceID:         q.Get("sourceId"),
		TargetType:       q.Get("targetType"),
		TargetID:         q.Get("targetId"),
		RelationshipType: q.Get("relationshipType"),
		IncludeInactive:  q.Get("includeInactive") == "true",
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := s.edgeService.GetEdges(r.Context(), filters, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) ListEdgesTouching(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	ref, ok := pathEntityRef(r)
	if !ok {
		http.Error(w, "Entity type and ID are required", http.StatusBadRequest)
		return
	}

	direction := entities.EdgeDirection(r.URL.Query().Get("direction"))
	switch direction {
	case "", entities.DirectionOutgoing, entities.DirectionIncoming, entities.DirectionBoth:
	default:
		http.Error(w, "direction must be outgoing, incoming or both", http.StatusBadRequest)
		return
	}

	edges, err := s.edgeService.ListEdgesTouching(r.Context(), ref, projectID, r.URL.Query().Get("relationshipType"), direction)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, edges)
}

func (s *Server) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid edge ID", http.StatusBadRequest)
		return
	}

	var fields domain.UpdateEdgeFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	edge, err := s.edgeService.UpdateEdge(r.Context(), id, fields)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, edge)
}

func (s *Server) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid edge ID", http.StatusBadRequest)
		return
	}

	mode, ok := deleteMode(r.URL.Query().Get("mode"))
	if !ok {
		http.Error(w, "mode must be 'soft' or 'hard'", http.StatusBadRequest)
		return
	}

	if err := s.edgeService.DeleteEdge(r.Context(), id, mode); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) DeleteEdgesBatch(w http.ResponseWriter, r *http.Request) {
	var request BatchDeleteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if len(request.EdgeIDs) == 0 {
		http.Error(w, "edge_ids is required and cannot be empty", http.StatusBadRequest)
		return
	}

	mode, ok := deleteMode(request.Mode)
	if !ok {
		http.Error(w, "mode must be 'soft' or 'hard'", http.StatusBadRequest)
		return
	}

	deleted, err := s.edgeService.DeleteEdgesBatch(r.Context(), request.EdgeIDs, mode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, BatchDeleteResponseDTO{Deleted: deleted})
}

func (s *Server) ValidateEdgeData(w http.ResponseWriter, r *http.Request) {
	var request ValidateEdgeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	valid, reason, err := s.edgeService.ValidateEdgeData(r.Context(), request.SourceType, request.TargetType, request.RelationshipType)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ValidateEdgeResponseDTO{Valid: valid, Reason: reason})
}
