package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

func (s *Server) CreateSet(w http.ResponseWriter, r *http.Request) {
	var request SetRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	set, err := s.setService.CreateSet(r.Context(), request.toDomain())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, set)
}

func (s *Server) ListSets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := repositories.SetFilters{
		ProjectID:  q.Get("project"),
		Category:   q.Get("category"),
		ActiveOnly: q.Get("includeInactive") != "true",
	}
	if raw := q.Get("isTemplate"); raw != "" {
		isTemplate := raw == "true"
		filters.IsTemplate = &isTemplate
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := s.setService.ListSets(r.Context(), filters, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) GetSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	set, err := s.setService.GetSet(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, set)
}

func (s *Server) DeleteSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	mode, ok := deleteMode(r.URL.Query().Get("mode"))
	if !ok {
		http.Error(w, "mode must be 'soft' or 'hard'", http.StatusBadRequest)
		return
	}

	if err := s.setService.DeleteSet(r.Context(), id, mode); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddMember(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	var request MemberRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	member, err := s.setService.AddMember(r.Context(), request.toDomain(setID))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, member)
}

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	members, err := s.setService.ListMembers(r.Context(), setID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, members)
}

func (s *Server) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	if err := s.setService.RemoveMember(r.Context(), memberID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddSetRule(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	var request SetRuleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rule, err := s.setService.AddRule(r.Context(), request.toDomain(setID))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) ListSetRules(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	rules, err := s.setService.ListRules(r.Context(), setID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, rules)
}

func (s *Server) RunAllChecks(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	summary, err := s.syncChecker.RunAllChecks(r.Context(), setID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) ListSetViolations(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid set ID", http.StatusBadRequest)
		return
	}

	violations, err := s.setService.ListViolations(r.Context(), setID, r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, violations)
}

func (s *Server) ResolveSetViolation(w http.ResponseWriter, r *http.Request) {
	publicID := r.PathValue("publicId")
	if publicID == "" {
		http.Error(w, "Violation ID is required", http.StatusBadRequest)
		return
	}

	var request ResolveRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.ResolvedBy == "" {
		http.Error(w, "resolved_by is required", http.StatusBadRequest)
		return
	}

	violation, err := s.setService.ResolveViolation(r.Context(), publicID, request.ResolvedBy, request.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, violation)
}

func (s *Server) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid template ID", http.StatusBadRequest)
		return
	}

	var request ApplyTemplateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.ProjectID == "" {
		http.Error(w, "project_id is required", http.StatusBadRequest)
		return
	}

	set, err := s.setService.ApplyTemplate(r.Context(), templateID, request.ProjectID, request.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, set)
}

func (s *Server) GetProjectHealth(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	report, err := s.healthService.ProjectHealth(r.Context(), projectID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}
