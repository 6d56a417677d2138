package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
)

func (s *Server) CreateRule(w http.ResponseWriter, r *http.Request) {
	var request RuleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rule, err := s.ruleEngine.CreateRule(r.Context(), request.toDomain())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) GetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid rule ID", http.StatusBadRequest)
		return
	}

	rule, err := s.ruleEngine.GetRule(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, rule)
}

func (s *Server) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid rule ID", http.StatusBadRequest)
		return
	}

	if err := s.ruleEngine.DeactivateRule(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ruleKindsParam parses the optional comma-separated kinds query parameter.
func ruleKindsParam(raw string) ([]entities.RuleKind, bool) {
	if raw == "" {
		return nil, true
	}

	var kinds []entities.RuleKind
	for _, part := range strings.Split(raw, ",") {
		kind := entities.RuleKind(strings.TrimSpace(part))
		if !kind.IsValid() {
			return nil, false
		}
		kinds = append(kinds, kind)
	}
	return kinds, true
}

func (s *Server) ValidateProject(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	kinds, ok := ruleKindsParam(r.URL.Query().Get("kinds"))
	if !ok {
		http.Error(w, "unknown rule kind in 'kinds'", http.StatusBadRequest)
		return
	}

	summary, err := s.ruleEngine.ValidateProject(r.Context(), projectID, kinds)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")

	ref, ok := pathEntityRef(r)
	if !ok {
		http.Error(w, "Entity type and ID are required", http.StatusBadRequest)
		return
	}

	result, err := s.ruleEngine.CheckEntityCompliance(r.Context(), projectID, ref)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) ListViolations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ruleID, _ := strconv.ParseInt(q.Get("ruleId"), 10, 64)
	filters := repositories.ViolationFilters{
		ProjectID: q.Get("project"),
		RuleID:    ruleID,
		Status:    q.Get("status"),
		Severity:  q.Get("severity"),
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	violations, err := s.ruleEngine.ListViolations(r.Context(), filters, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, violations)
}

func (s *Server) ResolveViolation(w http.ResponseWriter, r *http.Request) {
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

	violation, err := s.ruleEngine.ResolveViolation(r.Context(), publicID, request.ResolvedBy, request.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, violation)
}
