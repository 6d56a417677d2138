package analytics

import (
	"context"
	"fmt"

	"github.com/Rtoony/survey-data-system-sub001/src/domain"
)

// Penalty weights applied to the baseline score of 100.
const (
	penaltyCritical = 20
	penaltyError    = 10
	penaltyAnyOpen  = 2
	penaltySparse   = 20
	penaltyDense    = 10
	sparseThreshold = 0.05
	denseThreshold  = 0.8
)

// GraphSummarizer provides the project's density and edge counts.
type GraphSummarizer interface {
	RelationshipSummary(ctx context.Context, projectID string) (*domain.GraphSummary, error)
}

// ViolationCounter reports open violation counts grouped by severity.
type ViolationCounter interface {
	CountOpenBySeverity(ctx context.Context, projectID string) (map[string]int, error)
}

// SetViolationCounter reports open sync-check violation counts grouped by
// severity across all of a project's sets.
type SetViolationCounter interface {
	CountOpenBySeverityForProject(ctx context.Context, projectID string) (map[string]int, error)
}

// HealthService condenses a project's graph shape and open violations into a
// single penalty-weighted score with a letter grade.
type HealthService struct {
	graphs        GraphSummarizer
	violations    ViolationCounter
	setViolations SetViolationCounter
}

func NewHealthService(graphs GraphSummarizer, violations ViolationCounter, setViolations SetViolationCounter) *HealthService {
	return &HealthService{
		graphs:        graphs,
		violations:    violations,
		setViolations: setViolations,
	}
}

// ProjectHealth scores one project.
func (s *HealthService) ProjectHealth(ctx context.Context, projectID string) (*domain.HealthReport, error) {
	summary, err := s.graphs.RelationshipSummary(ctx, projectID)
	if err != nil {
		return nil, err
	}

	counts, err := s.violations.CountOpenBySeverity(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("HealthService.ProjectHealth - counting validation violations: %w", err)
	}

	setCounts, err := s.setViolations.CountOpenBySeverityForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("HealthService.ProjectHealth - counting set violations: %w", err)
	}

	merged := make(map[string]int, len(counts)+len(setCounts))
	for severity, n := range counts {
		merged[severity] += n
	}
	for severity, n := range setCounts {
		merged[severity] += n
	}

	report := computeHealth(projectID, summary.Density, summary.EdgeCount, merged)
	return &report, nil
}

// computeHealth is the pure scoring function. Each open violation costs 2
// points plus 20 for critical or 10 for error severity; degenerate density
// costs 20 when too sparse or 10 when too dense. The score is clamped to
// [0, 100]. Density penalties apply only when the project has at least one
// edge: an empty graph has density 0 and would otherwise always take the
// sparse penalty, grading a freshly created project 80 instead of 100.
func computeHealth(projectID string, density float64, edgeCount int, openBySeverity map[string]int) domain.HealthReport {
	report := domain.HealthReport{
		ProjectID: projectID,
		Density:   density,
	}

	score := 100
	for severity, n := range openBySeverity {
		report.OpenViolations += n
		score -= n * penaltyAnyOpen

		switch severity {
		case "critical":
			report.CriticalCount = n
			score -= n * penaltyCritical
		case "error":
			report.ErrorCount = n
			score -= n * penaltyError
		}
	}

	if edgeCount > 0 {
		if density < sparseThreshold {
			score -= penaltySparse
			report.Recommendations = append(report.Recommendations,
				"graph is very sparse, most entities are unconnected; review whether expected relationships were recorded")
		} else if density > denseThreshold {
			score -= penaltyDense
			report.Recommendations = append(report.Recommendations,
				"graph is very dense; review for redundant or auto-generated relationships")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	report.Score = score
	report.Grade = gradeFor(score)

	if report.CriticalCount > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("resolve %d critical violation(s) first", report.CriticalCount))
	}
	if report.ErrorCount > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d error-level violation(s) need attention", report.ErrorCount))
	}
	if report.OpenViolations > 0 && report.CriticalCount == 0 && report.ErrorCount == 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d open violation(s) to review", report.OpenViolations))
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, "no outstanding issues")
	}

	return report
}

func gradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
