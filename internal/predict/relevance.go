package predict

import (
	"context"
	"log/slog"
	"strings"

	"github.com/randalmurphy/smart-complete/internal/completion"
)

// RelevanceSorter reorders candidates by semantic distance to the relevant
// identifiers.
type RelevanceSorter struct {
	ex     Exchanger
	logger *slog.Logger
}

// NewRelevanceSorter creates a relevance sorter client.
func NewRelevanceSorter(ex Exchanger, logger *slog.Logger) *RelevanceSorter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelevanceSorter{ex: ex, logger: logger.With("predictor", "relevance")}
}

// Sort returns cands reordered and filtered by the sorter. Without relevant
// identifiers, or when the sorter does not answer, cands is returned as is.
func (s *RelevanceSorter) Sort(ctx context.Context, idents []string, cands []completion.Candidate) []completion.Candidate {
	if len(idents) == 0 || len(cands) == 0 || s.ex == nil {
		return cands
	}

	joined := strings.Join(idents, "@")

	kept := make([]completion.Candidate, 0, len(cands))
	fields := []string{joined}
	for _, c := range cands {
		if c.Label == joined {
			continue
		}
		kept = append(kept, c)
		fields = append(fields, c.Label)
	}

	resp, ok := s.ex.Send(ctx, strings.Join(fields, ","))
	resp = strings.TrimSpace(resp)
	if !ok || resp == "" {
		s.logger.Debug("no answer, keeping oracle order")
		return cands
	}

	sorted := completion.SortByLabels(kept, strings.Split(resp, ","))
	if len(sorted) == 0 {
		s.logger.Debug("answer matched no candidate", "response", resp)
		return cands
	}
	return sorted
}
