package predict

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/randalmurphy/smart-complete/internal/completion"
)

// DefaultGuessThreshold is the score a candidate must exceed to be kept.
const DefaultGuessThreshold = 0.4

// IdentGuesser predicts which existing identifiers fit the token stream.
type IdentGuesser struct {
	ex        Exchanger
	threshold float64
	logger    *slog.Logger
}

// NewIdentGuesser creates an identifier guesser client. A non-positive
// threshold selects DefaultGuessThreshold.
func NewIdentGuesser(ex Exchanger, threshold float64, logger *slog.Logger) *IdentGuesser {
	if threshold <= 0 {
		threshold = DefaultGuessThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentGuesser{ex: ex, threshold: threshold, logger: logger.With("predictor", "ident_guesser")}
}

// Guess scores cands against the guessed identifiers for stream. A candidate
// scores the summed confidence of every guess its label contains
// (case-insensitively). Candidates scoring above the threshold are returned
// in ascending score order. The boolean is false when the guesser gave no
// usable answer or nothing passed the threshold.
func (g *IdentGuesser) Guess(ctx context.Context, stream string, cands []completion.Candidate) ([]completion.Candidate, bool) {
	if g.ex == nil || stream == "" || len(cands) == 0 {
		return nil, false
	}

	resp, ok := g.ex.Send(ctx, stream)
	if !ok {
		g.logger.Debug("no answer")
		return nil, false
	}

	guesses := ParseSuggestions(resp)
	if len(guesses) == 0 {
		return nil, false
	}

	type scored struct {
		cand  completion.Candidate
		score float64
	}

	var kept []scored
	for _, c := range cands {
		label := strings.ToLower(c.Label)
		var score float64
		for _, guess := range guesses {
			ident := strings.ToLower(guess.Token())
			if ident != "" && strings.Contains(label, ident) {
				score += guess.Confidence
			}
		}
		if score > g.threshold {
			kept = append(kept, scored{cand: c, score: score})
		}
	}

	if len(kept) == 0 {
		return nil, false
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score < kept[j].score
	})

	out := make([]completion.Candidate, len(kept))
	for i, k := range kept {
		out[i] = k.cand
	}
	return out, true
}
