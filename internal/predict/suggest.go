package predict

import (
	"context"
	"log/slog"
	"strings"
)

// The statement terminator as it appears in suggester answers and at the
// end of a token stream.
const (
	terminatorToken  = "';'"
	terminatorSuffix = `, ";"]`
)

// TokenSuggester predicts the tokens likely to follow a token stream.
type TokenSuggester struct {
	ex     Exchanger
	logger *slog.Logger
}

// NewTokenSuggester creates a next-token suggester client.
func NewTokenSuggester(ex Exchanger, logger *slog.Logger) *TokenSuggester {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenSuggester{ex: ex, logger: logger.With("predictor", "next_token")}
}

// Suggest returns the suggested tokens for stream, most likely first. When
// the top suggestion is a statement terminator and the current line has
// none, the terminator is appended to the stream and the suggester is asked
// again, so the answer describes what follows the implicit terminator. A
// stream that already ends with a terminator is never extended.
func (s *TokenSuggester) Suggest(ctx context.Context, stream string, lineTerminated bool) []SuggestedToken {
	if s.ex == nil || stream == "" {
		return nil
	}

	req := stream
	for {
		resp, ok := s.ex.Send(ctx, req)
		if !ok {
			s.logger.Debug("no answer")
			return nil
		}

		toks := ParseSuggestions(resp)
		if len(toks) == 0 || toks[0].Raw != terminatorToken || lineTerminated {
			return toks
		}

		next, extended := appendTerminator(req)
		if !extended {
			return toks
		}
		s.logger.Debug("retrying after implicit terminator")
		req = next
	}
}

// appendTerminator inserts a terminator before the closing bracket of a
// stream such as ["a", "b"]. It reports false when stream already ends with
// one or has no closing bracket.
func appendTerminator(stream string) (string, bool) {
	stream = strings.TrimSpace(stream)
	if strings.HasSuffix(stream, terminatorSuffix) {
		return stream, false
	}
	i := strings.LastIndexByte(stream, ']')
	if i < 0 {
		return stream, false
	}
	return stream[:i] + terminatorSuffix, true
}
