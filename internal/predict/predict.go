// Package predict talks to the three learned predictors: the relevance
// sorter, the next-token suggester and the identifier guesser. Each one is a
// persistent process reached through an exchange channel; every client
// degrades to a no-op when its predictor does not answer.
package predict

import (
	"context"
	"strconv"
	"strings"
)

// Exchanger sends one request line and waits for its response line. The
// boolean is false when the predictor did not answer.
type Exchanger interface {
	Send(ctx context.Context, request string) (string, bool)
}

// Token classes emitted by the next-token suggester.
const (
	ClassIdent     = "ID_S"
	ClassLitPrefix = "ID_LIT_"
	ClassBool      = "ID_LIT_BOOL"
	identPrefix    = "ID_"
)

// SuggestedToken is one entry of a predictor response.
type SuggestedToken struct {
	Raw        string  `json:"raw"`
	Confidence float64 `json:"confidence"`
}

// Token returns the token with any surrounding single quotes removed.
func (t SuggestedToken) Token() string {
	return unquote(t.Raw)
}

// IsClass reports whether the token is a sentinel class (ID_S, ID_LIT_*)
// rather than a literal token.
func (t SuggestedToken) IsClass() bool {
	return strings.HasPrefix(t.Token(), identPrefix)
}

// LiteralType returns the lower-cased TYPE of an ID_LIT_<TYPE> token.
func (t SuggestedToken) LiteralType() (string, bool) {
	tok := t.Token()
	if !strings.HasPrefix(tok, ClassLitPrefix) {
		return "", false
	}
	typ := strings.ToLower(tok[len(ClassLitPrefix):])
	return typ, typ != ""
}

// ParseSuggestions parses a space-separated list of token@confidence pairs.
// Entries without a parsable confidence are skipped.
func ParseSuggestions(line string) []SuggestedToken {
	var toks []SuggestedToken
	for _, field := range strings.Fields(line) {
		raw, conf, ok := splitPair(field)
		if !ok {
			continue
		}
		toks = append(toks, SuggestedToken{Raw: raw, Confidence: conf})
	}
	return toks
}

// splitPair splits "value@0.5" on the last '@', so quoted tokens such as
// '@' survive.
func splitPair(field string) (string, float64, bool) {
	i := strings.LastIndexByte(field, '@')
	if i <= 0 {
		return "", 0, false
	}
	conf, err := strconv.ParseFloat(field[i+1:], 64)
	if err != nil {
		return "", 0, false
	}
	return field[:i], conf, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
