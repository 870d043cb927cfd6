// Package completion defines the candidate model shared by the oracle client
// and the ranking engine.
package completion

import (
	"fmt"
	"slices"
	"strings"
)

// Kind classifies a completion candidate for the editor.
type Kind int

const (
	KindText Kind = iota
	KindFunction
	KindModule
	KindVariable
	KindClass
	KindKeyword
	KindUnit
)

var kindNames = map[Kind]string{
	KindText:     "text",
	KindFunction: "function",
	KindModule:   "module",
	KindVariable: "variable",
	KindClass:    "class",
	KindKeyword:  "keyword",
	KindUnit:     "unit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown completion kind %q", b)
}

// KindForClass maps an oracle symbol class to a Kind. Unknown classes
// (including "other") report false and must be dropped.
func KindForClass(class string) (Kind, bool) {
	switch class {
	case "func":
		return KindFunction, true
	case "package":
		return KindModule, true
	case "var", "const":
		return KindVariable, true
	case "type":
		return KindClass, true
	default:
		return KindText, false
	}
}

// Origin tells forwarded oracle candidates apart from candidates the
// engine synthesized (keywords, literals, blocks).
type Origin int

const (
	Forwarded Origin = iota
	Synthesized
)

func (o Origin) String() string {
	if o == Synthesized {
		return "synthesized"
	}
	return "forwarded"
}

// MarshalText encodes the origin by name.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an origin name.
func (o *Origin) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forwarded":
		*o = Forwarded
	case "synthesized":
		*o = Synthesized
	default:
		return fmt.Errorf("unknown origin %q", b)
	}
	return nil
}

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// Rank is the composite sort key: the tier of the suggested token that
// placed the candidate, then the position within that tier.
type Rank struct {
	Tier    int `json:"tier"`
	SubRank int `json:"subRank"`
}

// SortText renders the rank as a string that sorts lexically in rank order.
func (r Rank) SortText() string {
	return fmt.Sprintf("%04d%04d", r.Tier, r.SubRank)
}

// Less orders ranks by tier, then sub-rank.
func (r Rank) Less(o Rank) bool {
	if r.Tier != o.Tier {
		return r.Tier < o.Tier
	}
	return r.SubRank < o.SubRank
}

// Candidate is a single completion suggestion.
type Candidate struct {
	Label           string     `json:"label"`
	Kind            Kind       `json:"kind"`
	Detail          string     `json:"detail,omitempty"`
	InsertText      string     `json:"insertText,omitempty"`
	SortText        string     `json:"sortText,omitempty"`
	AdditionalEdits []TextEdit `json:"additionalTextEdits,omitempty"`
	Origin          Origin     `json:"origin"`
	Rank            *Rank      `json:"rank,omitempty"`
}

// Keyword synthesizes a keyword candidate inserting text.
func Keyword(label, insertText string) Candidate {
	return Candidate{
		Label:      label,
		Kind:       KindKeyword,
		InsertText: insertText,
		Origin:     Synthesized,
	}
}

// WithRank returns a copy of c carrying rank r. The receiver is not modified,
// so the same candidate can be ranked again from scratch.
func (c Candidate) WithRank(r Rank) Candidate {
	c.Rank = &r
	c.SortText = r.SortText()
	c.AdditionalEdits = append([]TextEdit(nil), c.AdditionalEdits...)
	return c
}

// Labels returns the labels of cs in order.
func Labels(cs []Candidate) []string {
	labels := make([]string, len(cs))
	for i, c := range cs {
		labels[i] = c.Label
	}
	return labels
}

// SortByLabels returns the candidates whose label appears in order, ordered
// by their position in order. Candidates not listed are dropped.
func SortByLabels(cs []Candidate, order []string) []Candidate {
	pos := make(map[string]int, len(order))
	for i, label := range order {
		label = strings.TrimSpace(label)
		if _, seen := pos[label]; !seen {
			pos[label] = i
		}
	}

	byPos := make(map[int]Candidate, len(cs))
	var idx []int
	for _, c := range cs {
		p, ok := pos[c.Label]
		if !ok {
			continue
		}
		if _, dup := byPos[p]; dup {
			continue
		}
		byPos[p] = c
		idx = append(idx, p)
	}

	slices.Sort(idx)
	out := make([]Candidate, 0, len(idx))
	for _, p := range idx {
		out = append(out, byPos[p])
	}
	return out
}
