package storage

import (
	"regexp"
	"slices"
	"strings"

	"github.com/llxisdsh/pb"
)

var (
	separatorPattern = regexp.MustCompile(`[_\.\-\s/,()]+`)
	camelPattern     = regexp.MustCompile(`([a-z])([A-Z])`)
)

// tokenize splits a location name into lowercase search tokens.
// Handles separators and camelCase ("ComputerSciences" -> "computer", "sciences").
func tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	add(text)
	for _, part := range separatorPattern.Split(text, -1) {
		add(part)
		for _, sub := range strings.Fields(camelPattern.ReplaceAllString(part, "$1 $2")) {
			add(sub)
		}
	}
	return tokens
}

// locationIndex is an inverted index from token to location names.
type locationIndex struct {
	tokens *pb.MapOf[string, []string]
	names  *pb.MapOf[string, struct{}]
}

func newLocationIndex() *locationIndex {
	return &locationIndex{
		tokens: pb.NewMapOf[string, []string](),
		names:  pb.NewMapOf[string, struct{}](),
	}
}

func (ix *locationIndex) add(name string) {
	if _, loaded := ix.names.LoadOrStore(name, struct{}{}); loaded {
		return
	}
	for _, tok := range tokenize(name) {
		ix.tokens.Compute(tok, func(old []string, _ bool) ([]string, pb.ComputeOp) {
			return append(slices.Clone(old), name), pb.UpdateOp
		})
	}
}

func (ix *locationIndex) reset() {
	ix.tokens.Clear()
	ix.names.Clear()
}

// search scores each location by the fraction of query tokens it matches.
// When no token matches, names containing the query as a substring are
// returned with a lower score.
func (ix *locationIndex) search(query string, limit int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	queryTokens := tokenize(query)
	// The first token is the whole query; it only counts as a bonus.
	scores := make(map[string]float64)
	for i, tok := range queryTokens {
		names, ok := ix.tokens.Load(tok)
		if !ok {
			continue
		}
		weight := 1.0
		if i == 0 {
			weight = 2.0
		}
		for _, name := range names {
			scores[name] += weight
		}
	}

	if len(scores) == 0 {
		needle := strings.ToLower(query)
		for name := range ix.names.Keys() {
			if strings.Contains(strings.ToLower(name), needle) {
				scores[name] = 0.5
			}
		}
	}

	results := make([]SearchResult, 0, len(scores))
	norm := float64(len(queryTokens) + 1)
	for name, s := range scores {
		results = append(results, SearchResult{Name: name, Score: s / norm})
	}
	slices.SortFunc(results, func(a, b SearchResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
