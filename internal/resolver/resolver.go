// Package resolver ranks remote search candidates for a normalized query and
// decides whether one can be chosen automatically or whether the caller must
// disambiguate.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"marquee/internal/config"
	"marquee/internal/metadata"
	"marquee/internal/services"
)

// Candidates in a higher match tier always outrank lower tiers regardless of
// popularity.
const (
	tierExactYearMatch = 2
	tierNearYearMatch  = 1
	tierTitleOnly      = 0

	tierWeight = 1000.0
)

// Selection carries the ranked options handed back to the caller when no
// candidate dominates.
type Selection struct {
	Query   metadata.NormalizedQuery
	Options []metadata.Candidate
}

// Outcome is the result of ranking: exactly one of Chosen or Selection is set.
type Outcome struct {
	Chosen    *metadata.Candidate
	Selection *Selection
}

// AutoSelected reports whether ranking settled on a single candidate without
// external disambiguation.
func (o Outcome) AutoSelected() bool {
	return o.Chosen != nil
}

// Resolver scores search candidates against the query that produced them.
type Resolver struct {
	margin     float64
	maxOptions int
}

// New builds a resolver from the pipeline configuration.
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		margin:     cfg.Pipeline.AutoSelectMargin,
		maxOptions: cfg.Pipeline.SelectionMaxOptions,
	}
}

type scored struct {
	candidate metadata.Candidate
	score     float64
}

// Resolve ranks candidates and either picks a dominant one or returns a
// Selection of the top options. An empty candidate list is a NoCandidates
// failure, which the caller reports upstream rather than retrying.
func (r *Resolver) Resolve(query metadata.NormalizedQuery, candidates []metadata.Candidate) (Outcome, error) {
	if len(candidates) == 0 {
		return Outcome{}, services.Wrap(services.ErrNoCandidates, "resolver", "resolve",
			fmt.Sprintf("no candidates for %q", query.Title), nil)
	}

	ranked := r.rank(query, candidates)
	if len(ranked) == 1 || r.dominates(ranked[0].score, ranked[1].score) {
		chosen := ranked[0].candidate
		return Outcome{Chosen: &chosen}, nil
	}

	limit := r.maxOptions
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	options := make([]metadata.Candidate, 0, limit)
	for _, entry := range ranked[:limit] {
		options = append(options, entry.candidate)
	}
	return Outcome{Selection: &Selection{Query: query, Options: options}}, nil
}

// TopRanked returns the best candidate for a query, used as the fallback when
// a pending selection times out.
func (r *Resolver) TopRanked(query metadata.NormalizedQuery, candidates []metadata.Candidate) (metadata.Candidate, error) {
	if len(candidates) == 0 {
		return metadata.Candidate{}, services.Wrap(services.ErrNoCandidates, "resolver", "top-ranked",
			fmt.Sprintf("no candidates for %q", query.Title), nil)
	}
	return r.rank(query, candidates)[0].candidate, nil
}

func (r *Resolver) rank(query metadata.NormalizedQuery, candidates []metadata.Candidate) []scored {
	ranked := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		ranked = append(ranked, scored{
			candidate: candidate,
			score:     score(query, candidate),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// dominates applies the auto-select rule: the leader must exceed the runner-up
// by the configured relative margin.
func (r *Resolver) dominates(top, second float64) bool {
	if second <= 0 {
		return top > 0
	}
	return top >= second*(1+r.margin)
}

func score(query metadata.NormalizedQuery, candidate metadata.Candidate) float64 {
	tier := tierTitleOnly
	if titlesMatch(query.Title, candidate.Title) {
		switch {
		case query.Year != 0 && candidate.Year == query.Year:
			tier = tierExactYearMatch
		case query.Year != 0 && candidate.Year != 0 && absInt(candidate.Year-query.Year) <= 1:
			tier = tierNearYearMatch
		case query.Year == 0:
			tier = tierNearYearMatch
		}
	}
	return float64(tier)*tierWeight + candidate.Popularity
}

func titlesMatch(queryTitle, candidateTitle string) bool {
	return normalizeTitle(queryTitle) == normalizeTitle(candidateTitle)
}

func normalizeTitle(title string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == ' ':
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Option returns the selection option with the given candidate ID, or an
// error when the ID is not among the offered options.
func (s *Selection) Option(candidateID int64) (metadata.Candidate, error) {
	for _, option := range s.Options {
		if option.ID == candidateID {
			return option, nil
		}
	}
	return metadata.Candidate{}, fmt.Errorf("candidate %d is not among the offered options", candidateID)
}
