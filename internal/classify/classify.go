// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify scores article text against a weighted keyword rubric
// and decides whether a story is positive enough to publish.
package classify

import (
	"math"
	"sort"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

const (
	// AcceptThreshold is the minimum score for an accepted article.
	AcceptThreshold = 3.0

	// MaxScore caps every score.
	MaxScore = 10.0

	// MaxTags caps the tag list.
	MaxTags = 5
)

// Classify scores title and body. It is a pure function of its input.
//
// A negative phrase rejects the article with score 0 before any other
// signal is considered. Otherwise every category with at least one
// keyword match is scored as
//
//	(2*keywords + positivity + 3*constructive) * weight / 20
//
// and the highest wins, ties going to the earlier rubric row. With no
// eligible category the article falls into good-news and is scored on
// positivity and constructive matches alone. Distinct solution words add
// one point each; the result is clamped to [0, 10] and rounded to one
// decimal.
func Classify(title, body string) types.Classification {
	text := title + "\n" + body

	if anyMatch(compiledNegative, text) {
		return types.Classification{
			Category: types.CategoryGoodNews,
			Score:    0,
			Impact:   types.ImpactMinimal,
			Tags:     []string{},
			Accept:   false,
		}
	}

	generic := float64(countMatches(compiledPositivity, text))
	outcomes := float64(countMatches(compiledConstructive, text))

	category := types.CategoryGoodNews
	weighted := (generic + 3*outcomes) * defaultWeight / 20
	eligible := false
	var hits []tagHit

	for i, r := range compiledRubric {
		found := matchPositions(r.keywords, text)
		if len(found) == 0 {
			continue
		}
		for _, h := range found {
			h.rule = i
			hits = append(hits, h)
		}
		s := (2*float64(len(found)) + generic + 3*outcomes) * r.Weight / 20
		if !eligible || s > weighted {
			category, weighted, eligible = r.Category, s, true
		}
	}

	score := weighted + float64(countMatches(compiledSolution, text))
	score = math.Round(clamp(score, 0, MaxScore)*10) / 10

	return types.Classification{
		Category: category,
		Score:    score,
		Impact:   types.ImpactFor(score),
		Tags:     orderTags(hits),
		Accept:   score >= AcceptThreshold,
	}
}

// Article classifies a canonical article using its title and body.
func Article(a types.CanonicalArticle) types.ClassifiedArticle {
	return types.ClassifiedArticle{
		CanonicalArticle: a,
		Classification:   Classify(a.Title, a.Body()),
	}
}

// tagHit is a matched category keyword and where it first appears.
type tagHit struct {
	text    string
	pos     int
	rule    int
	keyword int
}

// matchPositions returns the keywords found in text with their first
// counted position. An occurrence lying inside an occurrence of a longer
// keyword from the same list is not counted, so "union victory" does not
// also score "union".
func matchPositions(phrases []phrase, text string) []tagHit {
	spans := make([][][]int, len(phrases))
	for i, p := range phrases {
		spans[i] = p.re.FindAllStringIndex(text, -1)
	}

	var out []tagHit
	for i, p := range phrases {
		for _, loc := range spans[i] {
			if covered(loc, i, phrases, spans) {
				continue
			}
			out = append(out, tagHit{text: p.text, pos: loc[0], keyword: i})
			break
		}
	}
	return out
}

func covered(loc []int, self int, phrases []phrase, spans [][][]int) bool {
	for j, other := range spans {
		if j == self || len(phrases[j].text) <= len(phrases[self].text) {
			continue
		}
		for _, o := range other {
			if o[0] <= loc[0] && loc[1] <= o[1] {
				return true
			}
		}
	}
	return false
}

func countMatches(phrases []phrase, text string) int {
	n := 0
	for _, p := range phrases {
		if p.re.MatchString(text) {
			n++
		}
	}
	return n
}

func anyMatch(phrases []phrase, text string) bool {
	for _, p := range phrases {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// orderTags sorts hits by first occurrence, then rubric position, and
// keeps the first MaxTags distinct keywords.
func orderTags(hits []tagHit) []string {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		if hits[i].rule != hits[j].rule {
			return hits[i].rule < hits[j].rule
		}
		return hits[i].keyword < hits[j].keyword
	})

	tags := make([]string, 0, MaxTags)
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if seen[h.text] {
			continue
		}
		seen[h.text] = true
		tags = append(tags, h.text)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
