// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"regexp"
	"strings"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// Rule is one rubric row: a category, its weight out of 20, and the
// keywords that make the category eligible.
type Rule struct {
	Category types.Category
	Weight   float64
	Keywords []string
}

// defaultWeight applies when no category keyword matches.
const defaultWeight = 15

// rubric is evaluated in order; on equal weighted scores the earlier row wins.
var rubric = []Rule{
	{
		Category: types.CategoryLabor,
		Weight:   20,
		Keywords: []string{
			"wage increase", "pay raise", "minimum wage", "living wage",
			"union victory", "union", "collective bargaining", "workers",
			"labor rights", "strike ends", "four-day week", "paid leave",
		},
	},
	{
		Category: types.CategoryHealth,
		Weight:   18,
		Keywords: []string{
			"cure", "vaccine", "treatment", "recovery", "clinical trial",
			"life expectancy", "eradicated", "mental health", "patients",
			"disease", "therapy",
		},
	},
	{
		Category: types.CategoryEnvironment,
		Weight:   18,
		Keywords: []string{
			"renewable", "solar", "wind power", "conservation", "reforestation",
			"emissions", "wildlife", "endangered species", "clean energy",
			"biodiversity", "restored", "recycling",
		},
	},
	{
		Category: types.CategoryScience,
		Weight:   17,
		Keywords: []string{
			"breakthrough", "discovery", "researchers", "scientists",
			"innovation", "invention", "study finds", "telescope", "fusion",
		},
	},
	{
		Category: types.CategoryEducation,
		Weight:   16,
		Keywords: []string{
			"students", "school", "scholarship", "literacy", "graduation",
			"teachers", "university", "tuition", "education",
		},
	},
	{
		Category: types.CategoryCommunity,
		Weight:   16,
		Keywords: []string{
			"volunteers", "community", "neighbors", "donation", "donated",
			"charity", "food bank", "fundraiser", "rescued", "kindness",
		},
	},
	{
		Category: types.CategoryJustice,
		Weight:   17,
		Keywords: []string{
			"exonerated", "civil rights", "equality", "reform", "justice",
			"human rights", "voting rights", "released from prison", "acquitted",
		},
	},
}

// Rubric returns a copy of the category rules in evaluation order.
func Rubric() []Rule {
	out := make([]Rule, len(rubric))
	for i, r := range rubric {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// positivity words add one point each to every category.
var positivity = []string{
	"celebrate", "celebrates", "success", "successful", "hope", "hopeful",
	"improve", "improved", "improvement", "win", "wins", "victory",
	"milestone", "record high", "thriving", "inspiring", "first ever",
}

// constructive phrases describe an outcome that already happened and add
// three points each.
var constructive = []string{
	"lifted out of poverty", "lives saved", "record low", "fully recovered",
	"back from the brink", "signed into law", "reduced by", "dropped by",
	"doubled", "successfully", "approved",
}

// solution words add a flat point each, after weighting.
var solution = []string{
	"solution", "solved", "initiative", "program", "pilot", "expanded",
	"launched", "funding",
}

// negative phrases reject an article outright.
var negative = []string{
	"killed", "murder", "murdered", "shooting", "massacre", "death toll",
	"bombing", "terrorist", "genocide", "hostage", "suicide", "fatal",
	"rape", "war crimes", "abuse",
}

// phrase is a compiled word-boundary matcher for one keyword.
type phrase struct {
	text string
	re   *regexp.Regexp
}

func compile(words []string) []phrase {
	out := make([]phrase, len(words))
	for i, w := range words {
		out[i] = phrase{text: w, re: wordPattern(w)}
	}
	return out
}

// wordPattern matches w case-insensitively on word boundaries; internal
// spaces match any whitespace run.
func wordPattern(w string) *regexp.Regexp {
	quoted := strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(w)), " ", `\s+`)
	return regexp.MustCompile(`(?i)\b` + quoted + `\b`)
}

type compiledRule struct {
	Rule
	keywords []phrase
}

var (
	compiledRubric       = compileRubric(rubric)
	compiledPositivity   = compile(positivity)
	compiledConstructive = compile(constructive)
	compiledSolution     = compile(solution)
	compiledNegative     = compile(negative)
)

func compileRubric(rules []Rule) []compiledRule {
	out := make([]compiledRule, len(rules))
	for i, r := range rules {
		out[i] = compiledRule{Rule: r, keywords: compile(r.Keywords)}
	}
	return out
}
