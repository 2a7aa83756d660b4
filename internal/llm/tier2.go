package llm

import (
	"regexp"
	"strings"

	"github.com/dkalra/jobsieve/internal/model"
)

// PlaceholderAnalysis is stored when the detailed stage fails. It keeps the
// record reviewable instead of blocking the already-applied tier-1 result.
func PlaceholderAnalysis(reason string) *model.Analysis {
	return &model.Analysis{
		WorthReviewing: "Automated analysis unavailable — manual review required. " + reason,
		Confidence:     0,
	}
}

var (
	numberedHeadingRegex = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
	allCapsHeadingRegex  = regexp.MustCompile(`^\s*([A-Z][A-Z /&-]{2,}):\s*$`)
	markupHeadingRegex   = regexp.MustCompile(`^\s*(?:#{1,6}\s+(.+?)\s*#*|\*\*(.+?)\*\*:?)\s*$`)
)

// headingText returns the heading portion of a line, or "" when the line is
// not heading-like (numbered, ALL-CAPS-colon, or markup heading).
func headingText(line string) string {
	if m := numberedHeadingRegex.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := allCapsHeadingRegex.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := markupHeadingRegex.FindStringSubmatch(line); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return ""
}

// analysisField identifies one of the six write-up fields.
type analysisField int

const (
	fieldNone analysisField = iota
	fieldWorth
	fieldChallenges
	fieldGrowth
	fieldCompany
	fieldConcerns
	fieldRecommendations
)

// fieldKeywords maps heading keywords to fields. First hit wins, checked in
// this order.
var fieldKeywords = []struct {
	keywords []string
	field    analysisField
}{
	{[]string{"challeng", "technical"}, fieldChallenges},
	{[]string{"career", "growth"}, fieldGrowth},
	{[]string{"concern", "risk", "red flag"}, fieldConcerns},
	{[]string{"recommend", "application", "apply"}, fieldRecommendations},
	{[]string{"company", "culture", "employer"}, fieldCompany},
	{[]string{"worth", "review", "summary", "overview"}, fieldWorth},
}

// matchField maps a heading to the best-matching analysis field by keyword.
func matchField(heading string) analysisField {
	lower := strings.ToLower(heading)
	for _, fk := range fieldKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(lower, kw) {
				return fk.field
			}
		}
	}
	return fieldNone
}

// ParseAnalysis splits a detailed-analysis response into sections on
// heading-like lines and assigns each section's body to the best-matching
// field. Content under an unmatched heading (and any preamble) is not
// discarded: it is attributed to the nearest matched field — the previous
// one when there is one, otherwise the next.
func ParseAnalysis(response string) *model.Analysis {
	lines := strings.Split(response, "\n")

	type section struct {
		field analysisField
		body  []string
	}
	var sections []section
	current := section{field: fieldNone}

	for _, line := range lines {
		if h := headingText(line); h != "" {
			sections = append(sections, current)
			current = section{field: matchField(h)}
			continue
		}
		current.body = append(current.body, line)
	}
	sections = append(sections, current)

	// Fold unmatched sections into their nearest matched neighbor.
	bodies := map[analysisField][]string{}
	var pendingOrphans []string
	lastMatched := fieldNone
	for _, sec := range sections {
		text := strings.TrimSpace(strings.Join(sec.body, "\n"))
		if text == "" {
			continue
		}
		if sec.field == fieldNone {
			if lastMatched != fieldNone {
				bodies[lastMatched] = append(bodies[lastMatched], text)
			} else {
				pendingOrphans = append(pendingOrphans, text)
			}
			continue
		}
		if len(pendingOrphans) > 0 {
			bodies[sec.field] = append(bodies[sec.field], pendingOrphans...)
			pendingOrphans = nil
		}
		bodies[sec.field] = append(bodies[sec.field], text)
		lastMatched = sec.field
	}

	analysis := &model.Analysis{
		Confidence: confidence(response),
	}
	join := func(f analysisField) string {
		return strings.TrimSpace(strings.Join(bodies[f], "\n\n"))
	}
	analysis.WorthReviewing = join(fieldWorth)
	analysis.TechnicalChallenges = join(fieldChallenges)
	analysis.CareerGrowth = join(fieldGrowth)
	analysis.CompanyAssessment = join(fieldCompany)
	analysis.PotentialConcerns = join(fieldConcerns)
	analysis.Recommendations = join(fieldRecommendations)

	// Nothing matched at all: keep the whole response reviewable.
	if analysis.WorthReviewing == "" && analysis.TechnicalChallenges == "" &&
		analysis.CareerGrowth == "" && analysis.CompanyAssessment == "" &&
		analysis.PotentialConcerns == "" && analysis.Recommendations == "" {
		analysis.WorthReviewing = strings.TrimSpace(response)
	}

	return analysis
}

var hedgeWords = []string{"however", "although", "that said", "on the other hand"}

// confidence scores the structural richness of a response on a 0-100 scale.
// It rewards length, multiple paragraphs, numbered structure and hedged
// language. A coarse structural proxy only — it is not a calibrated
// probability and must not gate any decision.
func confidence(response string) int {
	score := 20

	// Length: +1 per 100 chars, capped at +30.
	lengthBonus := len(response) / 100
	if lengthBonus > 30 {
		lengthBonus = 30
	}
	score += lengthBonus

	// Multi-paragraph structure.
	if strings.Count(response, "\n\n") >= 2 {
		score += 15
	}

	// Numbered structure.
	for _, line := range strings.Split(response, "\n") {
		if numberedHeadingRegex.MatchString(line) {
			score += 15
			break
		}
	}

	// Hedged language signals the model weighed alternatives.
	lower := strings.ToLower(response)
	hedges := 0
	for _, w := range hedgeWords {
		if strings.Contains(lower, w) {
			hedges++
		}
	}
	if hedges > 2 {
		hedges = 2
	}
	score += hedges * 10

	if score > 100 {
		score = 100
	}
	return score
}
