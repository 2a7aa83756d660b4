package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/dkalra/jobsieve/internal/model"
)

// UnknownCompany is the sentinel used when a company value is structurally
// required but unextractable. It is a default, not a rejection.
const UnknownCompany = "Unknown Company"

// MaxDescriptionLen caps the normalized description length. Longer
// descriptions are truncated with an ellipsis marker.
const MaxDescriptionLen = 2000

const httpPrefix = "http"

var (
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

	// "<title> at <Company>" — checked before the dash form.
	titleAtCompanyRegex = regexp.MustCompile(`^(.{2,}?)\s+at\s+(.{2,})$`)
	// "<Company> - <title>"
	companyDashTitleRegex = regexp.MustCompile(`^(.{2,}?)\s+[-–]\s+(.{2,})$`)

	locationLabelRegex = regexp.MustCompile(`(?i)Location:\s*([^\n.;|]+)`)
	basedInRegex       = regexp.MustCompile(`(?i)Based in\s+([^\n.;|,]+(?:,\s*[A-Z]{2})?)`)
	cityRegionRegex    = regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)*,\s*[A-Z]{2})\b`)

	salaryLabelRegex = regexp.MustCompile(`(?i)Salary:\s*([^\n.;|]+)`)
)

// Extract normalizes one feed item into a candidate record. It returns false
// when the item cannot yield a candidate (no title or no resolvable link).
func Extract(item *gofeed.Item, sourceName string) (model.Candidate, bool) {
	title := extractTitle(item)
	link := extractLink(item)
	if title == "" || link == "" {
		return model.Candidate{}, false
	}

	company := extractCompany(item)
	if company == "" {
		// Title patterns may carry both company and a cleaner title.
		if t, c, ok := splitTitleCompany(title); ok {
			title, company = t, c
		}
	}
	if company == "" {
		company = UnknownCompany
	}

	description := cleanDescription(itemBody(item))

	location := strings.TrimSpace(item.Custom["location"])
	if location == "" {
		location = scanLocation(description)
	}

	salary := strings.TrimSpace(item.Custom["salary"])
	if salary == "" {
		if m := salaryLabelRegex.FindStringSubmatch(description); m != nil {
			salary = strings.TrimSpace(m[1])
		}
	}

	uniqueID := item.GUID
	if uniqueID == "" {
		uniqueID = contentHash(title, company, link)
	}

	return model.Candidate{
		UniqueID:      uniqueID,
		Title:         title,
		Company:       company,
		Location:      location,
		SalaryRange:   salary,
		Description:   description,
		SourceURL:     link,
		PublishedDate: item.PublishedParsed,
		SourceName:    sourceName,
	}, true
}

// extractTitle returns the primary title, falling back through the custom
// fields some job boards use instead.
func extractTitle(item *gofeed.Item) string {
	if t := strings.TrimSpace(item.Title); t != "" {
		return t
	}
	for _, key := range []string{"job_title", "position", "vacancy"} {
		if t := strings.TrimSpace(item.Custom[key]); t != "" {
			return t
		}
	}
	return ""
}

// extractLink returns the best available URL from a feed item, preferring the
// explicit link and falling back to an http-looking GUID.
func extractLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if strings.HasPrefix(item.GUID, httpPrefix) {
		return item.GUID
	}
	return ""
}

// extractCompany returns an explicitly declared company, or "" when only the
// title can tell us.
func extractCompany(item *gofeed.Item) string {
	if c := strings.TrimSpace(item.Custom["company"]); c != "" {
		return c
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		if c := strings.TrimSpace(item.DublinCoreExt.Creator[0]); c != "" {
			return c
		}
	}
	if item.Author != nil {
		if c := strings.TrimSpace(item.Author.Name); c != "" {
			return c
		}
	}
	return ""
}

// splitTitleCompany recognizes "<title> at <Company>" and
// "<Company> - <title>" forms. The "at" pattern wins when both would match.
func splitTitleCompany(title string) (newTitle, company string, ok bool) {
	if m := titleAtCompanyRegex.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
	}
	if m := companyDashTitleRegex.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1]), true
	}
	return "", "", false
}

// itemBody picks the richest body field the feed offers.
func itemBody(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}

// cleanDescription decodes HTML entities, strips tags, collapses whitespace
// and truncates to at most MaxDescriptionLen bytes. The cut must land on a
// rune boundary or a multi-byte character straddling the limit would leave
// invalid UTF-8 in prompts and delivery payloads.
func cleanDescription(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	plain = strings.Join(strings.Fields(plain), " ")
	if len(plain) > MaxDescriptionLen {
		cut := MaxDescriptionLen
		for cut > 0 && !utf8.RuneStart(plain[cut]) {
			cut--
		}
		plain = plain[:cut] + "..."
	}
	return plain
}

// scanLocation looks for a location inside the description text: an explicit
// "Location:" label, a "Based in X" phrase, or a "City, REGION" pattern.
func scanLocation(description string) string {
	if m := locationLabelRegex.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := basedInRegex.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := cityRegionRegex.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// contentHash builds a stable fallback identity for items without a GUID.
func contentHash(title, company, link string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", title, company, link)))
	return "hash:" + hex.EncodeToString(sum[:])[:16]
}
