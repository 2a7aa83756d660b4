package llm

import (
	"regexp"
	"strings"

	"github.com/dkalra/jobsieve/internal/model"
)

// MissingValueMarker replaces placeholders that have no value in the
// variable set. A visible marker beats a silently dropped or half-rendered
// prompt.
const MissingValueMarker = "[name not provided]"

var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// RenderTemplate resolves {{name}} placeholders in tmpl against vars. An
// unknown or empty placeholder renders as MissingValueMarker; rendering
// never fails.
func RenderTemplate(tmpl string, vars map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderRegex.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok && strings.TrimSpace(v) != "" {
			return v
		}
		return MissingValueMarker
	})
}

// PromptVars builds the fixed variable set for a job against the preference
// profile plus the optional free-text biography and CV.
func PromptVars(job *model.JobRecord, profile model.PreferenceProfile, biography, cv string) map[string]string {
	return map[string]string{
		"job_title":          job.Title,
		"job_company":        job.Company,
		"job_location":       job.Location,
		"job_salary":         job.SalaryRange,
		"job_description":    job.Description,
		"job_source":         job.SourceName,
		"target_locations":   strings.Join(profile.Locations, ", "),
		"work_modes":         strings.Join(profile.WorkModes, ", "),
		"career_levels":      strings.Join(profile.CareerLevels, ", "),
		"tech_stack":         strings.Join(profile.TechStack, ", "),
		"company_sizes":      strings.Join(profile.CompanySizes, ", "),
		"travel_willingness": profile.TravelWillingness,
		"target_salary":      profile.SalaryRange,
		"biography":          biography,
		"cv_text":            cv,
	}
}
