package llm

import (
	"strings"
	"testing"

	"github.com/dkalra/jobsieve/internal/model"
)

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{
		"job_title":   "Senior Engineer",
		"job_company": "Acme",
	}

	out := RenderTemplate("{{job_title}} at {{job_company}} ({{ job_title }})", vars)
	if out != "Senior Engineer at Acme (Senior Engineer)" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderTemplate_MissingPlaceholderNeverFails(t *testing.T) {
	// A placeholder absent from the variable set renders the literal marker.
	out := RenderTemplate("Bio: {{biography}}", map[string]string{})
	if out != "Bio: "+MissingValueMarker {
		t.Errorf("out = %q", out)
	}
}

func TestRenderTemplate_EmptyValueGetsMarker(t *testing.T) {
	out := RenderTemplate("CV: {{cv_text}}", map[string]string{"cv_text": "   "})
	if out != "CV: "+MissingValueMarker {
		t.Errorf("out = %q", out)
	}
}

func TestRenderTemplate_UnknownNameLeftVisible(t *testing.T) {
	out := RenderTemplate("{{definitely_not_a_var}}", map[string]string{"job_title": "x"})
	if out != MissingValueMarker {
		t.Errorf("out = %q", out)
	}
}

func TestPromptVars_CoversEmbeddedTemplates(t *testing.T) {
	job := &model.JobRecord{
		Title:       "Senior Engineer",
		Company:     "Acme",
		Location:    "Berlin",
		Description: "Build things",
		SourceName:  "testfeed",
	}
	profile := model.PreferenceProfile{
		Locations:         []string{"Berlin", "Remote"},
		TechStack:         []string{"Go"},
		TravelWillingness: "limited",
		SalaryRange:       "90000-120000",
	}

	vars := PromptVars(job, profile, "bio text", "cv text")

	for _, tmpl := range []string{Tier1Prompt, Tier2Prompt} {
		out := RenderTemplate(tmpl, vars)
		if strings.Contains(out, "{{") {
			t.Errorf("unresolved placeholder survives rendering: %q", out)
		}
	}

	if vars["target_locations"] != "Berlin, Remote" {
		t.Errorf("target_locations = %q", vars["target_locations"])
	}
}
