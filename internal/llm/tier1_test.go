package llm

import (
	"testing"

	"github.com/dkalra/jobsieve/internal/model"
)

func TestParseTier1(t *testing.T) {
	cases := []struct {
		name          string
		response      string
		wantRating    model.Rating
		wantReasoning string
	}{
		{
			name:          "plain approve",
			response:      "Rating: APPROVE — strong tech match",
			wantRating:    model.RatingApprove,
			wantReasoning: "strong tech match",
		},
		{
			name:          "lowercase token",
			response:      "I would approve this role, it fits well",
			wantRating:    model.RatingApprove,
			wantReasoning: "this role, it fits well",
		},
		{
			name: "approve wins over reject",
			// Both tokens present: first-listed precedence wins.
			response:      "I would not reject this outright; APPROVE with caveats",
			wantRating:    model.RatingApprove,
			wantReasoning: "with caveats",
		},
		{
			name:          "maybe wins over reject",
			response:      "Verdict: MAYBE. Could reject if salary is low.",
			wantRating:    model.RatingMaybe,
			wantReasoning: "Could reject if salary is low.",
		},
		{
			name:          "reject",
			response:      "REJECT: wrong stack entirely",
			wantRating:    model.RatingReject,
			wantReasoning: "wrong stack entirely",
		},
		{
			name:          "no token defaults to reject with full response",
			response:      "This posting is interesting but I am unsure.",
			wantRating:    model.RatingReject,
			wantReasoning: "This posting is interesting but I am unsure.",
		},
		{
			name:          "empty response",
			response:      "",
			wantRating:    model.RatingReject,
			wantReasoning: "",
		},
		{
			// U+023A grows from 2 to 3 bytes when lowercased; the token
			// index must be located against the original bytes.
			name:          "length-shifting rune before trailing token",
			response:      "ȺAPPROVE",
			wantRating:    model.RatingApprove,
			wantReasoning: "",
		},
		{
			name:          "length-shifting rune before token with reasoning",
			response:      "ȺȺ verdict: approve: solid remote role",
			wantRating:    model.RatingApprove,
			wantReasoning: "solid remote role",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rating, reasoning := ParseTier1(tc.response)
			if rating != tc.wantRating {
				t.Errorf("rating = %s, want %s", rating, tc.wantRating)
			}
			if reasoning != tc.wantReasoning {
				t.Errorf("reasoning = %q, want %q", reasoning, tc.wantReasoning)
			}
		})
	}
}
