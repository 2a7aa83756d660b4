package llm

import (
	"strings"

	"github.com/dkalra/jobsieve/internal/model"
)

// ratingTokens in precedence order: a response containing "approve" is rated
// APPROVE even when "reject" also appears. This precedence is the contract —
// do not reorder to make the parse look smarter.
var ratingTokens = []model.Rating{
	model.RatingApprove,
	model.RatingMaybe,
	model.RatingReject,
}

// ParseTier1 parses a free-text basic-filter response into a rating and
// reasoning text. The search is a case-insensitive substring match for the
// literal tokens APPROVE, MAYBE, REJECT; when no token is found the rating
// defaults to REJECT and the whole response becomes the reasoning.
func ParseTier1(response string) (model.Rating, string) {
	for _, token := range ratingTokens {
		idx := indexFold(response, string(token))
		if idx < 0 {
			continue
		}
		reasoning := strings.TrimSpace(response[idx+len(token):])
		reasoning = strings.TrimLeft(reasoning, ":-—–. \t\n")
		return token, strings.TrimSpace(reasoning)
	}

	return model.RatingReject, strings.TrimSpace(response)
}

// indexFold returns the byte index of the first case-insensitive occurrence
// of token in s. The rating tokens are pure ASCII, so every candidate window
// has the token's byte length and the returned index is always a valid slice
// position in s, even when s contains multi-byte runes. Lowercasing the full
// response would not give that guarantee: some runes change byte length under
// case mapping and the indexes drift.
func indexFold(s, token string) int {
	for i := 0; i+len(token) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(token)], token) {
			return i
		}
	}
	return -1
}
