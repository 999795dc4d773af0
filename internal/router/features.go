package router

import (
	"regexp"
	"strings"
)

// Features are boolean signals derived from the request text. Each signal
// adds a fixed, bounded bonus to the (role, model) pairs that benefit from
// it.
type Features struct {
	HasCode       bool `json:"has_code"`
	HasMath       bool `json:"has_math"`
	WantsResearch bool `json:"wants_research"`
	WantsCreative bool `json:"wants_creative"`
	LongForm      bool `json:"long_form"`
}

var (
	codePattern = regexp.MustCompile("(?s)```|\\bfunc \\w+\\(|\\bdef \\w+\\(|\\bclass \\w+|;\\s*$")
	mathPattern = regexp.MustCompile(`\d+\s*[+\-*/^=]\s*\d+|\b(integral|derivative|equation|theorem|matrix)\b`)
)

var researchWords = []string{
	"research", "compare", "versus", " vs ", "latest", "sources", "citations", "state of the art",
}

var creativeWords = []string{
	"story", "poem", "creative", "brainstorm", "imagine", "slogan", "fiction",
}

// ExtractFeatures derives routing signals from a request message.
func ExtractFeatures(message string) Features {
	lower := strings.ToLower(message)
	f := Features{
		HasCode:  codePattern.MatchString(message),
		HasMath:  mathPattern.MatchString(lower),
		LongForm: len(message) > 1200,
	}
	for _, w := range researchWords {
		if strings.Contains(lower, w) {
			f.WantsResearch = true
			break
		}
	}
	for _, w := range creativeWords {
		if strings.Contains(lower, w) {
			f.WantsCreative = true
			break
		}
	}
	return f
}
