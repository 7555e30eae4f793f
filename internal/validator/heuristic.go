package validator

import (
	"context"

	"github.com/convolog/convolog/internal/catalog"
)

// heuristicNames are the catalog categories the deterministic fallback
// checks for, per spec: email/phone/ip/path. This keeps the default test
// path hermetic and independent of any network credential.
var heuristicNames = map[string]bool{
	"EMAIL": true,
	"PHONE": true,
	"IP":    true,
	"PATH":  true,
}

type heuristicValidator struct{}

// NewHeuristic builds the deterministic local validator used when no
// external model backend is configured.
func NewHeuristic() Validator {
	return &heuristicValidator{}
}

func (heuristicValidator) Check(_ context.Context, content string) (Report, error) {
	var issues []string
	for _, p := range catalog.Default() {
		if !heuristicNames[p.Name] {
			continue
		}
		if p.Regexp.MatchString(content) {
			issues = append(issues, p.Name+" pattern still present after sanitization")
		}
	}
	return Report{
		IsClean: len(issues) == 0,
		Issues:  issues,
	}, nil
}
