package extraction

import (
	"strings"

	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

// FindParameterScore returns the score of the first parameter whose name
// contains name, ignoring case.
func FindParameterScore(allScores []models.ParameterScore, name string) *float64 {
	p := FindParameterDetails(allScores, name)
	if p == nil || p.Score == nil {
		return nil
	}
	s := *p.Score
	return &s
}

// FindParameterDetails is the legacy substring lookup: the first entry in
// array order wins, so "gst" may hit an unrelated GST parameter. Prefer
// Lookup for anything new.
func FindParameterDetails(allScores []models.ParameterScore, name string) *models.ParameterScore {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range allScores {
		if strings.Contains(strings.ToLower(allScores[i].Parameter), needle) {
			p := allScores[i]
			return &p
		}
	}
	return nil
}

// Lookup returns the first score whose parameter name resolves to id in reg.
// A nil reg uses the embedded catalog.
func Lookup(reg *registry.Registry, allScores []models.ParameterScore, id registry.ParameterID) *models.ParameterScore {
	if reg == nil {
		reg = registry.Default()
	}
	for i := range allScores {
		if resolved, ok := reg.Resolve(allScores[i].Parameter); ok && resolved == id {
			p := allScores[i]
			return &p
		}
	}
	return nil
}

// ResolveAll maps every parameter name in allScores to its canonical ID,
// leaving unresolved names out.
func ResolveAll(reg *registry.Registry, allScores []models.ParameterScore) map[string]registry.ParameterID {
	if reg == nil {
		reg = registry.Default()
	}
	out := make(map[string]registry.ParameterID, len(allScores))
	for _, p := range allScores {
		if id, ok := reg.Resolve(p.Parameter); ok {
			out[p.Parameter] = id
		}
	}
	return out
}
