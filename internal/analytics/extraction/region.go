package extraction

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/models"
)

var citySuffixPattern = regexp.MustCompile(`(?i)\b([a-z]+(?:nagar|pur|bad|ganj|garh))\b`)

// statePattern matches any canonical state name or a variant of at least four
// letters. Longer alternatives come first so "andhra pradesh" beats "andhra".
var statePattern = buildStatePattern()

func buildStatePattern() *regexp.Regexp {
	var alts []string
	for canonical, variants := range stateVariants {
		alts = append(alts, canonical)
		for _, v := range variants {
			if len(v) >= 4 && isWordy(v) {
				alts = append(alts, v)
			}
		}
	}
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})
	for i, a := range alts {
		alts[i] = strings.Join(strings.Fields(regexp.QuoteMeta(strings.ToLower(a))), `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)
}

func isWordy(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

type regionCandidate struct {
	state, city string
	source      models.RegionSource
	// address is true for the structured registered/business addresses.
	address bool
}

// ExtractRegion resolves state and city through registered address, business
// address, the alternate company_info/addresses/location paths and finally a
// free-text scan of the address lines.
func ExtractRegion(record *models.RawRiskRecord) Result[models.NormalizedRegion] {
	fallback := models.NormalizedRegion{Source: models.RegionSourceUnknown, Confidence: models.ConfidenceLow}
	return guard("region", fallback, func() Result[models.NormalizedRegion] {
		return extractRegion(record)
	})
}

func extractRegion(record *models.RawRiskRecord) Result[models.NormalizedRegion] {
	res := Result[models.NormalizedRegion]{
		Value: models.NormalizedRegion{Source: models.RegionSourceUnknown, Confidence: models.ConfidenceLow},
	}
	if record == nil {
		res.Add(errors.ErrCodeMissingData, "region", "no risk analysis")
		return res
	}

	// first city-only candidate, used when a later source only has a state
	var pending *regionCandidate

	for _, c := range regionCandidates(record) {
		if c.state == "" {
			if c.city != "" && pending == nil {
				cc := c
				pending = &cc
			}
			continue
		}
		city, mixed := c.city, false
		if city == "" && pending != nil {
			city, mixed = pending.city, true
		}
		res.Value = resolvedRegion(c, city, mixed)
		return res
	}

	if state, city := scanAddressText(record); state != "" {
		if city == "" && pending != nil {
			city = pending.city
		}
		res.Value.State = strPtr(NormalizeStateName(state))
		if city != "" {
			res.Value.City = strPtr(NormalizeCity(city))
		}
		return res
	}

	res.Add(errors.ErrCodeMissingData, "region.state", "no state in any address source")
	if pending != nil {
		res.Value.City = strPtr(NormalizeCity(pending.city))
		res.Value.Source = pending.source
		if pending.address {
			res.Value.Confidence = models.ConfidenceMedium
		}
	}
	return res
}

func resolvedRegion(c regionCandidate, city string, mixed bool) models.NormalizedRegion {
	r := models.NormalizedRegion{
		State:  strPtr(NormalizeStateName(c.state)),
		Source: c.source,
	}
	if city != "" {
		r.City = strPtr(NormalizeCity(city))
	}
	both := city != "" && !mixed
	switch {
	case c.address && both:
		r.Confidence = models.ConfidenceHigh
	case c.address, both:
		r.Confidence = models.ConfidenceMedium
	default:
		r.Confidence = models.ConfidenceLow
	}
	return r
}

func regionCandidates(record *models.RawRiskRecord) []regionCandidate {
	var out []regionCandidate
	addrs := record.CompanyData.Addresses
	if a := addrs.Registered; a != nil {
		out = append(out, regionCandidate{state: a.State, city: a.City, source: models.RegionSourceRegistered, address: true})
	}
	if a := addrs.Business; a != nil {
		out = append(out, regionCandidate{state: a.State, city: a.City, source: models.RegionSourceBusiness, address: true})
	}
	if info := record.CompanyData.CompanyInfo; info != nil {
		out = append(out, mapCandidate(info))
	}
	out = append(out, regionCandidate{state: addrs.State, city: addrs.City, source: models.RegionSourceUnknown})
	if record.Location != nil {
		out = append(out, mapCandidate(record.Location))
	}
	return out
}

func mapCandidate(m map[string]interface{}) regionCandidate {
	state, _, _ := firstKey(m, "state", "State", "registered_state")
	city, _, _ := firstKey(m, "city", "City", "registered_city")
	return regionCandidate{state: toText(state), city: toText(city), source: models.RegionSourceUnknown}
}

// scanAddressText returns the leftmost state match across the address lines
// and the first suffix-heuristic city in the same line.
func scanAddressText(record *models.RawRiskRecord) (state, city string) {
	for _, line := range addressLines(record) {
		loc := statePattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		return line[loc[0]:loc[1]], suffixCity(line)
	}
	return "", ""
}

func suffixCity(line string) string {
	for _, m := range citySuffixPattern.FindAllStringSubmatch(line, -1) {
		if !IsKnownState(m[1]) {
			return m[1]
		}
	}
	return ""
}

func addressLines(record *models.RawRiskRecord) []string {
	var lines []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	for _, a := range []*models.Address{record.CompanyData.Addresses.Registered, record.CompanyData.Addresses.Business} {
		if a == nil {
			continue
		}
		add(a.AddressLine1)
		add(a.AddressLine2)
	}
	for _, m := range []map[string]interface{}{record.CompanyData.CompanyInfo, record.Location} {
		for _, k := range []string{"address", "registered_address", "full_address"} {
			add(toText(m[k]))
		}
	}
	return lines
}

func strPtr(s string) *string {
	return &s
}
