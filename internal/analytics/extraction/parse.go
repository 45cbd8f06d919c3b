package extraction

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/validation"
	"risk-analytics/internal/models"
)

// Accepted spellings for the known top-level sections.
var (
	allScoresKeys     = []string{"allScores", "all_scores", "scores"}
	companyDataKeys   = []string{"companyData", "company_data"}
	financialDataKeys = []string{"financialData", "financial_data", "financials"}
	locationKeys      = []string{"location"}
	eligibilityKeys   = []string{"eligibility", "eligibilityAnalysis", "eligibility_analysis"}
)

func knownTopLevel() map[string]bool {
	known := map[string]bool{}
	for _, group := range [][]string{allScoresKeys, companyDataKeys, financialDataKeys, locationKeys, eligibilityKeys} {
		for _, k := range group {
			known[k] = true
		}
	}
	for _, k := range []string{"finalEligibility", "recommendedCreditLimit", "riskMultiplier"} {
		known[k] = true
	}
	return known
}

var topLevelKeys = knownTopLevel()

// ParseRiskRecord accepts raw JSON ([]byte, json.RawMessage, string), a
// decoded object, a *models.RawRiskRecord or nil. The value is nil only when
// the input is not a JSON object.
func ParseRiskRecord(raw interface{}) Result[*models.RawRiskRecord] {
	return guard[*models.RawRiskRecord]("", nil, func() Result[*models.RawRiskRecord] {
		return parseRiskRecord(raw)
	})
}

func parseRiskRecord(raw interface{}) Result[*models.RawRiskRecord] {
	var res Result[*models.RawRiskRecord]

	var doc interface{}
	switch v := raw.(type) {
	case nil:
		res.Add(errors.ErrCodeMissingData, "", "risk analysis is null")
		return res
	case *models.RawRiskRecord:
		if v == nil {
			res.Add(errors.ErrCodeMissingData, "", "risk analysis is null")
		}
		res.Value = v
		return res
	case models.RawRiskRecord:
		res.Value = &v
		return res
	case map[string]interface{}:
		doc = v
	case json.RawMessage:
		doc = decodeJSON(v, &res)
	case []byte:
		doc = decodeJSON(v, &res)
	case string:
		doc = decodeJSON([]byte(v), &res)
	default:
		// arbitrary Go values go through a JSON round trip
		b, err := json.Marshal(v)
		if err != nil {
			res.Add(errors.ErrCodeParseFailure, "", "unsupported input type %T", raw)
			return res
		}
		doc = decodeJSON(b, &res)
	}

	obj, ok := asMap(doc)
	if !ok {
		if doc != nil {
			res.Add(errors.ErrCodeParseFailure, "", "risk analysis is not a JSON object")
		}
		return res
	}

	for _, ve := range validation.ValidateRiskRecord(obj).Errors {
		res.Add(errors.ErrCodeParseFailure, ve.Field, "%s", ve.Message)
	}

	record := &models.RawRiskRecord{}
	record.AllScores = parseScores(obj, &res)
	record.CompanyData = parseCompanyData(obj, &res)
	record.FinancialData = parseFinancialData(obj, &res)
	if v, _, ok := firstKey(obj, locationKeys...); ok {
		if m, ok := asMap(v); ok {
			record.Location = m
		}
	}
	record.Eligibility = parseEligibility(obj)
	record.Extra = collectExtra(obj)

	res.Value = record
	return res
}

func decodeJSON(b []byte, res *Result[*models.RawRiskRecord]) interface{} {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		res.Add(errors.ErrCodeMissingData, "", "risk analysis is empty")
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		res.Add(errors.ErrCodeParseFailure, "", "invalid JSON: %v", err)
		return nil
	}
	// some producers double-encode the document as a JSON string
	if s, ok := doc.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "{") {
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			res.Add(errors.ErrCodeParseFailure, "", "invalid nested JSON: %v", err)
			return nil
		}
	}
	return doc
}

func parseScores(obj map[string]interface{}, res *Result[*models.RawRiskRecord]) []models.ParameterScore {
	v, key, ok := firstKey(obj, allScoresKeys...)
	if !ok {
		res.Add(errors.ErrCodeMissingData, "allScores", "no parameter scores")
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		res.Add(errors.ErrCodeParseFailure, key, "parameter scores are %T, not an array", v)
		return nil
	}

	scores := make([]models.ParameterScore, 0, len(items))
	for i, item := range items {
		m, ok := asMap(item)
		if !ok {
			res.Add(errors.ErrCodeParseFailure, key+"."+strconv.Itoa(i), "score entry is not an object")
			continue
		}
		name := toText(m["parameter"])
		if name == "" {
			name = toText(m["name"])
		}
		if name == "" {
			res.Add(errors.ErrCodeParseFailure, key+"."+strconv.Itoa(i), "score entry has no parameter name")
			continue
		}

		ps := models.ParameterScore{
			Parameter: name,
			Score:     floatPtr(m["score"]),
			MaxScore:  floatPtr(m["maxScore"]),
			Weightage: floatPtr(m["weightage"]),
			Benchmark: toText(m["benchmark"]),
			Value:     toText(m["value"]),
			Details:   m["details"],
		}
		if ps.MaxScore == nil {
			ps.MaxScore = floatPtr(m["max_score"])
		}
		if avail, ok := toBool(m["available"]); ok && m["available"] != nil {
			ps.Available = avail
		} else {
			ps.Available = ps.Score != nil
		}
		scores = append(scores, ps)
	}
	return scores
}

func parseCompanyData(obj map[string]interface{}, res *Result[*models.RawRiskRecord]) models.CompanyData {
	var cd models.CompanyData
	v, _, ok := firstKey(obj, companyDataKeys...)
	if !ok {
		res.Add(errors.ErrCodeMissingData, "companyData", "no company data")
		return cd
	}
	m, ok := asMap(v)
	if !ok {
		return cd
	}

	if info, ok := asMap(m["company_info"]); ok {
		cd.CompanyInfo = info
	} else if info, ok := asMap(m["companyInfo"]); ok {
		cd.CompanyInfo = info
	}

	addrs, ok := asMap(m["addresses"])
	if !ok {
		return cd
	}
	cd.Addresses.Registered = parseAddress(addrs["registered_address"])
	cd.Addresses.Business = parseAddress(addrs["business_address"])
	cd.Addresses.State = toText(addrs["state"])
	cd.Addresses.City = toText(addrs["city"])
	return cd
}

// parseAddress keeps a plain string address as its first line so the
// free-text scan can still use it.
func parseAddress(v interface{}) *models.Address {
	switch a := v.(type) {
	case map[string]interface{}:
		addr := &models.Address{
			State:        toText(a["state"]),
			City:         toText(a["city"]),
			AddressLine1: toText(a["address_line_1"]),
			AddressLine2: toText(a["address_line_2"]),
			PinCode:      toText(a["pin_code"]),
		}
		if addr.PinCode == "" {
			addr.PinCode = toText(a["pincode"])
		}
		return addr
	case string:
		if strings.TrimSpace(a) == "" {
			return nil
		}
		return &models.Address{AddressLine1: strings.TrimSpace(a)}
	default:
		return nil
	}
}

func parseFinancialData(obj map[string]interface{}, res *Result[*models.RawRiskRecord]) models.FinancialData {
	var fd models.FinancialData
	v, _, ok := firstKey(obj, financialDataKeys...)
	if !ok {
		res.Add(errors.ErrCodeMissingData, "financialData", "no financial data")
		return fd
	}
	m, ok := asMap(v)
	if !ok {
		return fd
	}

	if years, ok := m["years"].([]interface{}); ok {
		for _, y := range years {
			if label := toText(y); label != "" {
				fd.Years = append(fd.Years, label)
			}
		}
	}
	fd.Ratios = parseYearTable(m["ratios"], "financialData.ratios", res)
	fd.BalanceSheet = parseYearTable(firstOf(m, "balance_sheet", "balanceSheet"), "financialData.balance_sheet", res)
	fd.ProfitLoss = parseYearTable(firstOf(m, "profit_loss", "profitLoss"), "financialData.profit_loss", res)
	return fd
}

func firstOf(m map[string]interface{}, keys ...string) interface{} {
	v, _, _ := firstKey(m, keys...)
	return v
}

func parseYearTable(v interface{}, field string, res *Result[*models.RawRiskRecord]) models.YearTable {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	table := make(models.YearTable, len(m))
	for _, metric := range sortedKeys(m) {
		years, ok := asMap(m[metric])
		if !ok {
			continue
		}
		row := make(map[string]float64, len(years))
		for _, year := range sortedKeys(years) {
			raw := years[year]
			if raw == nil {
				continue
			}
			f, ok := toFloat(raw)
			if !ok {
				res.Add(errors.ErrCodeParseFailure, field+"."+metric+"."+year, "not a number: %v", raw)
				continue
			}
			row[year] = f
		}
		if len(row) > 0 {
			table[metric] = row
		}
	}
	return table
}

func parseEligibility(obj map[string]interface{}) *models.Eligibility {
	src := obj
	if v, _, ok := firstKey(obj, eligibilityKeys...); ok {
		if m, ok := asMap(v); ok {
			src = m
		}
	}
	e := &models.Eligibility{
		FinalEligibility:       floatPtr(firstOf(src, "finalEligibility", "final_eligibility")),
		RecommendedCreditLimit: floatPtr(firstOf(src, "recommendedCreditLimit", "recommended_credit_limit")),
		RiskMultiplier:         floatPtr(firstOf(src, "riskMultiplier", "risk_multiplier")),
	}
	if e.FinalEligibility == nil && e.RecommendedCreditLimit == nil && e.RiskMultiplier == nil {
		return nil
	}
	return e
}

func collectExtra(obj map[string]interface{}) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	for k, v := range obj {
		if topLevelKeys[k] {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if extra == nil {
			extra = map[string]json.RawMessage{}
		}
		extra[k] = b
	}
	return extra
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
