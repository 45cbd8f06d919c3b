package extraction

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// canonical name -> known variants
var stateVariants = map[string][]string{
	"Andhra Pradesh":    {"andhra", "ap", "andhrapradesh"},
	"Arunachal Pradesh": {"arunachal"},
	"Assam":             {},
	"Bihar":             {},
	"Chhattisgarh":      {"chattisgarh", "chhatisgarh", "chhattisgad", "cg"},
	"Goa":               {},
	"Gujarat":           {"gujrat", "gj"},
	"Haryana":           {"hr"},
	"Himachal Pradesh":  {"himachal", "hp"},
	"Jharkhand":         {"jharkand"},
	"Karnataka":         {"karnatak", "ka"},
	"Kerala":            {"kerela", "kl"},
	"Madhya Pradesh":    {"madhyapradesh", "mp"},
	"Maharashtra":       {"maharastra", "maharashtra state", "mh"},
	"Manipur":           {},
	"Meghalaya":         {},
	"Mizoram":           {},
	"Nagaland":          {},
	"Odisha":            {"orissa", "od"},
	"Punjab":            {"panjab", "pb"},
	"Rajasthan":         {"rajastan", "rj"},
	"Sikkim":            {},
	"Tamil Nadu":        {"tamilnadu", "tamil nadu state", "tn"},
	"Telangana":         {"telengana", "tg", "ts"},
	"Tripura":           {},
	"Uttar Pradesh":     {"uttarpradesh", "up"},
	"Uttarakhand":       {"uttaranchal", "uttrakhand"},
	"West Bengal":       {"westbengal", "bengal", "wb"},
	"Andaman and Nicobar Islands": {
		"andaman and nicobar", "andaman & nicobar", "andaman & nicobar islands", "andaman",
	},
	"Chandigarh": {},
	"Dadra and Nagar Haveli and Daman and Diu": {
		"dadra and nagar haveli", "daman and diu", "dadra & nagar haveli", "daman & diu", "dnh",
	},
	"Delhi":             {"new delhi", "nct of delhi", "nct delhi", "delhi ncr", "dl"},
	"Jammu and Kashmir": {"jammu & kashmir", "jammu kashmir", "j&k", "jk"},
	"Ladakh":            {},
	"Lakshadweep":       {},
	"Puducherry":        {"pondicherry", "pondy"},
}

var cityVariants = map[string][]string{
	"Mumbai":             {"bombay"},
	"Navi Mumbai":        {"new bombay"},
	"Bengaluru":          {"bangalore", "bengalooru", "bangaluru"},
	"Chennai":            {"madras"},
	"Kolkata":            {"calcutta"},
	"Gurugram":           {"gurgaon"},
	"Pune":               {"poona"},
	"New Delhi":          {},
	"Hyderabad":          {"hydrabad"},
	"Ahmedabad":          {"amdavad", "ahmadabad"},
	"Thiruvananthapuram": {"trivandrum"},
	"Kochi":              {"cochin"},
	"Mysuru":             {"mysore"},
	"Mangaluru":          {"mangalore"},
	"Belagavi":           {"belgaum"},
	"Kozhikode":          {"calicut"},
	"Vadodara":           {"baroda"},
	"Varanasi":           {"benares", "banaras"},
	"Prayagraj":          {"allahabad"},
	"Visakhapatnam":      {"vizag", "vishakhapatnam"},
	"Kanpur":             {"cawnpore"},
	"Noida":              {},
	"Thane":              {},
}

var (
	stateDict = buildDict(stateVariants)
	cityDict  = buildDict(cityVariants)
)

// buildDict keys every variant and canonical name by key(titleForm(s)).
// Canonical names are written last so a canonical always maps to itself.
func buildDict(variants map[string][]string) map[string]string {
	dict := make(map[string]string)
	for canonical, vs := range variants {
		for _, v := range vs {
			dict[lookupKey(titleForm(v))] = canonical
		}
	}
	for canonical := range variants {
		dict[lookupKey(titleForm(canonical))] = canonical
	}
	return dict
}

const edgePunctuation = " \t\r\n,.;:-_/()"

// titleForm trims edge punctuation, collapses whitespace and title-cases
// each word. It is idempotent.
func titleForm(s string) string {
	words := strings.Fields(strings.Trim(s, edgePunctuation))
	if len(words) == 0 {
		return ""
	}
	caser := cases.Title(language.Und)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

func lookupKey(title string) string {
	return strings.ToLower(title)
}

func normalizeWith(dict map[string]string, s string) string {
	t := titleForm(s)
	if canonical, ok := dict[lookupKey(t)]; ok {
		return canonical
	}
	return t
}

// NormalizeStateName maps known spellings and abbreviations to the canonical
// state or union territory name; anything else is title-cased per word.
func NormalizeStateName(s string) string {
	return normalizeWith(stateDict, s)
}

// NormalizeCity maps historic and alternate city names to their current
// official name; anything else is title-cased per word.
func NormalizeCity(s string) string {
	return normalizeWith(cityDict, s)
}

// IsKnownState reports whether s normalizes to a state in the dictionary.
func IsKnownState(s string) bool {
	_, ok := stateDict[lookupKey(titleForm(s))]
	return ok
}
