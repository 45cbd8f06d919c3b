package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStateName(t *testing.T) {
	tests := map[string]string{
		"maharastra":        "Maharashtra",
		"  MAHARASHTRA ":    "Maharashtra",
		"orissa":            "Odisha",
		"TN":                "Tamil Nadu",
		"tamil   nadu,":     "Tamil Nadu",
		"jammu & kashmir":   "Jammu and Kashmir",
		"Jammu And Kashmir": "Jammu and Kashmir",
		"pondicherry":       "Puducherry",
		"new delhi":         "Delhi",
		"atlantis province": "Atlantis Province",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStateName(in), "input %q", in)
	}
}

func TestNormalizeCity(t *testing.T) {
	tests := map[string]string{
		"bombay":      "Mumbai",
		"Bangalore":   "Bengaluru",
		"gurgaon":     "Gurugram",
		"new delhi":   "New Delhi",
		"ahmednagar":  "Ahmednagar",
		"navi mumbai": "Navi Mumbai",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCity(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "  ", "maharastra", "TN", "jammu & kashmir", "dadra and nagar haveli",
		"bombay", "new  bombay", "o'neill town", "ÉLAN city", "straße", "123 main",
		"-pune-", "ǆemal", "x/y", "Andaman & Nicobar Islands",
	}
	for canonical, variants := range stateVariants {
		inputs = append(inputs, canonical)
		inputs = append(inputs, variants...)
	}
	for canonical, variants := range cityVariants {
		inputs = append(inputs, canonical)
		inputs = append(inputs, variants...)
	}

	for _, in := range inputs {
		s := NormalizeStateName(in)
		assert.Equal(t, s, NormalizeStateName(s), "state %q", in)
		c := NormalizeCity(in)
		assert.Equal(t, c, NormalizeCity(c), "city %q", in)
	}
}

func TestIsKnownState(t *testing.T) {
	assert.True(t, IsKnownState("chhattisgarh"))
	assert.True(t, IsKnownState("UP"))
	assert.False(t, IsKnownState("Raipur"))
}
