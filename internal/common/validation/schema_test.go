package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRiskRecord(t *testing.T) {
	t.Run("well formed record", func(t *testing.T) {
		doc := map[string]interface{}{
			"allScores": []interface{}{
				map[string]interface{}{"parameter": "GST Compliance", "score": 8.0, "maxScore": "10", "available": true},
			},
			"companyData": map[string]interface{}{
				"addresses": map[string]interface{}{
					"registered_address": map[string]interface{}{"state": "Maharashtra", "pin_code": 400001.0},
				},
			},
			"somethingNew": "kept",
		}
		res := ValidateRiskRecord(doc)
		assert.True(t, res.Valid, res.GetErrorMessages())
	})

	t.Run("wrong shapes are reported per field", func(t *testing.T) {
		doc := map[string]interface{}{
			"allScores":   "not-an-array",
			"companyData": map[string]interface{}{"addresses": map[string]interface{}{"business_address": "Pune"}},
		}
		res := ValidateRiskRecord(doc)
		require.False(t, res.Valid)
		assert.True(t, res.HasErrors("allScores"))
		assert.NotEmpty(t, res.GetErrorsForField("companyData"))
	})

	t.Run("non object root", func(t *testing.T) {
		res := ValidateRiskRecord([]interface{}{1.0, 2.0})
		require.False(t, res.Valid)
		assert.Equal(t, "", res.Errors[0].Field)
	})
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}
