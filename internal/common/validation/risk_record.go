package validation

// riskRecordSchema describes the known parts of a risk analysis record.
// Every property is optional and additional properties are allowed; numeric
// fields also accept strings because upstream extraction often emits
// formatted numbers ("1,20,000", "12.5%").
const riskRecordSchema = `{
  "type": "object",
  "additionalProperties": true,
  "definitions": {
    "numeric": {"type": ["number", "string", "null"]},
    "flag": {"type": ["boolean", "number", "string", "null"]},
    "text": {"type": ["string", "number", "null"]},
    "address": {
      "type": ["object", "null"],
      "properties": {
        "state": {"$ref": "#/definitions/text"},
        "city": {"$ref": "#/definitions/text"},
        "address_line_1": {"$ref": "#/definitions/text"},
        "address_line_2": {"$ref": "#/definitions/text"},
        "pin_code": {"$ref": "#/definitions/text"}
      }
    },
    "yearTable": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": ["object", "null"],
        "additionalProperties": {"$ref": "#/definitions/numeric"}
      }
    }
  },
  "properties": {
    "allScores": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "parameter": {"type": "string"},
          "score": {"$ref": "#/definitions/numeric"},
          "maxScore": {"$ref": "#/definitions/numeric"},
          "weightage": {"$ref": "#/definitions/numeric"},
          "available": {"$ref": "#/definitions/flag"},
          "benchmark": {"$ref": "#/definitions/text"},
          "value": {}
        }
      }
    },
    "companyData": {
      "type": ["object", "null"],
      "properties": {
        "addresses": {
          "type": ["object", "null"],
          "properties": {
            "registered_address": {"$ref": "#/definitions/address"},
            "business_address": {"$ref": "#/definitions/address"}
          }
        },
        "company_info": {"type": ["object", "null"]}
      }
    },
    "financialData": {
      "type": ["object", "null"],
      "properties": {
        "years": {"type": ["array", "null"], "items": {"$ref": "#/definitions/text"}},
        "ratios": {"$ref": "#/definitions/yearTable"},
        "balance_sheet": {"$ref": "#/definitions/yearTable"},
        "profit_loss": {"$ref": "#/definitions/yearTable"}
      }
    },
    "location": {"type": ["object", "null"]},
    "eligibility": {
      "type": ["object", "null"],
      "properties": {
        "finalEligibility": {"$ref": "#/definitions/numeric"},
        "recommendedCreditLimit": {"$ref": "#/definitions/numeric"},
        "riskMultiplier": {"$ref": "#/definitions/numeric"}
      }
    }
  }
}`

var riskRecord = MustCompile(riskRecordSchema)

// ValidateRiskRecord runs the lenient risk record schema over a decoded
// document.
func ValidateRiskRecord(document interface{}) *ValidationResult {
	return riskRecord.Validate(document)
}
