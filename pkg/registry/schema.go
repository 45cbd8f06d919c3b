// pkg/registry/schema.go
package registry

// ParameterID is the stable canonical key for a risk parameter.
type ParameterID string

// Category groups parameters for reporting.
type Category string

const (
	CategoryCompliance  Category = "compliance"
	CategoryFinancial   Category = "financial"
	CategoryCredit      Category = "credit"
	CategoryLegal       Category = "legal"
	CategoryManagement  Category = "management"
	CategoryOperational Category = "operational"
)

// ValidCategories lists every category a catalog entry may carry.
var ValidCategories = []Category{
	CategoryCompliance,
	CategoryFinancial,
	CategoryCredit,
	CategoryLegal,
	CategoryManagement,
	CategoryOperational,
}

// Canonical IDs the analytics code looks up directly.
const (
	GSTCompliance      ParameterID = "gst_compliance"
	EPFOCompliance     ParameterID = "epfo_compliance"
	AuditQualification ParameterID = "audit_qualification"
)

// ParameterRegistry is the on-disk catalog format.
type ParameterRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Parameters  []Parameter `json:"parameters"`
}

// Parameter describes one canonical parameter. Aliases match as substrings of
// a normalized raw name; Tokens match only as whole words.
type Parameter struct {
	ID          ParameterID `json:"id"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description,omitempty"`
	Category    Category    `json:"category"`
	Aliases     []string    `json:"aliases"`
	Tokens      []string    `json:"tokens,omitempty"`
	Weight      float64     `json:"weight"`
}
