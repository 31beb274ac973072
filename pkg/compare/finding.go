package compare

// Severity classifies a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most severe.
func Severities() []Severity {
	return []Severity{SeverityInfo, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Rank orders severities; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Check names.
const (
	CheckFeatures   = "features"
	CheckCategories = "categories"
	CheckMessages   = "messages"
	CheckTiming     = "timing"
	CheckDrift      = "drift"
	CheckVisibility = "visibility"
)

// Finding is one classified divergence.
type Finding struct {
	Check          string   `json:"check"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
}
