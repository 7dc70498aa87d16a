package domain

import "time"

type ClientType string

// Tier order: each later type requires a strict superset of the previous one.
const (
	ClientIndividual   ClientType = "individual"
	ClientBusiness     ClientType = "business"
	ClientHighNetWorth ClientType = "high_net_worth"
)

func ClientTypes() []ClientType {
	return []ClientType{ClientIndividual, ClientBusiness, ClientHighNetWorth}
}

func (c ClientType) Valid() bool {
	for _, known := range ClientTypes() {
		if c == known {
			return true
		}
	}
	return false
}

type ClientProfile struct {
	ClientID   string     `json:"client_id"`
	ClientType ClientType `json:"client_type"`
	// SubmittedDocuments is what the client uploaded, including rejected files.
	SubmittedDocuments []DocumentType `json:"submitted_documents"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceIncomplete   ComplianceStatus = "incomplete"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
)

type ComplianceVerdict struct {
	ClientID            string           `json:"client_id"`
	ClientType          ClientType       `json:"client_type"`
	Required            []DocumentType   `json:"required"`
	Submitted           []DocumentType   `json:"submitted"`
	Missing             []DocumentType   `json:"missing"`
	CrossDocumentIssues []string         `json:"cross_document_issues"`
	RiskLevel           RiskLevel        `json:"risk_level"`
	OverallStatus       ComplianceStatus `json:"overall_status"`
}

// ComplianceCheck is the stored, identifiable result of one compliance run.
type ComplianceCheck struct {
	ID        string            `json:"id"`
	CheckedAt time.Time         `json:"checked_at"`
	Verdict   ComplianceVerdict `json:"verdict"`
}

type BatchSummary struct {
	TotalDocuments        int       `json:"total_documents"`
	ProcessedSuccessfully int       `json:"processed_successfully"`
	ComplianceRate        float64   `json:"compliance_rate"`
	AverageConfidence     float64   `json:"average_confidence"`
	IssuesFound           int       `json:"issues_found"`
	GeneratedAt           time.Time `json:"generated_at"`
}

type BatchResult struct {
	Verdicts   []DocumentVerdict `json:"verdicts"`
	Compliance ComplianceVerdict `json:"compliance"`
	Summary    BatchSummary      `json:"summary"`
}
