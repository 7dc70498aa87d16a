package xlsx

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

const (
	documentsSheet  = "Documents"
	complianceSheet = "Compliance"
	summarySheet    = "Summary"
)

// Writer renders per-document results, the compliance checklist and the
// batch summary as one workbook.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Write(out io.Writer, verdicts []domain.DocumentVerdict, compliance []domain.ComplianceVerdict, summary domain.BatchSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return fmt.Errorf("xlsx rename sheet: %w", err)
	}
	for _, sheet := range []string{complianceSheet, summarySheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("xlsx new sheet %s: %w", sheet, err)
		}
	}

	header, err := headerStyle(f)
	if err != nil {
		return err
	}
	if err := writeDocuments(f, header, verdicts); err != nil {
		return err
	}
	if err := writeCompliance(f, header, compliance); err != nil {
		return err
	}
	if err := writeSummary(f, header, summary); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return 0, fmt.Errorf("xlsx header style: %w", err)
	}
	return style, nil
}

func writeDocuments(f *excelize.File, header int, verdicts []domain.DocumentVerdict) error {
	headers := []string{
		"Document ID", "Client ID", "Filename", "Extraction", "Document Type", "Confidence",
		"Quality Score", "Status", "Issues", "Recommendations", "Fields",
	}
	rows := make([][]any, 0, len(verdicts))
	for _, v := range verdicts {
		issues := make([]string, 0, len(v.Quality.Issues))
		for _, issue := range v.Quality.Issues {
			issues = append(issues, issue.Message)
		}
		rows = append(rows, []any{
			v.Document.ID,
			v.Document.ClientID,
			v.Document.Filename,
			string(v.Document.ExtractionMethod),
			string(v.Classification.DocumentType),
			v.Classification.ConfidenceScore,
			v.Quality.QualityScore,
			string(v.Status),
			strings.Join(issues, "; "),
			strings.Join(v.Recommendations, "; "),
			formatFields(v.Fields),
		})
	}
	if err := writeTable(f, documentsSheet, header, headers, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(documentsSheet, "A", "B", 20)
	_ = f.SetColWidth(documentsSheet, "C", "C", 28)
	_ = f.SetColWidth(documentsSheet, "E", "E", 18)
	_ = f.SetColWidth(documentsSheet, "I", "K", 48)
	return nil
}

// writeCompliance lays out one checklist row per required document type,
// followed by the client-level outcome.
func writeCompliance(f *excelize.File, header int, compliance []domain.ComplianceVerdict) error {
	headers := []string{"Client ID", "Client Type", "Requirement", "Status", "Risk Level", "Overall Status"}
	var rows [][]any
	for _, c := range compliance {
		submitted := make(map[domain.DocumentType]bool, len(c.Submitted))
		for _, t := range c.Submitted {
			submitted[t] = true
		}
		for _, req := range c.Required {
			state := "missing"
			if submitted[req] {
				state = "submitted"
			}
			rows = append(rows, []any{c.ClientID, string(c.ClientType), string(req), state, "", ""})
		}
		for _, issue := range c.CrossDocumentIssues {
			rows = append(rows, []any{c.ClientID, string(c.ClientType), "cross-document check", issue, "", ""})
		}
		rows = append(rows, []any{c.ClientID, string(c.ClientType), "overall", "", string(c.RiskLevel), string(c.OverallStatus)})
	}
	if err := writeTable(f, complianceSheet, header, headers, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(complianceSheet, "A", "C", 22)
	_ = f.SetColWidth(complianceSheet, "D", "D", 60)
	return nil
}

func writeSummary(f *excelize.File, header int, s domain.BatchSummary) error {
	rows := [][]any{
		{"Total Documents", s.TotalDocuments},
		{"Processed Successfully", s.ProcessedSuccessfully},
		{"Compliance Rate (%)", s.ComplianceRate},
		{"Average Confidence", s.AverageConfidence},
		{"Issues Found", s.IssuesFound},
		{"Generated At", s.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	if err := writeTable(f, summarySheet, header, []string{"Metric", "Value"}, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(summarySheet, "A", "B", 26)
	return nil
}

func writeTable(f *excelize.File, sheet string, header int, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx %s header: %w", sheet, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return fmt.Errorf("xlsx %s header style: %w", sheet, err)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx %s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}

func formatFields(fields domain.ExtractedFields) string {
	parts := make([]string, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, "; ")
}
