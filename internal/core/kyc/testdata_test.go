package kyc

import (
	"time"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

const passportText = `PASSPORT
Full Name: John Smith
Passport No: X12345678
Nationality: British
Date of Birth: 1985-04-12
Expiry Date: 2030-01-15
Place of Birth: London`

const staleUtilityBillText = `ACME Power - Electricity Utility Bill
Customer Name: John Smith
Service Address: 12 High Street, Springfield
Account Number: 12345678
Service Date: 2026-01-10
Amount Due: $120.00`

const freshUtilityBillText = `ACME Power - Electricity Utility Bill
Customer Name: JOHN  SMITH
Service Address: 12 High Street, Springfield
Account Number: 12345678
Service Date: 2026-05-15
Amount Due: $120.00`

// Text layers of some PDFs come out as one line.
const singleLinePassportText = `PASSPORT Full Name: John Smith Date of Birth: 01/02/1980 Passport No: X12345678 Nationality: British Expiry Date: 2030-01-15 Place of Birth: London`

const singleLineUtilityBillText = `ACME Power Electricity Utility Bill Customer Name: JOHN  SMITH Service Address: 1 Main St Service Date: 2026-05-15 Account Number: 12345678 Amount Due: $120.00`

func fixedNow() time.Time {
	return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func hasIssue(issues []domain.Issue, code domain.IssueCode, field string) bool {
	for _, issue := range issues {
		if issue.Code == code && (field == "" || issue.Field == field) {
			return true
		}
	}
	return false
}
