package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

const passportText = `PASSPORT
Full Name: John Smith
Passport No: X12345678
Nationality: British
Date of Birth: 1985-04-12
Place of Birth: London`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunGroupsFilesByClient(t *testing.T) {
	dir := t.TempDir()
	passport := writeFile(t, dir, "ACME_passport.txt", []byte(passportText))
	empty := writeFile(t, dir, "ACME_notes.txt", nil)
	binary := writeFile(t, dir, "GLOBEX_scan.bin", []byte{0xff, 0xfe, 0x00, 0x01})
	report := filepath.Join(dir, "report.xlsx")

	var stdout, stderr bytes.Buffer
	args := []string{"-client-type", "individual", "-strict=false", "-ocr=false", "-xlsx", report, passport, empty, binary}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v (stderr: %s)", err, stderr.String())
	}

	var out output
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	if len(out.Clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(out.Clients))
	}

	acme := out.Clients[0]
	if acme.Compliance.ClientID != "ACME" || len(acme.Verdicts) != 2 {
		t.Fatalf("unexpected ACME result: %+v", acme.Compliance)
	}
	if acme.Verdicts[0].Classification.DocumentType != domain.DocTypePassport {
		t.Fatalf("expected passport, got %s", acme.Verdicts[0].Classification.DocumentType)
	}
	if acme.Verdicts[1].Status != domain.VerdictRejected {
		t.Fatalf("empty file should be rejected, got %s", acme.Verdicts[1].Status)
	}

	globex := out.Clients[1]
	if globex.Compliance.ClientID != "GLOBEX" || globex.Verdicts[0].Status != domain.VerdictRejected {
		t.Fatalf("binary file should be rejected for GLOBEX: %+v", globex.Verdicts)
	}

	if out.Summary.TotalDocuments != 3 {
		t.Fatalf("expected 3 documents in summary, got %d", out.Summary.TotalDocuments)
	}
	if info, err := os.Stat(report); err != nil || info.Size() == 0 {
		t.Fatalf("expected xlsx report at %s: %v", report, err)
	}
}

func TestRunClientIDOverride(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "first.txt", []byte(passportText))
	b := writeFile(t, dir, "second.txt", []byte("utility bill"))

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-client-id", "C-42", "-ocr=false", a, b}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var out output
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out.Clients) != 1 || out.Clients[0].Compliance.ClientID != "C-42" {
		t.Fatalf("expected one client C-42, got %+v", out.Clients)
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "ACME_passport.txt", []byte(passportText))

	tests := []struct {
		name string
		args []string
	}{
		{"no files", nil},
		{"bad strict flag", []string{"-strict", "maybe", file}},
		{"unknown client type", []string{"-client-type", "trust", file}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), tc.args, &stdout, &stderr); err == nil {
				t.Fatalf("expected error, output: %s", stdout.String())
			}
		})
	}
}
