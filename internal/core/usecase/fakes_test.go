package usecase

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type docRepoFake struct {
	doc         *domain.Document
	created     *domain.Document
	clientDocs  []domain.Document
	createErr   error
	getErr      error
	saveErr     error
	listErr     error
	statusErr   error
	failErr     error
	statusCalls []statusCall
	verdictID   string
	verdict     *domain.DocumentVerdict
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failErr != nil {
		return f.failErr
	}
	return f.statusErr
}

func (f *docRepoFake) SaveVerdict(_ context.Context, id string, verdict domain.DocumentVerdict) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.verdictID = id
	f.verdict = &verdict
	return nil
}

func (f *docRepoFake) ListByClient(context.Context, string) ([]domain.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.clientDocs, nil
}

type storageFake struct {
	savedKey   string
	savedBody  string
	deletedKey string
	saveErr    error
	deleteErr  error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.savedBody)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedKey = key
	return nil
}

type queueFake struct {
	documentID string
	err        error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type extractorFake struct {
	extracted domain.ExtractedText
	err       error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (domain.ExtractedText, error) {
	if f.err != nil {
		return domain.ExtractedText{}, f.err
	}
	return f.extracted, nil
}

type validatorFake struct {
	got     domain.RawDocument
	verdict domain.DocumentVerdict
}

func (f *validatorFake) Validate(raw domain.RawDocument) domain.DocumentVerdict {
	f.got = raw
	v := f.verdict
	v.Document = raw.Ref()
	return v
}

type complianceRepoFake struct {
	saved *domain.ComplianceCheck
	err   error
}

func (f *complianceRepoFake) SaveCompliance(_ context.Context, check *domain.ComplianceCheck) error {
	if f.err != nil {
		return f.err
	}
	f.saved = check
	return nil
}

type observerFake struct {
	verdicts   []domain.DocumentVerdict
	compliance []domain.ComplianceVerdict
}

func (f *observerFake) ObserveVerdict(v domain.DocumentVerdict) {
	f.verdicts = append(f.verdicts, v)
}

func (f *observerFake) ObserveCompliance(v domain.ComplianceVerdict) {
	f.compliance = append(f.compliance, v)
}
