package usecase

import "github.com/kirillkom/kyc-validator/internal/core/domain"

type nopObserver struct{}

func (nopObserver) ObserveVerdict(domain.DocumentVerdict)      {}
func (nopObserver) ObserveCompliance(domain.ComplianceVerdict) {}
