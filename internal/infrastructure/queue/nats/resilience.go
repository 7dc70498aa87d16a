package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/kyc-validator/internal/core/domain"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/resilience"
)

// Connection states a publish recovers from once the client reconnects.
var temporaryNATSErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

// markTemporary tags connection-level failures as domain.ErrTemporary so the
// shared retry policy and the HTTP 503 mapping both recognise them.
func markTemporary(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	for _, target := range temporaryNATSErrors {
		if errors.Is(err, target) {
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
	}
	return err
}
