package ledger

import (
	"context"
	"fmt"
)

// MinPasswordLength é o menor PIN aceito por UpdatePassword
const MinPasswordLength = 4

// CheckPassword compara candidate com o PIN salvo. Não há bloqueio nem hash.
func (l *Ledger) CheckPassword(candidate string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return candidate == l.password
}

// UpdatePassword troca o PIN depois de conferir o atual. A confirmação do
// novo PIN fica com o chamador.
func (l *Ledger) UpdatePassword(ctx context.Context, current, next string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current != l.password {
		l.logger.Info("password change rejected: current password mismatch")
		return ErrAuthFailed
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, MinPasswordLength)
	}

	l.password = next
	l.logger.Info("password changed")
	return l.persist(ctx, "update_password", map[string]string{l.key(keyPassword): next})
}
