package ledger

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrNotFound          = errors.New("not found")
	ErrAuthFailed        = errors.New("incorrect password")
	ErrPasswordTooShort  = errors.New("password too short")

	// ErrPersistenceFailed envolve os erros do store. A mudança em memória que
	// precedeu a gravação é mantida.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrKeyNotLoaded bloqueia a gravação de uma chave cuja leitura falhou no Load.
	ErrKeyNotLoaded = errors.New("key not loaded")
)
