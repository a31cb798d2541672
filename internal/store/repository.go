// Package store persiste os blobs do ledger por chave.
//
// Todo backend segue o mesmo contrato: ler uma chave, ou abrir uma transação
// que grava várias chaves e faz commit de todas juntas.
package store

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound é retornado por Get quando a chave nunca foi gravada
	ErrKeyNotFound = errors.New("key not found")
	// ErrTxDone é retornado quando uma transação finalizada é reutilizada
	ErrTxDone = errors.New("transaction already committed or rolled back")
)

// Store define a interface de armazenamento chave-valor do ledger
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx interface para transações. Rollback depois de Commit não faz nada,
// então o chamador pode sempre usar defer tx.Rollback()
type Tx interface {
	Set(ctx context.Context, key, value string) error
	Commit() error
	Rollback() error
}

// SetAll grava todas as entradas numa única transação
func SetAll(ctx context.Context, s Store, entries map[string]string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range entries {
		if err := tx.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}
