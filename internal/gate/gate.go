// Package gate segura uma ação administrativa até o PIN ser digitado.
//
//	Idle --Request--> AwaitingPassword --Submit(ok)--> Authorized --action--> Idle
//	                  AwaitingPassword --Submit(wrong)--> AwaitingPassword
//	                  AwaitingPassword --Cancel--> Idle (ação descartada)
//
// Um Gate não é seguro para uso concorrente; use um por sessão.
package gate

import (
	"context"
	"errors"

	"github.com/jbrasil/stockledger/internal/ledger"
)

// ErrNoPendingAction é retornado por Submit quando nada está aguardando
var ErrNoPendingAction = errors.New("no pending action")

type State int

const (
	StateIdle State = iota
	StateAwaitingPassword
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Checker verifica um PIN. *ledger.Ledger implementa.
type Checker interface {
	CheckPassword(candidate string) bool
}

// Action é o trabalho que fica esperando o PIN
type Action struct {
	Name string
	Run  func(ctx context.Context) error
}

type Gate struct {
	checker  Checker
	state    State
	pending  *Action
	attempts int
}

func New(checker Checker) *Gate {
	return &Gate{checker: checker}
}

// Request guarda a ação e passa a aguardar o PIN. Um Request posterior
// substitui o que estava pendente.
func (g *Gate) Request(action Action) {
	g.pending = &action
	g.attempts = 0
	g.state = StateAwaitingPassword
}

// Submit confere candidate. PIN errado retorna ledger.ErrAuthFailed e
// continua aguardando. PIN certo executa a ação pendente uma única vez, limpa
// a pendência e volta para Idle; o erro da ação é retornado sem alteração.
func (g *Gate) Submit(ctx context.Context, candidate string) error {
	if g.state != StateAwaitingPassword || g.pending == nil {
		return ErrNoPendingAction
	}
	if !g.checker.CheckPassword(candidate) {
		g.attempts++
		return ledger.ErrAuthFailed
	}

	g.state = StateAuthorized
	action := g.pending
	g.pending = nil
	defer func() {
		g.state = StateIdle
		g.attempts = 0
	}()

	if action.Run == nil {
		return nil
	}
	return action.Run(ctx)
}

// Cancel fecha o gate e descarta a ação pendente
func (g *Gate) Cancel() {
	g.pending = nil
	g.attempts = 0
	g.state = StateIdle
}

func (g *Gate) State() State {
	return g.state
}

// Pending retorna o nome da ação aguardando
func (g *Gate) Pending() (string, bool) {
	if g.pending == nil {
		return "", false
	}
	return g.pending.Name, true
}

// Attempts conta os PINs errados desde o Request atual
func (g *Gate) Attempts() int {
	return g.attempts
}

// Guard executa action atrás de um gate novo com uma única tentativa de PIN.
// Usado por chamadores sem sessão, que recebem o PIN junto com a requisição.
func Guard(ctx context.Context, checker Checker, pin string, action Action) error {
	g := New(checker)
	g.Request(action)
	if err := g.Submit(ctx, pin); err != nil {
		g.Cancel()
		return err
	}
	return nil
}
