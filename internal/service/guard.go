package service

import (
	"context"
	"fmt"

	"github.com/mcalder/pocketbank/internal/database/repository"
	"github.com/mcalder/pocketbank/internal/ledger"
)

// AuthState is the lifecycle position of one login session.
type AuthState string

const (
	StateAwaitingPIN   AuthState = "awaiting_pin"
	StateAuthenticated AuthState = "authenticated"
	StateLocked        AuthState = "locked"
)

// maxPINAttempts is how many consecutive wrong PINs a session tolerates
// before locking.
const maxPINAttempts = 3

// Guard gates account access behind PIN verification.
type Guard struct {
	Accounts *repository.AccountRepo
}

// Begin resolves the username and opens a fresh session awaiting its first
// PIN attempt. Unknown usernames surface ledger.ErrNotFound.
func (g *Guard) Begin(ctx context.Context, username string) (*LoginSession, error) {
	acct, err := g.Accounts.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	return &LoginSession{guard: g, account: acct, state: StateAwaitingPIN}, nil
}

// LoginSession tracks PIN attempts for one username. A session is not safe
// for concurrent use; the engine serves a single user.
type LoginSession struct {
	guard    *Guard
	account  *ledger.Account
	attempts int
	state    AuthState
}

func (s *LoginSession) State() AuthState { return s.state }

func (s *LoginSession) Username() string { return s.account.Username }

// AuthResult reports one Verify outcome. Err carries
// ledger.ErrInvalidCredential on a rejection and ledger.ErrLocked once the
// session locks; Account is set only once authenticated.
type AuthResult struct {
	State        AuthState
	Account      *ledger.Account
	AttemptsLeft int
	Err          error
}

// Verify hashes the candidate and compares digests; the clear PIN never
// reaches storage or logs. Locked stays locked and authenticated stays
// authenticated no matter what is submitted afterwards.
func (s *LoginSession) Verify(candidatePIN string) AuthResult {
	switch s.state {
	case StateLocked:
		return AuthResult{State: StateLocked, Err: ledger.ErrLocked}
	case StateAuthenticated:
		return AuthResult{State: StateAuthenticated, Account: s.account}
	}

	if ledger.HashPIN(candidatePIN) == s.account.PINHash {
		s.state = StateAuthenticated
		return AuthResult{State: StateAuthenticated, Account: s.account}
	}

	s.attempts++
	if s.attempts >= maxPINAttempts {
		s.state = StateLocked
		return AuthResult{State: StateLocked, Err: ledger.ErrLocked}
	}
	return AuthResult{
		State:        StateAwaitingPIN,
		AttemptsLeft: maxPINAttempts - s.attempts,
		Err:          ledger.ErrInvalidCredential,
	}
}

// ResetPIN persists a new PIN hash for a locked session's account. The
// session stays locked; the holder logs in again through a fresh session.
func (s *LoginSession) ResetPIN(ctx context.Context, newPINHash string) error {
	if s.state != StateLocked {
		return fmt.Errorf("pin reset is only offered after lockout")
	}
	return s.guard.Accounts.UpdatePINHash(ctx, s.account.Username, newPINHash)
}
