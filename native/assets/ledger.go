package assets

import (
	"errors"
	"math/big"
	"sync"

	"tokenmart/core/types"
	"tokenmart/native/market"
)

var (
	ErrUnsupportedPayToken = errors.New("assets: unsupported payment token")
	ErrInsufficientFunds   = errors.New("assets: insufficient funds")
	ErrInsufficientAllow   = errors.New("assets: insufficient allowance")
	ErrNegativeAmount      = errors.New("assets: negative amount")
)

type allowanceKey struct {
	token   [20]byte
	owner   [20]byte
	spender [20]byte
}

// Ledger tracks the native currency and the canonical payment token for
// every account, plus pull allowances granted to spenders. It implements
// market.PaymentTransferor.
//
// Pulls in the payment token require a prior Approve by the source. Pulls in
// the native currency are honored directly: the amount stands in for the
// value a caller attached to its marketplace call, which the dispatch layer
// has already authenticated.
type Ledger struct {
	mu         sync.RWMutex
	payToken   [20]byte
	accounts   map[[20]byte]*types.Account
	allowances map[allowanceKey]*big.Int
}

// NewLedger creates a ledger whose token balances are denominated in the
// given canonical payment token address.
func NewLedger(payToken [20]byte) *Ledger {
	return &Ledger{
		payToken:   payToken,
		accounts:   make(map[[20]byte]*types.Account),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

// PayToken returns the canonical payment token the ledger is denominated in.
func (l *Ledger) PayToken() [20]byte { return l.payToken }

func (l *Ledger) account(addr [20]byte) *types.Account {
	acc, ok := l.accounts[addr]
	if !ok {
		acc = (&types.Account{}).EnsureBalances()
		l.accounts[addr] = acc
	}
	return acc.EnsureBalances()
}

func (l *Ledger) balance(acc *types.Account, token [20]byte) (*big.Int, error) {
	switch token {
	case market.NativeToken:
		return acc.BalanceNative, nil
	case l.payToken:
		return acc.BalanceToken, nil
	default:
		return nil, ErrUnsupportedPayToken
	}
}

// Mint credits an account, used for genesis funding and tests.
func (l *Ledger) Mint(addr [20]byte, token [20]byte, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	balance, err := l.balance(l.account(addr), token)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	return nil
}

// BalanceOf returns the balance of an account in the given token.
func (l *Ledger) BalanceOf(addr [20]byte, token [20]byte) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return big.NewInt(0), nil
	}
	balance, err := l.balance(acc.EnsureBalances(), token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(balance), nil
}

// Approve grants a spender a pull allowance over the owner's payment-token
// balance, replacing any previous allowance.
func (l *Ledger) Approve(owner, spender [20]byte, token [20]byte, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != l.payToken {
		return ErrUnsupportedPayToken
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.allowances[allowanceKey{token: token, owner: owner, spender: spender}] = new(big.Int).Set(amount)
	return nil
}

func (l *Ledger) move(token [20]byte, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	fromBalance, err := l.balance(l.account(from), token)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBalance, err := l.balance(l.account(to), token)
	if err != nil {
		return err
	}
	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)
	return nil
}

// Transfer implements market.PaymentTransferor for balances the caller
// already controls.
func (l *Ledger) Transfer(token [20]byte, from, to [20]byte, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(token, from, to, amount)
}

// Pull implements market.PaymentTransferor. Payment-token pulls consume the
// source's allowance toward the destination-side spender (the engine vault);
// native pulls are honored directly, see type docs.
func (l *Ledger) Pull(token [20]byte, from, to [20]byte, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if token != market.NativeToken {
		k := allowanceKey{token: token, owner: from, spender: to}
		allowance, ok := l.allowances[k]
		if !ok || allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllow
		}
		if err := l.move(token, from, to, amount); err != nil {
			return err
		}
		allowance.Sub(allowance, amount)
		return nil
	}
	return l.move(token, from, to, amount)
}
