package service

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletNotFound      = errors.New("wallet not found")

	ErrSelfTip          = errors.New("cannot tip yourself")
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrRateLimited      = errors.New("rate limit exceeded")

	ErrChapterNotFound = errors.New("chapter not found")
	ErrNotPremium      = errors.New("chapter is not premium")
	ErrAlreadyUnlocked = errors.New("chapter already unlocked")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBankDetailsRequired = errors.New("bank details required")
	ErrNotPending          = errors.New("transaction is not pending")
	ErrBelowMinimum        = errors.New("amount below minimum")
	ErrNotDivisible        = errors.New("amount not divisible by exchange block")

	ErrAccessDenied      = errors.New("access denied")
	ErrDuplicatePurchase = errors.New("purchase already credited")
)
