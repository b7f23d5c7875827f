package service

import (
	"context"
	"errors"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UnlockService is the premium chapter unlock workflow.
type UnlockService struct {
	ledger      *LedgerService
	chapterRepo *repository.ChapterRepository
	unlockRepo  *repository.UnlockRepository
	walletRepo  *repository.WalletRepository
}

func NewUnlockService(db *pgxpool.Pool, ledger *LedgerService) *UnlockService {
	return &UnlockService{
		ledger:      ledger,
		chapterRepo: repository.NewChapterRepository(db),
		unlockRepo:  repository.NewUnlockRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
	}
}

// UnlockResponse is the workflow result. Required is set when the unlock
// failed on balance, so the UI can prompt a top-up.
type UnlockResponse struct {
	AlreadyUnlocked bool  `json:"already_unlocked"`
	NewBalance      int64 `json:"new_balance"`
	AuthorShare     int64 `json:"-"`
	Required        int64 `json:"required,omitempty"`
}

// UnlockPremiumChapter charges the chapter's own coin price (any
// caller-supplied price is ignored) and grants permanent access. Idempotent:
// a second call for the same chapter succeeds without charging.
func (s *UnlockService) UnlockPremiumChapter(ctx context.Context, userID, chapterID int64) (*UnlockResponse, error) {
	ch, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChapterNotFound
	}
	if !ch.IsPremium || ch.CoinPrice <= 0 {
		return nil, ErrNotPremium
	}

	unlocked, err := s.unlockRepo.Exists(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return s.alreadyUnlocked(ctx, userID)
	}

	result, err := s.ledger.UnlockChapter(ctx, userID, ch)
	if err != nil {
		if errors.Is(err, ErrAlreadyUnlocked) {
			// Lost a race with a concurrent unlock of the same chapter;
			// the other call paid, this one didn't.
			return s.alreadyUnlocked(ctx, userID)
		}
		if errors.Is(err, ErrInsufficientBalance) {
			return &UnlockResponse{Required: ch.CoinPrice}, err
		}
		return nil, err
	}

	return &UnlockResponse{
		NewBalance:  result.NewBalance,
		AuthorShare: result.AuthorShare,
	}, nil
}

func (s *UnlockService) alreadyUnlocked(ctx context.Context, userID int64) (*UnlockResponse, error) {
	resp := &UnlockResponse{AlreadyUnlocked: true}
	if w, err := s.walletRepo.GetByUserID(ctx, userID); err == nil && w != nil {
		resp.NewBalance = w.Spendable()
	}
	return resp, nil
}

// ListUnlocks returns the user's unlocked chapters.
func (s *UnlockService) ListUnlocks(ctx context.Context, userID int64, limit int) ([]domain.ChapterUnlock, error) {
	return s.unlockRepo.ListByUser(ctx, userID, limit)
}
