package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/debdutta777/noobwriter-sub000/internal/config"
	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"
	"github.com/debdutta777/noobwriter-sub000/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

var idSeq atomic.Int64

func init() {
	idSeq.Store(time.Now().UnixNano() % 1_000_000_000)
}

func nextID() int64 { return idSeq.Add(1) }

func testConfig() *config.Config {
	return &config.Config{
		MinTipAmount:       10,
		MaxTipAmount:       10000,
		MaxTipsPerMinute:   10,
		TipRateWindow:      time.Minute,
		AuthorSharePercent: 70,
		PayoutMinCoins:     3000,
		PayoutBlockCoins:   300,
		PayoutBlockINR:     100,
		ExchangeMinCoins:   20000,
		ExchangeBlockCoins: 2000,
		ExchangeBlockINR:   1000,
		WelcomeCoins:       50,
	}
}

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		if filepath.Ext(f.Name()) != ".sql" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	return db
}

// newUser creates a profile and an empty wallet, then credits it.
func newUser(t *testing.T, db *pgxpool.Pool, ledger *service.LedgerService, role domain.Role, coins int64) int64 {
	t.Helper()
	ctx := context.Background()
	id := nextID()

	profiles := repository.NewProfileRepository(db)
	if err := profiles.Create(ctx, &domain.Profile{
		ID:       id,
		Username: fmt.Sprintf("user%d", id),
		Role:     role,
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	wallets := repository.NewWalletRepository(db)
	if _, err := wallets.Ensure(ctx, id, 0); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}

	if coins > 0 {
		if _, err := ledger.AddCoins(ctx, id, coins, domain.TypePurchase, 0, "test credit", nil); err != nil {
			t.Fatalf("fund wallet: %v", err)
		}
	}
	return id
}

func getWallet(t *testing.T, db *pgxpool.Pool, userID int64) *domain.Wallet {
	t.Helper()
	w, err := repository.NewWalletRepository(db).GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w == nil {
		t.Fatalf("wallet %d not found", userID)
	}
	return w
}

// checkConservation asserts coin_balance equals the sum of the user's
// completed ledger entries.
func checkConservation(t *testing.T, db *pgxpool.Pool, userID int64) {
	t.Helper()
	w := getWallet(t, db, userID)
	sum, err := repository.NewTransactionRepository(db).SumCompletedCoins(context.Background(), userID)
	if err != nil {
		t.Fatalf("sum completed coins: %v", err)
	}
	if w.CoinBalance != sum {
		t.Fatalf("conservation broken for user %d: balance=%d ledger sum=%d", userID, w.CoinBalance, sum)
	}
}

func TestTipMovesSharesAndConserves(t *testing.T) {
	db := setupDB(t)
	ledger := service.NewLedgerService(db, 70)
	ctx := context.Background()

	sender := newUser(t, db, ledger, domain.RoleReader, 1000)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	res, err := ledger.ProcessTip(ctx, sender, author, 100, 0, 0)
	if err != nil {
		t.Fatalf("process tip: %v", err)
	}
	if res.SenderBalance != 900 {
		t.Fatalf("expected sender balance 900, got %d", res.SenderBalance)
	}
	if res.AuthorShare != 70 || res.PlatformFee != 30 {
		t.Fatalf("expected 70/30 split, got share=%d fee=%d", res.AuthorShare, res.PlatformFee)
	}

	if w := getWallet(t, db, author); w.CoinBalance != 70 || w.TotalEarned != 70 {
		t.Fatalf("expected author wallet 70/70, got balance=%d earned=%d", w.CoinBalance, w.TotalEarned)
	}
	if w := getWallet(t, db, sender); w.TotalSpent != 100 {
		t.Fatalf("expected sender total_spent 100, got %d", w.TotalSpent)
	}

	checkConservation(t, db, sender)
	checkConservation(t, db, author)
}

func TestConcurrentTipsNeverOverdraw(t *testing.T) {
	db := setupDB(t)
	ledger := service.NewLedgerService(db, 70)
	ctx := context.Background()

	sender := newUser(t, db, ledger, domain.RoleReader, 500)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	const attempts = 10
	var wg sync.WaitGroup
	var ok, insufficient atomic.Int32

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.ProcessTip(ctx, sender, author, 100, 0, 0)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, service.ErrInsufficientBalance):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected tip error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 5 || insufficient.Load() != 5 {
		t.Fatalf("expected 5 successes and 5 refusals, got %d/%d", ok.Load(), insufficient.Load())
	}
	if w := getWallet(t, db, sender); w.CoinBalance != 0 {
		t.Fatalf("expected sender drained to 0, got %d", w.CoinBalance)
	}
	if w := getWallet(t, db, author); w.CoinBalance != 350 {
		t.Fatalf("expected author balance 350, got %d", w.CoinBalance)
	}
	checkConservation(t, db, sender)
	checkConservation(t, db, author)
}

func TestTipRateLimitBlocksEleventh(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	tips := service.NewTipService(db, ledger, cfg)
	ctx := context.Background()

	sender := newUser(t, db, ledger, domain.RoleReader, 10000)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	for i := 0; i < cfg.MaxTipsPerMinute; i++ {
		if _, err := tips.SendTip(ctx, sender, author, 10, 0, 0); err != nil {
			t.Fatalf("tip %d: %v", i+1, err)
		}
	}

	_, err := tips.SendTip(ctx, sender, author, 10, 0, 0)
	if !errors.Is(err, service.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on tip %d, got %v", cfg.MaxTipsPerMinute+1, err)
	}
}

func TestUnlockChargesOnceAndIsIdempotent(t *testing.T) {
	db := setupDB(t)
	ledger := service.NewLedgerService(db, 70)
	unlocks := service.NewUnlockService(db, ledger)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 500)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	ch := &domain.Chapter{SeriesID: 1, AuthorID: author, Title: "Chapter One", IsPremium: true, CoinPrice: 300}
	if err := repository.NewChapterRepository(db).Create(ctx, ch); err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	resp, err := unlocks.UnlockPremiumChapter(ctx, reader, ch.ID)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if resp.AlreadyUnlocked || resp.NewBalance != 200 {
		t.Fatalf("expected fresh unlock with balance 200, got %+v", resp)
	}
	if w := getWallet(t, db, author); w.CoinBalance != 210 {
		t.Fatalf("expected author share 210, got %d", w.CoinBalance)
	}

	// Second unlock must not charge again.
	resp, err = unlocks.UnlockPremiumChapter(ctx, reader, ch.ID)
	if err != nil {
		t.Fatalf("repeat unlock: %v", err)
	}
	if !resp.AlreadyUnlocked {
		t.Fatalf("expected already_unlocked on repeat, got %+v", resp)
	}
	if w := getWallet(t, db, reader); w.CoinBalance != 200 {
		t.Fatalf("expected balance still 200, got %d", w.CoinBalance)
	}

	checkConservation(t, db, reader)
	checkConservation(t, db, author)
}

func TestConcurrentUnlocksChargeOnce(t *testing.T) {
	db := setupDB(t)
	ledger := service.NewLedgerService(db, 70)
	unlocks := service.NewUnlockService(db, ledger)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 1000)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	ch := &domain.Chapter{SeriesID: 1, AuthorID: author, Title: "Raced Chapter", IsPremium: true, CoinPrice: 100}
	if err := repository.NewChapterRepository(db).Create(ctx, ch); err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := unlocks.UnlockPremiumChapter(ctx, reader, ch.ID); err != nil {
				t.Errorf("concurrent unlock: %v", err)
			}
		}()
	}
	wg.Wait()

	if w := getWallet(t, db, reader); w.CoinBalance != 900 {
		t.Fatalf("expected exactly one charge (balance 900), got %d", w.CoinBalance)
	}
	checkConservation(t, db, reader)
}

func TestUnlockInsufficientBalance(t *testing.T) {
	db := setupDB(t)
	ledger := service.NewLedgerService(db, 70)
	unlocks := service.NewUnlockService(db, ledger)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 50)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	ch := &domain.Chapter{SeriesID: 1, AuthorID: author, Title: "Pricey Chapter", IsPremium: true, CoinPrice: 100}
	if err := repository.NewChapterRepository(db).Create(ctx, ch); err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	resp, err := unlocks.UnlockPremiumChapter(ctx, reader, ch.ID)
	if !errors.Is(err, service.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if resp == nil || resp.Required != 100 {
		t.Fatalf("expected required=100 in response, got %+v", resp)
	}
	if w := getWallet(t, db, reader); w.CoinBalance != 50 {
		t.Fatalf("expected balance untouched at 50, got %d", w.CoinBalance)
	}
	if unlocked, _ := repository.NewUnlockRepository(db).Exists(ctx, reader, ch.ID); unlocked {
		t.Fatal("unlock must not be granted on a failed charge")
	}
}

func TestPayoutRoundTrip(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	withdrawals := service.NewWithdrawalService(db, ledger, cfg)
	ctx := context.Background()

	author := newUser(t, db, ledger, domain.RoleWriter, 3000)

	receipt, err := withdrawals.RequestPayout(ctx, author, 3000, domain.BankDetails{AccountNumber: "12345", IFSC: "HDFC0001"})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}
	if receipt.INRAmount != 1000 {
		t.Fatalf("expected INR 1000 for 3000 coins, got %.2f", receipt.INRAmount)
	}

	// Pending: balance unchanged, but the coins are no longer spendable.
	w := getWallet(t, db, author)
	if w.CoinBalance != 3000 || w.ReservedCoins != 3000 || w.Spendable() != 0 {
		t.Fatalf("expected 3000 reserved with 0 spendable, got %+v", w)
	}

	// Reserved coins can't back a second request.
	if _, err := withdrawals.RequestPayout(ctx, author, 3000, domain.BankDetails{AccountNumber: "12345"}); !errors.Is(err, service.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on double request, got %v", err)
	}

	released, err := withdrawals.CancelPayout(ctx, author, receipt.TransactionID)
	if err != nil {
		t.Fatalf("cancel payout: %v", err)
	}
	if released != 3000 {
		t.Fatalf("expected 3000 coins released, got %d", released)
	}

	w = getWallet(t, db, author)
	if w.CoinBalance != 3000 || w.ReservedCoins != 0 || w.Spendable() != 3000 {
		t.Fatalf("expected full balance restored, got %+v", w)
	}

	// Cancelling twice must fail: the request is no longer pending.
	if _, err := withdrawals.CancelPayout(ctx, author, receipt.TransactionID); !errors.Is(err, service.ErrNotPending) {
		t.Fatalf("expected ErrNotPending on double cancel, got %v", err)
	}

	checkConservation(t, db, author)
}

func TestPayoutConfirmBurnsCoins(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	withdrawals := service.NewWithdrawalService(db, ledger, cfg)
	ctx := context.Background()

	author := newUser(t, db, ledger, domain.RoleWriter, 4000)
	admin := newUser(t, db, ledger, domain.RoleAdmin, 0)

	receipt, err := withdrawals.RequestPayout(ctx, author, 3000, domain.BankDetails{UPIID: "author@upi"})
	if err != nil {
		t.Fatalf("request payout: %v", err)
	}

	coins, err := withdrawals.ConfirmPayout(ctx, admin, receipt.TransactionID)
	if err != nil {
		t.Fatalf("confirm payout: %v", err)
	}
	if coins != 3000 {
		t.Fatalf("expected 3000 coins settled, got %d", coins)
	}

	w := getWallet(t, db, author)
	if w.CoinBalance != 1000 || w.ReservedCoins != 0 {
		t.Fatalf("expected balance 1000 with nothing reserved, got %+v", w)
	}
	checkConservation(t, db, author)
}

func TestExchangeLifecycle(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	withdrawals := service.NewWithdrawalService(db, ledger, cfg)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 44000)
	admin := newUser(t, db, ledger, domain.RoleAdmin, 0)
	bank := domain.BankDetails{AccountName: "Reader", AccountNumber: "999", IFSC: "SBIN0001"}

	// Confirm path.
	receipt, err := withdrawals.RequestExchange(ctx, reader, 20000, bank)
	if err != nil {
		t.Fatalf("request exchange: %v", err)
	}
	if w := getWallet(t, db, reader); w.CoinBalance != 44000 || w.ReservedCoins != 20000 {
		t.Fatalf("expected pending reservation, got %+v", w)
	}

	if _, err := withdrawals.ConfirmExchange(ctx, admin, receipt.TransactionID, "paid via NEFT", "neft-001"); err != nil {
		t.Fatalf("confirm exchange: %v", err)
	}
	if w := getWallet(t, db, reader); w.CoinBalance != 24000 || w.ReservedCoins != 0 {
		t.Fatalf("expected 20000 burned on confirm, got %+v", w)
	}

	// Reject path: balance must come back untouched.
	receipt, err = withdrawals.RequestExchange(ctx, reader, 20000, bank)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if err := withdrawals.RejectExchange(ctx, admin, receipt.TransactionID, "account mismatch"); err != nil {
		t.Fatalf("reject exchange: %v", err)
	}
	w := getWallet(t, db, reader)
	if w.CoinBalance != 24000 || w.ReservedCoins != 0 {
		t.Fatalf("expected balance unchanged after reject, got %+v", w)
	}

	entry, err := repository.NewTransactionRepository(db).GetByID(ctx, receipt.TransactionID)
	if err != nil || entry == nil {
		t.Fatalf("load rejected entry: %v", err)
	}
	if entry.PaymentStatus != domain.StatusRejected {
		t.Fatalf("expected rejected status, got %s", entry.PaymentStatus)
	}
	details, ok := entry.Meta.(*domain.ExchangeDetails)
	if !ok {
		t.Fatalf("expected exchange meta, got %T", entry.Meta)
	}
	if details.RejectReason != "account mismatch" {
		t.Fatalf("expected reject reason recorded, got %q", details.RejectReason)
	}

	checkConservation(t, db, reader)
}

func TestExchangeValidationHasNoSideEffects(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	withdrawals := service.NewWithdrawalService(db, ledger, cfg)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 25000)
	bank := domain.BankDetails{UPIID: "reader@upi"}

	if _, err := withdrawals.RequestExchange(ctx, reader, 21000, bank); !errors.Is(err, service.ErrNotDivisible) {
		t.Fatalf("expected ErrNotDivisible, got %v", err)
	}
	if _, err := withdrawals.RequestExchange(ctx, reader, 19999, bank); !errors.Is(err, service.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if _, err := withdrawals.RequestExchange(ctx, reader, 20000, domain.BankDetails{}); !errors.Is(err, service.ErrBankDetailsRequired) {
		t.Fatalf("expected ErrBankDetailsRequired, got %v", err)
	}

	w := getWallet(t, db, reader)
	if w.CoinBalance != 25000 || w.ReservedCoins != 0 {
		t.Fatalf("expected wallet untouched, got %+v", w)
	}
	entries, err := repository.NewTransactionRepository(db).GetByUserIDAndType(ctx, reader, domain.TypeCoinExchange, 10)
	if err != nil {
		t.Fatalf("list exchanges: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no exchange rows, got %d", len(entries))
	}
}

func TestSpendAfterUnlockRespectsBalance(t *testing.T) {
	db := setupDB(t)
	ledger := service.NewLedgerService(db, 70)
	unlocks := service.NewUnlockService(db, ledger)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 500)
	author := newUser(t, db, ledger, domain.RoleWriter, 0)

	ch := &domain.Chapter{SeriesID: 2, AuthorID: author, Title: "Act One", IsPremium: true, CoinPrice: 300}
	if err := repository.NewChapterRepository(db).Create(ctx, ch); err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if _, err := unlocks.UnlockPremiumChapter(ctx, reader, ch.ID); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	// 200 left; a 300-coin tip must be refused without touching the wallet.
	if _, err := ledger.ProcessTip(ctx, reader, author, 300, 0, 0); !errors.Is(err, service.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if w := getWallet(t, db, reader); w.CoinBalance != 200 {
		t.Fatalf("expected balance 200, got %d", w.CoinBalance)
	}
	checkConservation(t, db, reader)
}

func TestDeductRespectsReservation(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	withdrawals := service.NewWithdrawalService(db, ledger, cfg)
	ctx := context.Background()

	author := newUser(t, db, ledger, domain.RoleWriter, 3500)
	if _, err := withdrawals.RequestPayout(ctx, author, 3000, domain.BankDetails{UPIID: "a@upi"}); err != nil {
		t.Fatalf("request payout: %v", err)
	}

	// 500 spendable; a 600-coin debit must be refused even though
	// coin_balance is 3500.
	if _, err := ledger.DeductCoins(ctx, author, 600, domain.TypeRefund, 0, "adjustment", nil); !errors.Is(err, service.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	after, err := ledger.DeductCoins(ctx, author, 500, domain.TypeRefund, 0, "adjustment", nil)
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if after != 0 {
		t.Fatalf("expected 0 spendable after deduct, got %d", after)
	}
	checkConservation(t, db, author)
}

func TestPendingQueueListsRequester(t *testing.T) {
	db := setupDB(t)
	cfg := testConfig()
	ledger := service.NewLedgerService(db, 70)
	withdrawals := service.NewWithdrawalService(db, ledger, cfg)
	ctx := context.Background()

	reader := newUser(t, db, ledger, domain.RoleReader, 20000)
	receipt, err := withdrawals.RequestExchange(ctx, reader, 20000, domain.BankDetails{UPIID: "queue@upi"})
	if err != nil {
		t.Fatalf("request exchange: %v", err)
	}

	pending, err := withdrawals.ListPendingExchanges(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.Transaction.ID == receipt.TransactionID {
			found = true
			if p.Username == "" {
				t.Fatal("expected requester username on pending row")
			}
		}
	}
	if !found {
		t.Fatalf("request %d missing from pending queue", receipt.TransactionID)
	}
}
