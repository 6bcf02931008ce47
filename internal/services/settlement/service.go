// Package settlement keeps wallet balances and the transaction ledger
// consistent around calls to unreliable providers.
//
// Bill purchases follow validate, call, commit: the biller is called with
// no database transaction open and the wallet is debited only once the
// biller reports success. Bank payouts are debit first and compensate with
// a refund when the payout provider rejects them.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/metrics"
	"tekpay/internal/models"
	"tekpay/internal/providers"
	"tekpay/internal/providers/vtpass"
	"tekpay/internal/repositories"
	"tekpay/internal/services/ledger"
	"tekpay/internal/utils"
	"tekpay/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	operationPurchase = "purchase"
	operationRequery  = "requery"
	operationPayout   = "bank_transfer"

	platformVTpass      = "vtpass"
	platformFlutterwave = "flutterwave"
)

type Service struct {
	store    repositories.Store
	biller   Biller
	payouts  Payouts
	notifier Notifier
	logger   *zap.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewService(store repositories.Store, biller Biller, payouts Payouts, notifier Notifier, logger *zap.Logger, recorder metrics.Recorder) *Service {
	if store == nil {
		panic("store cannot be nil")
	}
	if biller == nil {
		panic("biller cannot be nil")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		store:    store,
		biller:   biller,
		payouts:  payouts,
		notifier: notifier,
		logger:   logger,
		metrics:  recorder,
		now:      time.Now,
	}
}

// ExecutePurchase buys a bill item for req.UserID.
//
// A success debits the wallet and records a success row in one database
// transaction. A processing answer records a pending row without touching
// the wallet. A classified failure records a failed row and is returned as
// a *errors.ProviderError carrying the provider code.
func (s *Service) ExecutePurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	start := s.now()
	defer func() {
		s.metrics.RecordOperationDuration(operationPurchase, time.Since(start))
	}()

	if err := validateBill(req); err != nil {
		return nil, err
	}

	wallet, err := s.store.Wallets().GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, apperrors.Persistence("load wallet", err)
	}
	if !wallet.CanSpend(req.Amount) {
		s.metrics.RecordOperationResult(operationPurchase, "insufficient_funds")
		return nil, apperrors.ErrInsufficientFunds
	}

	now := s.now()
	requestID := utils.RequestID(now)
	reference := utils.Reference(now)
	log := s.logger.With(
		zap.Uint("user_id", req.UserID),
		zap.String("request_id", requestID),
		zap.String("service_id", req.ServiceID),
	)

	resp, err := s.pay(ctx, vtpass.PayRequest{
		RequestID:        requestID,
		ServiceID:        req.ServiceID,
		Amount:           req.Amount,
		Phone:            req.Phone,
		BillersCode:      req.BillersCode,
		VariationCode:    req.VariationCode,
		Quantity:         req.Quantity,
		SubscriptionType: req.SubscriptionType,
	})
	if err != nil {
		log.Error("biller call failed", zap.Error(err))
		s.metrics.RecordOperationResult(operationPurchase, "provider_error")
		return nil, err
	}

	row := purchaseRow(req, requestID, reference)
	ledger.ApplyResponse(row, resp)
	s.metrics.RecordOperationResult(operationPurchase, resp.Outcome.String())

	switch resp.Outcome {
	case providers.OutcomeSuccess:
		return s.commitPurchase(ctx, row, log)

	case providers.OutcomeProcessing:
		row.Status = models.StatusPending
		if err := s.store.Transactions().Create(ctx, row); err != nil {
			return nil, apperrors.Persistence("record pending purchase", err)
		}
		log.Info("purchase pending", zap.Bool("timed_out", resp.TimedOut))
		s.notifier.NotifyTransaction(ctx, row.UserID, row)
		return newResult(row, nil), nil

	default:
		row.Status = models.StatusFailed
		if err := s.store.Transactions().Create(ctx, row); err != nil {
			log.Error("failed to record failed purchase", zap.Error(err))
		}
		log.Warn("purchase rejected", zap.String("code", resp.Code))
		return nil, &apperrors.ProviderError{
			Provider: platformVTpass,
			Code:     resp.Code,
			Message:  resp.Message,
			Body:     resp.Raw,
		}
	}
}

// commitPurchase debits the wallet and inserts row as success. A wallet
// drained by a concurrent purchase since the precheck turns the row into
// a failed audit entry and the call into ErrInsufficientFunds.
func (s *Service) commitPurchase(ctx context.Context, row *models.Transaction, log *zap.Logger) (*PurchaseResult, error) {
	var balance decimal.Decimal
	lost := false

	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		wallet, err := tx.Wallets().Debit(ctx, row.UserID, row.TotalAmount)
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			lost = true
			row.Status = models.StatusFailed
			row.ResponseMessage = ledger.MessageInsufficientFunds
			return tx.Transactions().Create(ctx, row)
		}
		if err != nil {
			return err
		}
		balance = wallet.Balance
		row.Status = models.StatusSuccess
		return tx.Transactions().Create(ctx, row)
	})
	if err != nil {
		log.Error("failed to commit purchase", zap.Error(err))
		return nil, apperrors.Persistence("commit purchase", err)
	}
	if lost {
		log.Warn("purchase delivered but wallet no longer covers it")
		return nil, apperrors.ErrInsufficientFunds
	}

	log.Info("purchase committed", zap.String("reference", row.Reference))
	s.notifier.NotifyTransaction(ctx, row.UserID, row)
	return newResult(row, &balance), nil
}

// RequeryStatus asks the biller for the current state of a pending
// purchase and applies it. Rows that are no longer pending are returned
// as stored.
func (s *Service) RequeryStatus(ctx context.Context, userID uint, requestID string) (*PurchaseResult, error) {
	row, err := s.store.Transactions().GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, apperrors.Persistence("load transaction", err)
	}
	if row.UserID != userID {
		return nil, apperrors.ErrTransactionNotFound
	}
	if row.Status != models.StatusPending {
		return newResult(row, nil), nil
	}

	resp, err := s.requery(ctx, requestID)
	if err != nil {
		return nil, err
	}
	result, lost, err := s.settle(ctx, requestID, resp)
	if err != nil {
		return nil, err
	}
	if lost {
		return nil, apperrors.ErrInsufficientFunds
	}
	return result, nil
}

// settle applies a requery answer to a pending row. The pending check and
// the wallet debit share one database transaction holding the row lock,
// so a concurrent webhook or sweep cannot apply the same outcome twice.
// lost is true when the biller delivered but the wallet no longer covered
// the amount and the row was recorded as failed.
func (s *Service) settle(ctx context.Context, requestID string, resp *providers.Response) (*PurchaseResult, bool, error) {
	var (
		row     *models.Transaction
		balance *decimal.Decimal
		changed bool
		lost    bool
	)

	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		locked, err := tx.Transactions().LockByRequestID(ctx, requestID)
		if err != nil {
			return err
		}
		row = locked
		if row.Status != models.StatusPending {
			return nil
		}

		switch resp.Outcome {
		case providers.OutcomeSuccess:
			ledger.ApplyResponse(row, resp)
			wallet, drained, err := ledger.DebitSuccess(ctx, tx, row)
			if err != nil {
				return err
			}
			lost = drained
			if wallet != nil {
				b := wallet.Balance
				balance = &b
			}
			changed = true
		case providers.OutcomeFailure:
			ledger.ApplyResponse(row, resp)
			if err := tx.Transactions().UpdateOutcome(ctx, row, models.StatusFailed); err != nil {
				return err
			}
			changed = true
		}
		return nil
	})
	if err != nil {
		return nil, false, apperrors.Persistence("settle purchase", err)
	}

	if changed {
		if lost {
			s.logger.Warn("delivered purchase no longer covered by wallet", zap.String("request_id", requestID))
		}
		s.logger.Info("pending purchase settled",
			zap.String("request_id", requestID),
			zap.String("status", row.Status))
		s.notifier.NotifyTransaction(ctx, row.UserID, row)
	}
	return newResult(row, balance), lost, nil
}

// SweepPending requeries pending purchases created more than olderThan
// ago, oldest first, at most limit rows per run.
func (s *Service) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (SweepResult, error) {
	var result SweepResult

	rows, err := s.store.Transactions().ListPending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return result, apperrors.Persistence("list pending purchases", err)
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		resp, err := s.requery(ctx, row.RequestID)
		if err != nil {
			result.Errors++
			s.logger.Warn("sweep requery failed", zap.String("request_id", row.RequestID), zap.Error(err))
			continue
		}
		settled, _, err := s.settle(ctx, row.RequestID, resp)
		if err != nil {
			result.Errors++
			s.logger.Error("sweep settle failed", zap.String("request_id", row.RequestID), zap.Error(err))
			continue
		}
		if !settled.ShouldRequery {
			result.Settled++
		}
	}

	if result.Checked > 0 {
		s.logger.Info("pending sweep finished",
			zap.Int("checked", result.Checked),
			zap.Int("settled", result.Settled),
			zap.Int("errors", result.Errors))
	}
	return result, nil
}

func (s *Service) pay(ctx context.Context, req vtpass.PayRequest) (*providers.Response, error) {
	start := time.Now()
	resp, err := s.biller.Pay(ctx, req)
	s.metrics.RecordProviderCall(platformVTpass, "pay", providerOutcome(resp, err), time.Since(start))
	return resp, err
}

func (s *Service) requery(ctx context.Context, requestID string) (*providers.Response, error) {
	start := time.Now()
	resp, err := s.biller.Requery(ctx, requestID)
	s.metrics.RecordProviderCall(platformVTpass, operationRequery, providerOutcome(resp, err), time.Since(start))
	return resp, err
}

func providerOutcome(resp *providers.Response, err error) string {
	switch {
	case err != nil:
		return "error"
	case resp.TimedOut:
		return "timeout"
	default:
		return resp.Outcome.String()
	}
}

func validateBill(req PurchaseRequest) error {
	if req.UserID == 0 {
		return apperrors.Validation("user_id", "is required")
	}
	return validation.ValidateBill(req.bill())
}

func purchaseRow(req PurchaseRequest, requestID, reference string) *models.Transaction {
	return &models.Transaction{
		UserID:        req.UserID,
		RequestID:     requestID,
		Reference:     reference,
		Amount:        req.Amount,
		TotalAmount:   req.Amount,
		Type:          models.TransactionTypePurchase,
		Category:      req.Category,
		ServiceID:     req.ServiceID,
		Phone:         req.Phone,
		BillersCode:   req.BillersCode,
		VariationCode: req.VariationCode,
		ProductName:   productName(req),
		Platform:      platformVTpass,
		Channel:       "api",
		Method:        "wallet",
	}
}

func productName(req PurchaseRequest) string {
	switch req.Category {
	case models.CategoryAirtime:
		return fmt.Sprintf("%s Airtime", strings.ToUpper(req.ServiceID))
	case models.CategoryData:
		return fmt.Sprintf("%s Data", strings.ToUpper(strings.TrimSuffix(req.ServiceID, "-data")))
	case models.CategoryTV:
		switch req.SubscriptionType {
		case "change":
			return fmt.Sprintf("TV Subscription - %s (Change)", req.ServiceID)
		case "renew":
			return fmt.Sprintf("TV Subscription - %s (Renewal)", req.ServiceID)
		}
		return "TV Subscription - " + req.ServiceID
	case models.CategoryElectricity:
		return "Electricity Bill - " + strings.ToUpper(req.VariationCode)
	case models.CategoryEducation:
		return "Education - " + strings.ToUpper(req.ServiceID)
	case models.CategoryInternet:
		return "Internet - " + req.ServiceID
	}
	return req.ServiceID
}
