package handlers

import (
	"context"
	"strconv"
	"time"

	"tekpay/internal/models"
	"tekpay/internal/services/settlement"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Sweeper settles stale pending purchases.
type Sweeper interface {
	SweepPending(ctx context.Context, olderThan time.Duration, limit int) (settlement.SweepResult, error)
}

// LedgerLookup reads any ledger row by reference.
type LedgerLookup interface {
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
}

type AdminHandler struct {
	sweeper Sweeper
	ledger  LedgerLookup
	minAge  time.Duration
	batch   int
	logger  *zap.Logger
}

func NewAdminHandler(sweeper Sweeper, ledger LedgerLookup, minAge time.Duration, batch int, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		sweeper: sweeper,
		ledger:  ledger,
		minAge:  minAge,
		batch:   batch,
		logger:  logger,
	}
}

// Sweep runs the pending sweep now. ?limit= overrides the batch size.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	limit := h.batch
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	result, err := h.sweeper.SweepPending(c.UserContext(), h.minAge, limit)
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		return response.Error(c, err)
	}

	h.logger.Info("manual sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("settled", result.Settled),
		zap.Int("errors", result.Errors))
	return response.Success(c, "Sweep completed", result)
}

func (h *AdminHandler) GetTransaction(c *fiber.Ctx) error {
	txn, err := h.ledger.GetByReference(c.UserContext(), c.Params("reference"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Transaction retrieved", txn)
}
