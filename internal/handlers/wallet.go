package handlers

import (
	"context"

	"tekpay/internal/services/funding"
	"tekpay/internal/services/wallet"
	"tekpay/internal/utils"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CardFunding opens card top-ups.
type CardFunding interface {
	FundWithCard(ctx context.Context, userID uint, amount decimal.Decimal) (*funding.Result, error)
}

type WalletHandler struct {
	walletService wallet.Service
	funding       CardFunding
}

func NewWalletHandler(walletService wallet.Service, funding CardFunding) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		funding:       funding,
	}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	w, err := h.walletService.GetWallet(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, "Wallet retrieved", fiber.Map{
		"wallet": w,
	})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	balance, err := h.walletService.GetBalance(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, "Balance retrieved", fiber.Map{
		"balance":  balance,
		"currency": "NGN",
	})
}

// TransactionHistory lists ledger rows, filtered by ?type= and ?status=.
func (h *WalletHandler) TransactionHistory(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := utils.GetPagination(c, 1, 20)
	page, err := h.walletService.History(c.UserContext(), claims.UserID, wallet.HistoryQuery{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, "Transactions retrieved", page)
}

func (h *WalletHandler) GetTransaction(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	txn, err := h.walletService.Transaction(c.UserContext(), claims.UserID, c.Params("reference"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Transaction retrieved", txn)
}

// TransferHistory lists past bank and in-app transfers, used as the
// beneficiary list.
func (h *WalletHandler) TransferHistory(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := utils.GetPagination(c, 1, 20)
	page, err := h.walletService.Transfers(c.UserContext(), claims.UserID, p.Page, p.Limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Transfers retrieved", page)
}

// FundWithCard opens a Stripe payment intent. The wallet is credited by
// the payment webhook.
func (h *WalletHandler) FundWithCard(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}

	result, err := h.funding.FundWithCard(c.UserContext(), claims.UserID, input.Amount)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Payment initialized", result)
}
