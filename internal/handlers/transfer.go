package handlers

import (
	"context"
	"strings"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/services/settlement"
	"tekpay/internal/services/transfer"
	"tekpay/internal/utils"
	"tekpay/internal/utils/response"
	"tekpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// RecipientFinder resolves a user from an email or phone.
type RecipientFinder interface {
	FindRecipient(ctx context.Context, identifier string) (*models.User, error)
}

// Payouts sends money to external bank accounts.
type Payouts interface {
	BankTransfer(ctx context.Context, req settlement.BankTransferRequest) (*settlement.BankTransferResult, error)
}

// BankDirectory lists banks and resolves account names.
type BankDirectory interface {
	Banks(ctx context.Context) ([]flutterwave.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, accountBank string) (*flutterwave.ResolvedAccount, error)
}

// TransferHandler exposes in-app and bank transfer endpoints.
type TransferHandler struct {
	service    transfer.Service
	recipients RecipientFinder
	payouts    Payouts
	banks      BankDirectory
}

func NewTransferHandler(s transfer.Service, recipients RecipientFinder, payouts Payouts, banks BankDirectory) *TransferHandler {
	return &TransferHandler{
		service:    s,
		recipients: recipients,
		payouts:    payouts,
		banks:      banks,
	}
}

// Transfer moves money to another Tekpay wallet. The recipient is given
// by id or by email/phone.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req struct {
		RecipientID uint            `json:"recipient_id"`
		Recipient   string          `json:"recipient"`
		Amount      decimal.Decimal `json:"amount"`
		Narration   string          `json:"narration"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}

	recipientID := req.RecipientID
	if recipientID == 0 {
		if strings.TrimSpace(req.Recipient) == "" {
			return response.Error(c, apperrors.Validation("recipient", "is required"))
		}
		u, err := h.recipients.FindRecipient(c.UserContext(), req.Recipient)
		if err != nil {
			return response.Error(c, err)
		}
		recipientID = u.ID
	}

	result, err := h.service.Transfer(c.UserContext(), claims.UserID, recipientID, req.Amount, req.Narration)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Transfer successful", result)
}

// BankTransfer debits the wallet and sends a Flutterwave payout.
func (h *TransferHandler) BankTransfer(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req struct {
		AccountBank   string          `json:"account_bank"`
		BankName      string          `json:"bank_name"`
		AccountNumber string          `json:"account_number"`
		AccountName   string          `json:"account_name"`
		Amount        decimal.Decimal `json:"amount"`
		Narration     string          `json:"narration"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}

	result, err := h.payouts.BankTransfer(c.UserContext(), settlement.BankTransferRequest{
		UserID:        claims.UserID,
		AccountBank:   req.AccountBank,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		Amount:        req.Amount,
		Narration:     req.Narration,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result.Message, fiber.Map{
		"transaction": result.Transaction,
		"balance":     result.Balance,
	})
}

func (h *TransferHandler) ListBanks(c *fiber.Ctx) error {
	banks, err := h.banks.Banks(c.UserContext())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Banks retrieved", banks)
}

func (h *TransferHandler) ResolveAccount(c *fiber.Ctx) error {
	var req struct {
		AccountNumber string `json:"account_number"`
		AccountBank   string `json:"account_bank"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.InvalidBody(c)
	}
	if len(req.AccountNumber) != validation.AccountNumberLength {
		return response.Error(c, apperrors.Validation("account_number", "must be 10 digits"))
	}
	if req.AccountBank == "" {
		return response.Error(c, apperrors.Validation("account_bank", "is required"))
	}

	account, err := h.banks.ResolveAccount(c.UserContext(), req.AccountNumber, req.AccountBank)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Account resolved", account)
}
