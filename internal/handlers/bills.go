package handlers

import (
	"context"
	"encoding/json"

	apperrors "tekpay/internal/errors"
	"tekpay/internal/models"
	"tekpay/internal/services/settlement"
	"tekpay/internal/utils"
	"tekpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Purchases runs and requeries bill payments.
type Purchases interface {
	ExecutePurchase(ctx context.Context, req settlement.PurchaseRequest) (*settlement.PurchaseResult, error)
	RequeryStatus(ctx context.Context, userID uint, requestID string) (*settlement.PurchaseResult, error)
}

// Catalogue proxies VTpass lookups.
type Catalogue interface {
	ServiceVariations(ctx context.Context, serviceID string) (json.RawMessage, error)
	MerchantVerify(ctx context.Context, serviceID, billersCode, kind string) (json.RawMessage, error)
}

var billCategories = map[string]bool{
	models.CategoryAirtime:     true,
	models.CategoryData:        true,
	models.CategoryTV:          true,
	models.CategoryElectricity: true,
	models.CategoryEducation:   true,
	models.CategoryInternet:    true,
}

type BillHandler struct {
	purchases Purchases
	catalogue Catalogue
}

func NewBillHandler(purchases Purchases, catalogue Catalogue) *BillHandler {
	return &BillHandler{purchases: purchases, catalogue: catalogue}
}

type purchaseInput struct {
	ServiceID        string          `json:"service_id"`
	Amount           decimal.Decimal `json:"amount"`
	Phone            string          `json:"phone"`
	BillersCode      string          `json:"billers_code"`
	VariationCode    string          `json:"variation_code"`
	Quantity         int             `json:"quantity"`
	SubscriptionType string          `json:"subscription_type"`
}

// Purchase pays a bill of the category in the path. A 200 with
// should_requery set means the biller has not confirmed yet.
func (h *BillHandler) Purchase(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	category := c.Params("category")
	if !billCategories[category] {
		return response.Error(c, apperrors.Validation("category", "unsupported bill category"))
	}

	var input purchaseInput
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}

	result, err := h.purchases.ExecutePurchase(c.UserContext(), settlement.PurchaseRequest{
		UserID:           claims.UserID,
		Category:         category,
		ServiceID:        input.ServiceID,
		Amount:           input.Amount,
		Phone:            input.Phone,
		BillersCode:      input.BillersCode,
		VariationCode:    input.VariationCode,
		Quantity:         input.Quantity,
		SubscriptionType: input.SubscriptionType,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result.Message, purchaseData(result))
}

// Requery asks the biller for the final state of a pending purchase.
func (h *BillHandler) Requery(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	result, err := h.purchases.RequeryStatus(c.UserContext(), claims.UserID, c.Params("requestId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result.Message, purchaseData(result))
}

func (h *BillHandler) Variations(c *fiber.Ctx) error {
	serviceID := c.Query("serviceID")
	if serviceID == "" {
		return response.Error(c, apperrors.Validation("serviceID", "is required"))
	}

	body, err := h.catalogue.ServiceVariations(c.UserContext(), serviceID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Service variations retrieved", body)
}

// VerifyMerchant checks a smartcard, meter number or exam profile.
func (h *BillHandler) VerifyMerchant(c *fiber.Ctx) error {
	var input struct {
		ServiceID   string `json:"service_id"`
		BillersCode string `json:"billers_code"`
		Type        string `json:"type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.InvalidBody(c)
	}
	if input.ServiceID == "" {
		return response.Error(c, apperrors.Validation("service_id", "is required"))
	}
	if input.BillersCode == "" {
		return response.Error(c, apperrors.Validation("billers_code", "is required"))
	}

	body, err := h.catalogue.MerchantVerify(c.UserContext(), input.ServiceID, input.BillersCode, input.Type)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "Verification successful", body)
}

func purchaseData(result *settlement.PurchaseResult) fiber.Map {
	data := fiber.Map{
		"transaction":    result.Transaction,
		"should_requery": result.ShouldRequery,
	}
	if result.Balance != nil {
		data["balance"] = result.Balance
	}
	return data
}
