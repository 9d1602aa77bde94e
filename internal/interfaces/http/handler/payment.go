package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apppayment "github.com/grolife/invoice-engine/internal/application/payment"
	domainpayment "github.com/grolife/invoice-engine/internal/domain/payment"
	"github.com/grolife/invoice-engine/internal/interfaces/http/dto"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService  *apppayment.PaymentService
	reversalService *apppayment.ReversalService
	creditService   *apppayment.CreditFundingService
	queryService    *apppayment.QueryService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(
	paymentService *apppayment.PaymentService,
	reversalService *apppayment.ReversalService,
	creditService *apppayment.CreditFundingService,
	queryService *apppayment.QueryService,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		reversalService: reversalService,
		creditService:   creditService,
		queryService:    queryService,
	}
}

// RegisterRoutes registers the payment routes on the given group
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.GET("/reference/:key", h.GetPaymentByReference)
		payments.POST("/receive-for-invoices", h.ReceiveForInvoices)
		payments.PUT("/update-for-invoices", h.UpdateForInvoices)
		payments.POST("/reversal/id/:id", h.ReverseByID)
		payments.POST("/reversal/reference/:key", h.ReverseByReference)
		payments.POST("/use-credit", h.UseCredit)
	}
}

// ===================== Request DTOs =====================

// AllocationTargetInput names one invoice and the amount to apply to it.
// Order matters: first-listed invoices are paid first.
type AllocationTargetInput struct {
	InvoiceID string  `json:"invoice_id" binding:"required,uuid"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

// ReceivePaymentRequest is the request body for receiving a payment
type ReceivePaymentRequest struct {
	ReferenceKey  string                  `json:"reference_key" binding:"required,max=100"`
	CustomerID    string                  `json:"customer_id" binding:"required,uuid"`
	TotalAmount   float64                 `json:"total_amount" binding:"required,gt=0"`
	FundingSource string                  `json:"funding_source" binding:"omitempty,oneof=CASH CREDIT"`
	AllowPartial  bool                    `json:"allow_partial"`
	Targets       []AllocationTargetInput `json:"targets" binding:"required,min=1,dive"`
}

// UpdatePaymentRequest is the request body for replacing a payment's
// allocations. The payment is addressed by payment_id or by reference_key.
type UpdatePaymentRequest struct {
	PaymentID    string                  `json:"payment_id" binding:"omitempty,uuid"`
	ReferenceKey string                  `json:"reference_key" binding:"omitempty,max=100"`
	AllowPartial bool                    `json:"allow_partial"`
	Targets      []AllocationTargetInput `json:"targets" binding:"required,min=1,dive"`
}

// UseCreditRequest is the request body for funding a payment from credit
type UseCreditRequest struct {
	ReferenceKey string                  `json:"reference_key" binding:"required,max=100"`
	CustomerID   string                  `json:"customer_id" binding:"required,uuid"`
	TotalAmount  float64                 `json:"total_amount" binding:"required,gt=0"`
	AllowPartial bool                    `json:"allow_partial"`
	Targets      []AllocationTargetInput `json:"targets" binding:"required,min=1,dive"`
}

func toTargetRequests(targets []AllocationTargetInput) ([]apppayment.AllocationTargetRequest, error) {
	out := make([]apppayment.AllocationTargetRequest, 0, len(targets))
	for _, t := range targets {
		invoiceID, err := uuid.Parse(t.InvoiceID)
		if err != nil {
			return nil, err
		}
		out = append(out, apppayment.AllocationTargetRequest{
			InvoiceID: invoiceID,
			Amount:    decimal.NewFromFloat(t.Amount),
		})
	}
	return out, nil
}

// ===================== Handlers =====================

// ListPayments returns a page of payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if listReq.Page <= 0 {
		listReq.Page = 1
	}
	if listReq.PageSize <= 0 {
		listReq.PageSize = 20
	}

	filter := sharedFilter(listReq)
	payments, total, err := h.queryService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, listReq.Page, listReq.PageSize)
}

// GetPayment returns one payment by ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	result, err := h.queryService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetPaymentByReference returns one payment by its reference key
func (h *PaymentHandler) GetPaymentByReference(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		h.BadRequest(c, "Reference key is required")
		return
	}

	result, err := h.queryService.GetPaymentByReference(c.Request.Context(), key)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ReceiveForInvoices records a payment and allocates it across invoices
func (h *PaymentHandler) ReceiveForInvoices(c *gin.Context) {
	var req ReceivePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	targets, err := toTargetRequests(req.Targets)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	fundingSource := domainpayment.FundingSourceCash
	if req.FundingSource != "" {
		fundingSource = domainpayment.FundingSource(req.FundingSource)
	}

	result, err := h.paymentService.CreatePayment(c.Request.Context(), apppayment.ProcessPaymentRequest{
		ReferenceKey:  req.ReferenceKey,
		CustomerID:    customerID,
		TotalAmount:   decimal.NewFromFloat(req.TotalAmount),
		FundingSource: fundingSource,
		AllowPartial:  req.AllowPartial,
		Targets:       targets,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// UpdateForInvoices replaces the allocation set of an existing payment
func (h *PaymentHandler) UpdateForInvoices(c *gin.Context) {
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if req.PaymentID == "" && req.ReferenceKey == "" {
		h.BadRequest(c, "Either payment_id or reference_key is required")
		return
	}
	paymentID := uuid.Nil
	if req.PaymentID != "" {
		var err error
		paymentID, err = uuid.Parse(req.PaymentID)
		if err != nil {
			h.BadRequest(c, "Invalid payment ID format")
			return
		}
	}
	targets, err := toTargetRequests(req.Targets)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.paymentService.UpdatePayment(c.Request.Context(), apppayment.UpdatePaymentRequest{
		PaymentID:    paymentID,
		ReferenceKey: req.ReferenceKey,
		AllowPartial: req.AllowPartial,
		Targets:      targets,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ReverseByID reverses a payment by its ID
func (h *PaymentHandler) ReverseByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	result, err := h.reversalService.ReverseByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ReverseByReference reverses a payment by its reference key
func (h *PaymentHandler) ReverseByReference(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		h.BadRequest(c, "Reference key is required")
		return
	}

	result, err := h.reversalService.ReverseByReference(c.Request.Context(), key)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// UseCredit funds a payment from the customer's credit balance
func (h *PaymentHandler) UseCredit(c *gin.Context) {
	var req UseCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	targets, err := toTargetRequests(req.Targets)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	result, err := h.creditService.UseCreditForPayment(c.Request.Context(), apppayment.UseCreditRequest{
		ReferenceKey: req.ReferenceKey,
		CustomerID:   customerID,
		TotalAmount:  decimal.NewFromFloat(req.TotalAmount),
		AllowPartial: req.AllowPartial,
		Targets:      targets,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}
