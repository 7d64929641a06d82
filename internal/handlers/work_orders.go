package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"timesheets/internal/media/sniffer"
	"timesheets/internal/models"
	"timesheets/internal/service"
)

// multipartOverhead leaves room for boundaries and part headers around the
// receipt itself.
const multipartOverhead = 64 << 10

type createWorkOrderRequest struct {
	WorkerID    string `json:"workerId"`
	SiteID      string `json:"siteId"`
	WorkDate    string `json:"workDate"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description"`
}

type updateWorkOrderRequest struct {
	SiteID      *string `json:"siteId"`
	WorkDate    *string `json:"workDate"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	Description *string `json:"description"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type expenseRequest struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type workOrderResponse struct {
	ID           string            `json:"id"`
	WorkerID     string            `json:"workerId"`
	SiteID       string            `json:"siteId"`
	WorkDate     string            `json:"workDate"`
	StartTime    string            `json:"startTime"`
	EndTime      string            `json:"endTime"`
	TotalHours   float64           `json:"totalHours"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	ApproverID   *string           `json:"approverId"`
	RejectReason *string           `json:"rejectReason"`
	SubmittedAt  *time.Time        `json:"submittedAt"`
	DecidedAt    *time.Time        `json:"decidedAt"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Expenses     []expenseResponse `json:"expenses,omitempty"`
}

type expenseResponse struct {
	ID                 string    `json:"id"`
	Category           string    `json:"category"`
	Amount             string    `json:"amount"`
	AmountCents        int64     `json:"amountCents"`
	Description        string    `json:"description"`
	HasReceipt         bool      `json:"hasReceipt"`
	ReceiptContentType *string   `json:"receiptContentType,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func newWorkOrderResponse(order models.WorkOrder) workOrderResponse {
	return workOrderResponse{
		ID:           order.ID,
		WorkerID:     order.WorkerID,
		SiteID:       order.SiteID,
		WorkDate:     order.WorkDate.Format(models.WorkDateLayout),
		StartTime:    order.StartTime,
		EndTime:      order.EndTime,
		TotalHours:   order.TotalHours,
		Description:  order.Description,
		Status:       string(order.Status),
		ApproverID:   order.ApproverID,
		RejectReason: order.RejectReason,
		SubmittedAt:  order.SubmittedAt,
		DecidedAt:    order.DecidedAt,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

func newExpenseResponse(expense models.Expense) expenseResponse {
	return expenseResponse{
		ID:                 expense.ID,
		Category:           expense.Category,
		Amount:             fmt.Sprintf("%d.%02d", expense.AmountCents/100, expense.AmountCents%100),
		AmountCents:        expense.AmountCents,
		Description:        expense.Description,
		HasReceipt:         expense.ReceiptKey != nil,
		ReceiptContentType: expense.ReceiptContentType,
		CreatedAt:          expense.CreatedAt,
	}
}

func (h HandlerSet) CreateWorkOrder(c *gin.Context) {
	var req createWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.workOrders.Create(c.Request.Context(), actorID(c), service.CreateWorkOrderInput{
		WorkerID:    req.WorkerID,
		SiteID:      req.SiteID,
		WorkDate:    req.WorkDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workOrder": newWorkOrderResponse(order)})
}

func (h HandlerSet) GetWorkOrder(c *gin.Context) {
	detail, err := h.workOrders.Get(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := newWorkOrderResponse(detail.Order)
	resp.Expenses = make([]expenseResponse, 0, len(detail.Expenses))
	for _, expense := range detail.Expenses {
		resp.Expenses = append(resp.Expenses, newExpenseResponse(expense))
	}
	c.JSON(http.StatusOK, gin.H{"workOrder": resp})
}

func (h HandlerSet) UpdateWorkOrder(c *gin.Context) {
	var req updateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.workOrders.Update(c.Request.Context(), actorID(c), c.Param("id"), service.UpdateWorkOrderInput{
		SiteID:      req.SiteID,
		WorkDate:    req.WorkDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workOrder": newWorkOrderResponse(order)})
}

func (h HandlerSet) SubmitWorkOrder(c *gin.Context) {
	order, err := h.workOrders.Submit(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workOrder": newWorkOrderResponse(order)})
}

func (h HandlerSet) ApproveWorkOrder(c *gin.Context) {
	order, err := h.workOrders.Approve(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workOrder": newWorkOrderResponse(order)})
}

// RejectWorkOrder accepts an empty body; the reason is optional.
func (h HandlerSet) RejectWorkOrder(c *gin.Context) {
	var req rejectRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
	}

	order, err := h.workOrders.Reject(c.Request.Context(), actorID(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workOrder": newWorkOrderResponse(order)})
}

func (h HandlerSet) AddExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	expense, err := h.workOrders.AddExpense(c.Request.Context(), actorID(c), c.Param("id"), service.ExpenseInput{
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": newExpenseResponse(expense)})
}

func (h HandlerSet) RemoveExpense(c *gin.Context) {
	if err := h.workOrders.RemoveExpense(c.Request.Context(), actorID(c), c.Param("id"), c.Param("expenseId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AttachReceipt(c *gin.Context) {
	maxSize := h.cfg.Storage.MaxReceiptSize
	if maxSize > 0 {
		limit := maxSize + multipartOverhead
		if c.Request.ContentLength > limit {
			receiptTooLarge(c, maxSize)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			receiptTooLarge(c, maxSize)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{"file": "is required"}})
		return
	}
	defer file.Close()

	expense, err := h.workOrders.AttachReceipt(c.Request.Context(), actorID(c), c.Param("id"), c.Param("expenseId"), service.ReceiptUpload{
		File:         file,
		Size:         header.Size,
		DeclaredType: sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": newExpenseResponse(expense)})
}

func receiptTooLarge(c *gin.Context, maxSize int64) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":  "payload_too_large",
		"fields": gin.H{"file": fmt.Sprintf("must be at most %d bytes", maxSize)},
	})
}
