package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avolkov/finledger/internal/apperr"
	"github.com/avolkov/finledger/internal/ledger"
	"github.com/avolkov/finledger/internal/logger"
	"github.com/avolkov/finledger/internal/models"
)

// maxReceiptBytes caps receipt uploads; vision models reject larger payloads
// anyway.
const maxReceiptBytes = 10 << 20

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.Unauthorized:
		status = http.StatusUnauthorized
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.External:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) syncUser(c *gin.Context) {
	user, err := s.ledger.SyncUser(c.Request.Context(), callerID(c), c.GetString(ctxEmail), c.GetString(ctxName))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type accountRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := s.ledger.CreateAccount(c.Request.Context(), callerID(c), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.ledger.ListAccounts(c.Request.Context(), callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

type transactionRequest struct {
	AccountID         string          `json:"account_id" binding:"required"`
	Type              string          `json:"type" binding:"required"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	IsRecurring       bool            `json:"is_recurring"`
	RecurringInterval string          `json:"recurring_interval"`
}

func (r *transactionRequest) toInput() (ledger.TransactionInput, error) {
	accountID, err := uuid.Parse(r.AccountID)
	if err != nil {
		return ledger.TransactionInput{}, apperr.New(apperr.Validation, "invalid account id")
	}
	return ledger.TransactionInput{
		AccountID:         accountID,
		Type:              models.TransactionType(r.Type),
		Amount:            r.Amount,
		Date:              r.Date,
		Description:       r.Description,
		Category:          r.Category,
		IsRecurring:       r.IsRecurring,
		RecurringInterval: models.RecurringInterval(r.RecurringInterval),
	}, nil
}

func (s *Server) createTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		s.writeError(c, err)
		return
	}
	tx, err := s.ledger.CreateTransaction(c.Request.Context(), callerID(c), input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) getTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}
	tx, err := s.ledger.GetTransaction(c.Request.Context(), callerID(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) updateTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		s.writeError(c, err)
		return
	}
	tx, err := s.ledger.UpdateTransaction(c.Request.Context(), callerID(c), id, input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) deleteTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}
	if err := s.ledger.DeleteTransaction(c.Request.Context(), callerID(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTransactions(c *gin.Context) {
	var filter ledger.TransactionFilter
	if v := c.Query("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account_id filter"})
			return
		}
		filter.AccountID = &id
	}
	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		filter.Type = &t
	}
	if v := c.Query("recurring"); v != "" {
		recurring := v == "true"
		filter.IsRecurring = &recurring
	}

	txs, err := s.ledger.ListTransactions(c.Request.Context(), callerID(c), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (s *Server) scanReceipt(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing receipt file"})
		return
	}
	if fileHeader.Size > maxReceiptBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt file too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable receipt file"})
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable receipt file"})
		return
	}

	rec, err := s.receipts.Extract(c.Request.Context(), image, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rec == nil {
		// Nothing usable on the receipt; not a failure.
		c.JSON(http.StatusOK, gin.H{"extracted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"extracted": true, "receipt": rec})
}
