// Package server is the thin HTTP surface over the ledger and receipt
// services. It only parses requests, resolves the caller identity, and maps
// error kinds to status codes; all invariants live in the services.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avolkov/finledger/internal/ledger"
	"github.com/avolkov/finledger/internal/receipt"
)

type Server struct {
	engine    *gin.Engine
	ledger    *ledger.Service
	receipts  *receipt.Service
	jwtSecret []byte
	log       zerolog.Logger
}

func New(ledgerSvc *ledger.Service, receiptSvc *receipt.Service, jwtSecret string, log zerolog.Logger) *Server {
	s := &Server{
		engine:    gin.New(),
		ledger:    ledgerSvc,
		receipts:  receiptSvc,
		jwtSecret: []byte(jwtSecret),
		log:       log,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api/v1")
	api.Use(s.jwtAuthMiddleware())

	api.POST("/users/sync", s.syncUser)

	api.POST("/accounts", s.createAccount)
	api.GET("/accounts", s.listAccounts)

	api.POST("/transactions", s.createTransaction)
	api.GET("/transactions", s.listTransactions)
	api.GET("/transactions/:id", s.getTransaction)
	api.PUT("/transactions/:id", s.updateTransaction)
	api.DELETE("/transactions/:id", s.deleteTransaction)

	api.POST("/receipts/scan", s.scanReceipt)
}

// Handler exposes the router so the caller owns the http.Server lifecycle.
func (s *Server) Handler() http.Handler {
	return s.engine
}
