package http_api

import (
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/internal/repository"
	"github.com/core-coin/vault-indexer/pkg/validation"
)

const defaultPageLimit = 20

// CheckpointResponse reports indexing progress for the configured source
type CheckpointResponse struct {
	Source          string `json:"source"`
	LastBlockNumber uint64 `json:"last_block_number"`
	UpdatedAt       int64  `json:"updated_at"`
	State           string `json:"state"`
}

// DepositResponse is a stored deposit plus its amount in token units
type DepositResponse struct {
	*models.Deposit
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ListDepositsQuery binds the query string of the deposit listing
type ListDepositsQuery struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	FromBlock uint64 `form:"from_block"`
}

// ListDepositsResponse is one page of deposits, newest first
type ListDepositsResponse struct {
	Deposits []DepositResponse `json:"deposits"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// BalanceResponse is the on-chain token balance of the vault
type BalanceResponse struct {
	Vault      string `json:"vault"`
	BalanceWei string `json:"balance_wei"`
	Balance    string `json:"balance"`
	Currency   string `json:"currency"`
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// checkpoint is a handler for the /api/v1/checkpoint endpoint.
func (s *HTTPServer) checkpoint(c *gin.Context) {
	record, err := s.store.GetCheckpointRecord(c.Request.Context(), s.opts.Source)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "No blocks indexed yet",
		})
		return
	}
	if err != nil {
		s.internalError(c, "Failed to get checkpoint", err)
		return
	}

	state := "disabled"
	if s.state != nil {
		state = s.state.State().String()
	}

	c.JSON(http.StatusOK, CheckpointResponse{
		Source:          record.Source,
		LastBlockNumber: record.LastBlockNumber,
		UpdatedAt:       record.UpdatedAt,
		State:           state,
	})
}

// listDeposits is a handler for the /api/v1/deposits endpoint.
func (s *HTTPServer) listDeposits(c *gin.Context) {
	var query ListDepositsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.logger.Debug("Invalid deposits query", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid query: " + err.Error(),
		})
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultPageLimit
	}

	ctx := c.Request.Context()
	deposits, err := s.store.ListDeposits(ctx, models.ListDepositsParams{
		Limit:     query.Limit,
		Offset:    query.Offset,
		FromBlock: query.FromBlock,
	})
	if err != nil {
		s.internalError(c, "Failed to list deposits", err)
		return
	}
	total, err := s.store.CountDeposits(ctx)
	if err != nil {
		s.internalError(c, "Failed to count deposits", err)
		return
	}

	response := ListDepositsResponse{
		Deposits: make([]DepositResponse, 0, len(deposits)),
		Total:    total,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	for _, deposit := range deposits {
		response.Deposits = append(response.Deposits, s.depositResponse(deposit))
	}
	c.JSON(http.StatusOK, response)
}

// getDeposit is a handler for the /api/v1/deposits/:tx_hash endpoint.
func (s *HTTPServer) getDeposit(c *gin.Context) {
	hash := c.Param("tx_hash")
	if err := validation.ValidateTxHash(hash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid transaction hash: " + err.Error(),
		})
		return
	}

	deposit, err := s.store.GetDeposit(c.Request.Context(), validation.NormalizeHex(hash))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Deposit not found",
		})
		return
	}
	if err != nil {
		s.internalError(c, "Failed to get deposit", err)
		return
	}

	c.JSON(http.StatusOK, s.depositResponse(deposit))
}

// vaultBalance is a handler for the /api/v1/vault/balance endpoint.
func (s *HTTPServer) vaultBalance(c *gin.Context) {
	if s.tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Chain access is not configured",
		})
		return
	}

	balance, err := s.tokens.TokenBalance(c.Request.Context(), s.opts.Vault)
	if err != nil {
		s.logger.Error("Failed to get vault balance", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "Failed to read balance from chain",
		})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Vault:      strings.ToLower(s.opts.Vault.Hex()),
		BalanceWei: balance.String(),
		Balance:    models.FormatAmount(balance, s.opts.Token.Decimals),
		Currency:   s.opts.Token.Symbol,
	})
}

func (s *HTTPServer) depositResponse(deposit *models.Deposit) DepositResponse {
	response := DepositResponse{Deposit: deposit, Amount: deposit.AmountWei, Currency: s.opts.Token.Symbol}
	if amount, ok := parseAmount(deposit.AmountWei); ok {
		response.Amount = models.FormatAmount(amount, s.opts.Token.Decimals)
	}
	return response
}

func parseAmount(wei string) (*big.Int, bool) {
	return new(big.Int).SetString(wei, 10)
}

func (s *HTTPServer) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "Internal server error",
	})
}
