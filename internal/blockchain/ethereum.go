package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/core-coin/vault-indexer/internal/metrics"
	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

const (
	DefaultTimeout = 10 * time.Second

	methodBlockNumber = "eth_blockNumber"
	methodGetLogs     = "eth_getLogs"
	methodCall        = "eth_call"
)

var ErrNotConnected = errors.New("rpc client is not connected")

// RPCError wraps a failed provider call with the block range it covered, if any.
type RPCError struct {
	Method string
	From   uint64
	To     uint64
	Err    error
}

func (e *RPCError) Error() string {
	if e.Method == methodGetLogs {
		return fmt.Sprintf("%s [%d, %d]: %v", e.Method, e.From, e.To, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// Client talks to an EVM JSON-RPC endpoint over HTTP.
type Client struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	apiURL  string
	timeout time.Duration
	limiter *rate.Limiter

	mu     sync.RWMutex
	client *ethclient.Client

	tokenAddress  common.Address
	tokenContract *bind.BoundContract
}

// NewClient creates a client for apiURL. A positive rps caps outgoing calls per second.
func NewClient(apiURL string, tokenAddress common.Address, timeout time.Duration, rps float64, m *metrics.Metrics, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		logger:       logger,
		metrics:      m,
		apiURL:       apiURL,
		timeout:      timeout,
		tokenAddress: tokenAddress,
	}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

func (c *Client) Run(ctx context.Context) error {
	if err := c.ConnectToRPC(ctx); err != nil {
		return fmt.Errorf("failed to connect to the RPC server: %w", err)
	}
	if err := c.BuildBindings(); err != nil {
		return fmt.Errorf("failed to build bindings: %w", err)
	}
	return nil
}

func (c *Client) ConnectToRPC(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, c.apiURL)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.apiURL, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	c.logger.Info("Connected to RPC", "url", c.apiURL)
	return nil
}

func (c *Client) BuildBindings() error {
	parsedABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return ErrNotConnected
	}
	c.tokenContract = bind.NewBoundContract(c.tokenAddress, parsedABI, c.client, c.client, c.client)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	return nil
}

func (c *Client) conn() (*ethclient.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// call applies the rate limit and per-call timeout around fn and records the outcome.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordRPCCall(method, time.Since(start), err)
	return err
}

// GetLatestBlock returns the provider's current head height.
func (c *Client) GetLatestBlock(ctx context.Context) (uint64, error) {
	client, err := c.conn()
	if err != nil {
		return 0, err
	}

	var height uint64
	err = c.call(ctx, methodBlockNumber, func(ctx context.Context) error {
		var err error
		height, err = client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, &RPCError{Method: methodBlockNumber, Err: err}
	}

	c.metrics.SetChainHead(height)
	return height, nil
}

// GetLogs returns every log emitted by token in [from, to] inclusive.
func (c *Client) GetLogs(ctx context.Context, token common.Address, from, to uint64) ([]types.Log, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{token},
	}

	var logs []types.Log
	err = c.call(ctx, methodGetLogs, func(ctx context.Context) error {
		var err error
		logs, err = client.FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, &RPCError{Method: methodGetLogs, From: from, To: to, Err: err}
	}

	c.metrics.AddLogsFetched(len(logs))
	return logs, nil
}

func (c *Client) contract() (*bind.BoundContract, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenContract == nil {
		return nil, ErrNotConnected
	}
	return c.tokenContract, nil
}

func (c *Client) callContract(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	contract, err := c.contract()
	if err != nil {
		return nil, err
	}

	var results []interface{}
	err = c.call(ctx, methodCall, func(ctx context.Context) error {
		return contract.Call(&bind.CallOpts{Context: ctx}, &results, method, params...)
	})
	if err != nil {
		return nil, &RPCError{Method: methodCall, Err: fmt.Errorf("%s: %w", method, err)}
	}
	if len(results) == 0 {
		return nil, &RPCError{Method: methodCall, Err: fmt.Errorf("%s: empty result", method)}
	}
	return results, nil
}

// TokenMetadata reads the token's symbol and decimals.
func (c *Client) TokenMetadata(ctx context.Context) (*models.TokenMetadata, error) {
	results, err := c.callContract(ctx, "symbol")
	if err != nil {
		return nil, err
	}
	symbol, ok := results[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected symbol type %T", results[0])
	}

	results, err = c.callContract(ctx, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := results[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected decimals type %T", results[0])
	}

	return &models.TokenMetadata{Symbol: symbol, Decimals: int32(decimals)}, nil
}

// TokenBalance returns the token balance held by owner.
func (c *Client) TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	results, err := c.callContract(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balance type %T", results[0])
	}
	return balance, nil
}
