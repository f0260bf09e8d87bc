package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/core-coin/vault-indexer/internal/blockchain"
	"github.com/core-coin/vault-indexer/internal/models"
)

const testSource = "arbitrum_vault"

var (
	testToken      = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	testOtherToken = common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")
	testVault      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSender     = common.HexToAddress("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	testStranger   = common.HexToAddress("0x3333333333333333333333333333333333333333")

	errProvider = errors.New("provider unavailable")
)

func transferLog(token, from, to common.Address, amount int64, block uint64, seed int64) types.Log {
	return types.Log{
		Address: token,
		Topics: []common.Hash{
			blockchain.TransferEventSignature,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(seed)),
	}
}

func txHash(seed int64) string {
	return common.BigToHash(big.NewInt(seed)).Hex()
}

// fakeChain serves logs from memory. Like a provider ignoring the address
// filter, it returns every log in the requested range.
type fakeChain struct {
	mu      sync.Mutex
	head    uint64
	span    uint64
	logs    map[uint64][]types.Log
	fail    func(from, to uint64) bool
	headErr error
	calls   []BlockRange
	// delay is how long each GetLogs call takes.
	delay time.Duration
	// onFetch runs before each GetLogs call returns.
	onFetch func(from, to uint64)
}

func newFakeChain(head, span uint64) *fakeChain {
	return &fakeChain{head: head, span: span, logs: make(map[uint64][]types.Log)}
}

func (c *fakeChain) add(logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range logs {
		c.logs[l.BlockNumber] = append(c.logs[l.BlockNumber], l)
	}
}

func (c *fakeChain) setHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

func (c *fakeChain) setFail(fail func(from, to uint64) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *fakeChain) fetched() []BlockRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]BlockRange(nil), c.calls...)
}

func (c *fakeChain) GetLatestBlock(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headErr != nil {
		return 0, c.headErr
	}
	return c.head, nil
}

func (c *fakeChain) GetLogs(ctx context.Context, _ common.Address, from, to uint64) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.onFetch != nil {
		c.onFetch(from, to)
	}

	c.calls = append(c.calls, BlockRange{From: from, To: to})
	if to < from || to-from+1 > c.span {
		return nil, fmt.Errorf("range [%d, %d] exceeds %d blocks", from, to, c.span)
	}
	if c.fail != nil && c.fail(from, to) {
		return nil, &blockchain.RPCError{Method: "eth_getLogs", From: from, To: to, Err: errProvider}
	}

	var logs []types.Log
	for block := from; block <= to; block++ {
		logs = append(logs, c.logs[block]...)
		if block == to {
			break
		}
	}
	return logs, nil
}

type memStore struct {
	mu          sync.Mutex
	checkpoints map[string]uint64
	deposits    map[string]*models.Deposit
	locks       map[string]models.AppLock
	insertErr   error
	setErr      error
	renewErr    error
}

func newMemStore() *memStore {
	return &memStore{
		checkpoints: make(map[string]uint64),
		deposits:    make(map[string]*models.Deposit),
		locks:       make(map[string]models.AppLock),
	}
}

func (s *memStore) GetCheckpoint(_ context.Context, source string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	height, ok := s.checkpoints[source]
	return height, ok, nil
}

func (s *memStore) SetCheckpoint(_ context.Context, source string, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.checkpoints[source] = height
	return nil
}

func (s *memStore) checkpoint() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	height, ok := s.checkpoints[testSource]
	return height, ok
}

func (s *memStore) InsertDepositIfAbsent(_ context.Context, deposit *models.Deposit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.deposits[deposit.TxHash]; ok {
		return false, nil
	}
	s.deposits[deposit.TxHash] = deposit
	return true, nil
}

func (s *memStore) deposit(hash string) (*models.Deposit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[hash]
	return d, ok
}

func (s *memStore) depositBlocks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	blocks := make([]uint64, 0, len(s.deposits))
	for _, d := range s.deposits {
		blocks = append(blocks, d.BlockNumber)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

func (s *memStore) AcquireLock(_ context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if lock, ok := s.locks[name]; ok && lock.InstanceID != instanceID && !lock.Expired(now) {
		return false, nil
	}
	s.locks[name] = models.NewAppLock(name, instanceID, now, ttl)
	return true, nil
}

func (s *memStore) RenewLock(_ context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renewErr != nil {
		return false, s.renewErr
	}
	lock, ok := s.locks[name]
	if !ok || lock.InstanceID != instanceID {
		return false, nil
	}
	lock.ExpiresAt = time.Now().Add(ttl).UnixMilli()
	s.locks[name] = lock
	return true, nil
}

func (s *memStore) ReleaseLock(_ context.Context, name, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, ok := s.locks[name]; ok && lock.InstanceID == instanceID {
		delete(s.locks, name)
	}
	return nil
}

// takeLock hands the lease to instanceID regardless of the current holder.
func (s *memStore) takeLock(name, instanceID string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[name] = models.NewAppLock(name, instanceID, time.Now(), ttl)
}

func (s *memStore) setRenewErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renewErr = err
}

func (s *memStore) lockHolder(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	return lock.InstanceID, ok
}

type mockNotificator struct {
	mock.Mock
}

func (m *mockNotificator) SendNotification(ctx context.Context, notification *models.Notification) {
	m.Called(ctx, notification)
}
