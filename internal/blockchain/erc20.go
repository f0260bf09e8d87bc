package blockchain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/core-coin/vault-indexer/internal/models"
)

// ERC20ABI covers the parts of the ERC-20 interface the indexer touches
const ERC20ABI = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"}]`

// TransferEventSignature is topic0 of Transfer(address indexed from, address indexed to, uint256 value)
var TransferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// transferTopics is the signature plus the two indexed addresses
const transferTopics = 3

type Transfer struct {
	TxHash      common.Hash
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
	Token       common.Address
	From        common.Address
	To          common.Address
	Amount      *big.Int
}

// DecodeTransfer extracts an ERC-20 transfer sent to vault from a raw log.
// It returns false for logs of any other shape and for transfers to other recipients.
func DecodeTransfer(log types.Log, vault common.Address) (*Transfer, bool) {
	if log.Removed || len(log.Topics) != transferTopics || log.Topics[0] != TransferEventSignature {
		return nil, false
	}

	// addresses are right-aligned in 32-byte topics
	to := common.BytesToAddress(log.Topics[2].Bytes()[12:])
	if to != vault {
		return nil, false
	}

	return &Transfer{
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		TxIndex:     log.TxIndex,
		LogIndex:    log.Index,
		Token:       log.Address,
		From:        common.BytesToAddress(log.Topics[1].Bytes()[12:]),
		To:          to,
		Amount:      new(big.Int).SetBytes(log.Data),
	}, true
}

// Deposit converts the transfer into the row stored for it.
func (t *Transfer) Deposit() *models.Deposit {
	txIndex, logIndex := t.TxIndex, t.LogIndex
	return &models.Deposit{
		TxHash:       t.TxHash.Hex(),
		BlockNumber:  t.BlockNumber,
		TxIndex:      &txIndex,
		LogIndex:     &logIndex,
		Sender:       hexAddress(t.From),
		ToAddress:    hexAddress(t.To),
		AmountWei:    t.Amount.String(),
		TokenAddress: hexAddress(t.Token),
		Status:       models.DepositStatusConfirmed,
	}
}

func hexAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
