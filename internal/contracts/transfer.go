package contracts

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// transferEventSig keccak256("Transfer(address,address,uint256)")
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// TokenIDsFromLogs extracts the token IDs minted to the recipient from a
// receipt's logs, in emission order. Only ERC-721 Transfer events emitted by
// the given contract count; ERC-20 Transfers share the signature but carry
// the amount in the data field instead of a fourth topic, so they are
// skipped by the topic-arity check.
func TokenIDsFromLogs(logs []*types.Log, contract, recipient common.Address) []string {
	tokenIDs := make([]string, 0, len(logs))
	for _, log := range logs {
		if log == nil || log.Address != contract {
			continue
		}
		if len(log.Topics) != 4 || log.Topics[0] != transferEventSig {
			continue
		}
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if to != recipient {
			continue
		}
		tokenID := log.Topics[3].Big()
		tokenIDs = append(tokenIDs, tokenID.String())
	}
	return tokenIDs
}
