package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// archetypeABI is the slice of the Archetype contract interface this backend
// actually touches: invite terms, global config, supply reads and the payable
// mint entrypoint.
const archetypeABI = `[
	{
		"name": "invites",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "key", "type": "bytes32"}],
		"outputs": [
			{"name": "price", "type": "uint128"},
			{"name": "start", "type": "uint32"},
			{"name": "end", "type": "uint32"},
			{"name": "limit", "type": "uint32"}
		]
	},
	{
		"name": "config",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [
			{"name": "maxSupply", "type": "uint32"},
			{"name": "maxBatchSize", "type": "uint32"}
		]
	},
	{
		"name": "totalSupply",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "owner", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "mint",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{
				"name": "auth",
				"type": "tuple",
				"components": [
					{"name": "key", "type": "bytes32"},
					{"name": "proof", "type": "bytes32[]"}
				]
			},
			{"name": "quantity", "type": "uint256"},
			{"name": "affiliate", "type": "address"},
			{"name": "affiliateSigner", "type": "bytes32"}
		],
		"outputs": []
	}
]`

// PublicListRoot is the zero-hash sentinel selecting the public invite list
var PublicListRoot = common.Hash{}

// Auth is the (listRoot, proofPath) tuple passed to mint. The public path
// uses the zero root and an empty proof.
type Auth struct {
	Key   [32]byte
	Proof [][32]byte
}

// NewAuth builds the auth tuple from a list root and proof path
func NewAuth(root common.Hash, proof []common.Hash) Auth {
	packed := make([][32]byte, len(proof))
	for i, h := range proof {
		packed[i] = h
	}
	return Auth{Key: root, Proof: packed}
}

// Invite per-list mint terms as reported by the contract
type Invite struct {
	Price *big.Int
	Start uint32
	End   uint32
	Limit uint32
}

// CollectionConfig global collection constraints
type CollectionConfig struct {
	MaxSupply    uint32
	MaxBatchSize uint32
}

// Archetype read/encode surface over a deployed Archetype contract
type Archetype struct {
	address common.Address
	abi     abi.ABI
	caller  bind.ContractCaller
}

// NewArchetype binds the contract address to a caller backend
func NewArchetype(address common.Address, caller bind.ContractCaller) (*Archetype, error) {
	parsed, err := abi.JSON(strings.NewReader(archetypeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse archetype ABI: %w", err)
	}
	return &Archetype{
		address: address,
		abi:     parsed,
		caller:  caller,
	}, nil
}

// Address returns the bound contract address
func (a *Archetype) Address() common.Address {
	return a.address
}

func (a *Archetype) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := a.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &a.address, Data: data}
	raw, err := a.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := a.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// Invite reads the invite terms for a list root
func (a *Archetype) Invite(ctx context.Context, root common.Hash) (*Invite, error) {
	out, err := a.call(ctx, "invites", [32]byte(root))
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("unexpected invites output arity: %d", len(out))
	}
	return &Invite{
		Price: out[0].(*big.Int),
		Start: out[1].(uint32),
		End:   out[2].(uint32),
		Limit: out[3].(uint32),
	}, nil
}

// Config reads the global collection constraints
func (a *Archetype) Config(ctx context.Context) (*CollectionConfig, error) {
	out, err := a.call(ctx, "config")
	if err != nil {
		return nil, err
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("unexpected config output arity: %d", len(out))
	}
	return &CollectionConfig{
		MaxSupply:    out[0].(uint32),
		MaxBatchSize: out[1].(uint32),
	}, nil
}

// TotalSupply reads the number of tokens minted so far
func (a *Archetype) TotalSupply(ctx context.Context) (*big.Int, error) {
	out, err := a.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// BalanceOf reads the wallet's current holdings
func (a *Archetype) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := a.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// PackMint encodes the calldata for mint(auth, quantity, affiliate, affiliateSigner)
func (a *Archetype) PackMint(auth Auth, quantity *big.Int, affiliate common.Address, affiliateSigner [32]byte) ([]byte, error) {
	data, err := a.abi.Pack("mint", auth, quantity, affiliate, affiliateSigner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack mint call: %w", err)
	}
	return data, nil
}
