package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/crypto-power/cryptovote/libvote/internal/contract"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the RPC surface the eth ledger needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config configures an EthLedger.
type Config struct {
	RPCURL  string
	Network utils.NetworkType

	// RelayerKey is the hex encoded private key that signs vote
	// transactions. Reads work without it.
	RelayerKey string

	GasLimit        uint64
	FinalityTimeout time.Duration
	PollInterval    time.Duration
	Confirmations   uint64
}

// EthLedger implements Ledger over an EVM json-rpc endpoint.
type EthLedger struct {
	backend Backend
	closer  func()

	chainID *big.Int
	key     *ecdsa.PrivateKey

	gasLimit        uint64
	finalityTimeout time.Duration
	pollInterval    time.Duration
	confirmations   uint64

	bindingsMu sync.Mutex
	bindings   map[common.Address]*contract.Election
}

// Dial connects to cfg.RPCURL and returns a ledger bound to its chain.
func Dial(ctx context.Context, cfg *Config) (*EthLedger, error) {
	if cfg.RPCURL == "" {
		return nil, utils.NewErrorReason(utils.ErrInvalidConfig, "No ledger rpc url configured", nil)
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, utils.NewError(utils.ErrNetwork, err)
	}

	l, err := New(ctx, client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	l.closer = client.Close
	return l, nil
}

// New returns a ledger over an established backend. The chain id reported
// by the backend must match cfg.Network when one is configured.
func New(ctx context.Context, backend Backend, cfg *Config) (*EthLedger, error) {
	l := &EthLedger{
		backend:         backend,
		gasLimit:        cfg.GasLimit,
		finalityTimeout: cfg.FinalityTimeout,
		pollInterval:    cfg.PollInterval,
		confirmations:   cfg.Confirmations,
		bindings:        make(map[common.Address]*contract.Election),
	}
	if l.gasLimit == 0 {
		l.gasLimit = DefaultGasLimit
	}
	if l.finalityTimeout <= 0 {
		l.finalityTimeout = DefaultFinalityTimeout
	}
	if l.pollInterval <= 0 {
		l.pollInterval = DefaultPollInterval
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, utils.NewError(utils.ErrNetwork, err)
	}
	if want := cfg.Network.ChainID(); want != nil && want.Cmp(chainID) != 0 {
		return nil, utils.NewErrorReason(utils.ErrInvalidConfig,
			fmt.Sprintf("Ledger endpoint serves chain %v, expected %s (%v)", chainID, cfg.Network.Display(), want), nil)
	}
	l.chainID = chainID

	if cfg.RelayerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayerKey, "0x"))
		if err != nil {
			return nil, utils.NewErrorReason(utils.ErrInvalidConfig, "Relayer key is invalid", err)
		}
		l.key = key
		log.Infof("Vote transactions will be signed by %s", crypto.PubkeyToAddress(key.PublicKey).Hex())
	}
	return l, nil
}

// Close releases the rpc connection.
func (l *EthLedger) Close() {
	if l.closer != nil {
		l.closer()
	}
}

// FinalityTimeout is the longest WaitFinality blocks.
func (l *EthLedger) FinalityTimeout() time.Duration {
	return l.finalityTimeout
}

func (l *EthLedger) binding(contractAddress string) (*contract.Election, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, utils.NewErrorReason(utils.ErrMalformed,
			fmt.Sprintf("Election contract address %q is invalid", contractAddress), nil)
	}
	address := common.HexToAddress(contractAddress)

	l.bindingsMu.Lock()
	defer l.bindingsMu.Unlock()
	if b, ok := l.bindings[address]; ok {
		return b, nil
	}
	b, err := contract.NewElection(address, l.backend)
	if err != nil {
		return nil, utils.NewError(utils.ErrMalformed, err)
	}
	l.bindings[address] = b
	return b, nil
}

func callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

func (l *EthLedger) IsVoter(ctx context.Context, contractAddress, voterID string) (bool, error) {
	b, err := l.binding(contractAddress)
	if err != nil {
		return false, err
	}
	ok, err := b.IsVoter(callOpts(ctx), voterID)
	return ok, classifyReadError(err)
}

func (l *EthLedger) HasVoted(ctx context.Context, contractAddress, voterID string) (bool, error) {
	b, err := l.binding(contractAddress)
	if err != nil {
		return false, err
	}
	voted, err := b.HasVoted(callOpts(ctx), voterID)
	return voted, classifyReadError(err)
}

func (l *EthLedger) Votes(ctx context.Context, contractAddress, candidateID string) (*big.Int, error) {
	b, err := l.binding(contractAddress)
	if err != nil {
		return nil, err
	}
	votes, err := b.GetVotes(callOpts(ctx), candidateID)
	return votes, classifyReadError(err)
}

func (l *EthLedger) AllVotes(ctx context.Context, contractAddress string) ([]*big.Int, error) {
	b, err := l.binding(contractAddress)
	if err != nil {
		return nil, err
	}
	votes, err := b.GetAllVotes(callOpts(ctx))
	return votes, classifyReadError(err)
}

func (l *EthLedger) ContractBalance(ctx context.Context, contractAddress string) (*big.Int, error) {
	b, err := l.binding(contractAddress)
	if err != nil {
		return nil, err
	}
	balance, err := b.GetContractBalance(callOpts(ctx))
	return balance, classifyReadError(err)
}

// Vote signs and broadcasts vote(voterID, candidateID) with the relayer key.
func (l *EthLedger) Vote(ctx context.Context, contractAddress, voterID, candidateID string) (string, error) {
	if l.key == nil {
		return "", utils.NewErrorReason(utils.ErrInvalidConfig, "No relayer key configured, votes cannot be signed", nil)
	}
	b, err := l.binding(contractAddress)
	if err != nil {
		return "", err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.key, l.chainID)
	if err != nil {
		return "", utils.NewError(utils.ErrInvalidConfig, err)
	}
	opts.Context = ctx
	opts.GasLimit = l.gasLimit

	tx, err := b.Vote(opts, voterID, candidateID)
	if err != nil {
		log.Errorf("Vote transaction for %s on %s failed: %v", voterID, contractAddress, err)
		return "", classifySendError(err)
	}

	log.Infof("Broadcast vote transaction %s on %s", tx.Hash().Hex(), contractAddress)
	return tx.Hash().Hex(), nil
}
