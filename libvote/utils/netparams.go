package utils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type NetworkType string

const (
	Mainnet  NetworkType = "mainnet"
	Sepolia  NetworkType = "sepolia"
	Goerli   NetworkType = "goerli"
	Localnet NetworkType = "localnet"
	Unknown  NetworkType = "unknown"
)

// localnetChainID is the chain id used by common development chains
// (ganache, hardhat with default settings).
var localnetChainID = big.NewInt(1337)

// Display returns the title case network name.
func (n NetworkType) Display() string {
	caser := cases.Title(language.Und)
	return caser.String(string(n))
}

// ChainID returns the EIP-155 chain id of the network or nil when unknown.
func (n NetworkType) ChainID() *big.Int {
	switch n {
	case Mainnet:
		return new(big.Int).Set(params.MainnetChainConfig.ChainID)
	case Sepolia:
		return new(big.Int).Set(params.SepoliaChainConfig.ChainID)
	case Goerli:
		return new(big.Int).Set(params.GoerliChainConfig.ChainID)
	case Localnet:
		return new(big.Int).Set(localnetChainID)
	default:
		return nil
	}
}

// ToNetworkType maps the provided network string identifier to the available
// network type constants.
func ToNetworkType(str string) NetworkType {
	switch strings.ToLower(str) {
	case "mainnet", "main":
		return Mainnet
	case "sepolia":
		return Sepolia
	case "goerli":
		return Goerli
	case "localnet", "local", "dev", "simnet":
		return Localnet
	default:
		return Unknown
	}
}
