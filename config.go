package main

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crypto-power/cryptovote/libvote"
	"github.com/crypto-power/cryptovote/libvote/ledger"
	"github.com/crypto-power/cryptovote/libvote/utils"
	"github.com/crypto-power/cryptovote/logger"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/ethereum/go-ethereum/params"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "cryptovote.conf"
	defaultLogDirname     = "logs"
	defaultMaxLogZips     = 8
	defaultNetwork        = "sepolia"
	defaultRPCURL         = "http://localhost:8545"
	defaultHTTPTimeout    = 30 * time.Second
)

var defaultAppDataDir = dcrutil.AppDataDir("cryptovote", false)

type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir  string `short:"A" long:"appdata" description:"Path to application data directory"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	MaxLogZips  int    `long:"maxlogzips" description:"The number of zipped log files created by the log rotator to be retained. Setting to 0 will keep all."`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical} or <subsystem>=<level>,... pairs"`

	Network     string        `long:"network" description:"Ledger network {mainnet, sepolia, goerli, localnet}"`
	BackendHost string        `long:"backend" description:"Base URL of the election metadata backend"`
	HTTPTimeout time.Duration `long:"httptimeout" description:"Timeout of metadata backend requests"`
	Token       string        `long:"token" env:"CRYPTOVOTE_TOKEN" description:"Session token identifying the voter on the backend"`

	RPCURL             string        `long:"rpcurl" env:"CRYPTOVOTE_RPC_URL" description:"JSON-RPC endpoint of the ledger node"`
	RelayerKey         string        `long:"relayerkey" env:"CRYPTOVOTE_RELAYER_KEY" description:"Hex encoded private key that signs vote transactions"`
	GasLimit           uint64        `long:"gaslimit" description:"Gas limit of vote transactions"`
	FinalityTimeout    time.Duration `long:"finalitytimeout" description:"How long to wait for a vote transaction to be final"`
	Confirmations      uint64        `long:"confirmations" description:"Blocks required on top of a vote transaction before it is final"`
	MinContractBalance string        `long:"mincontractbalance" description:"Election contract balance in ether below which votes are not attempted"`
	TallyConcurrency   int           `long:"tallyconcurrency" description:"Maximum concurrent ledger reads while tallying"`

	netType    utils.NetworkType
	minBalance *big.Int
}

func defaultConfig() config {
	return config{
		AppDataDir:      defaultAppDataDir,
		ConfigFile:      filepath.Join(defaultAppDataDir, defaultConfigFilename),
		LogDir:          filepath.Join(defaultAppDataDir, defaultLogDirname),
		MaxLogZips:      defaultMaxLogZips,
		DebugLevel:      utils.DefaultLogLevel,
		Network:         defaultNetwork,
		BackendHost:     libvote.DefaultBackendHost,
		HTTPTimeout:     defaultHTTPTimeout,
		RPCURL:          defaultRPCURL,
		GasLimit:        ledger.DefaultGasLimit,
		FinalityTimeout: ledger.DefaultFinalityTimeout,
		Confirmations:   ledger.DefaultConfirmations,
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The last step happens in the returned parser, which also dispatches the
// requested command.
func loadConfig() (*config, *flags.Parser, error) {
	cfg := defaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.IgnoreUnknown)
	if _, err := preParser.Parse(); err != nil {
		return nil, nil, err
	}

	if preCfg.ShowVersion {
		if BuildDate != "" {
			fmt.Printf("cryptovote version %s (built %s)\n", Version, BuildDate)
		} else {
			fmt.Printf("cryptovote version %s\n", Version)
		}
		os.Exit(0)
	}

	// A non-default appdata moves the default config file and log
	// directory along with it.
	if preCfg.AppDataDir != defaultAppDataDir {
		cfg.AppDataDir = cleanAndExpandPath(preCfg.AppDataDir)
		if preCfg.ConfigFile == defaultConfig().ConfigFile {
			preCfg.ConfigFile = filepath.Join(cfg.AppDataDir, defaultConfigFilename)
		}
		cfg.LogDir = filepath.Join(cfg.AppDataDir, defaultLogDirname)
	}
	cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)

	// If a config file exists parse it.
	if fileExists(cfg.ConfigFile) {
		fileParser := flags.NewParser(&cfg, flags.IgnoreUnknown)
		if err := flags.NewIniParser(fileParser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	// The command line options are parsed again by the returned parser so
	// they take precedence.
	parser := flags.NewParser(&cfg, flags.Default)
	return &cfg, parser, nil
}

// normalize validates the parsed options and derives the values the vote
// manager needs from them.
func (cfg *config) normalize() error {
	cfg.AppDataDir = cleanAndExpandPath(cfg.AppDataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	cfg.netType = utils.ToNetworkType(cfg.Network)
	if cfg.netType == utils.Unknown {
		return fmt.Errorf("unsupported network %q", cfg.Network)
	}

	if cfg.MaxLogZips < 0 {
		cfg.MaxLogZips = 0
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("httptimeout must be positive")
	}
	if cfg.FinalityTimeout <= 0 {
		return fmt.Errorf("finalitytimeout must be positive")
	}

	if cfg.MinContractBalance != "" {
		wei, err := parseEther(cfg.MinContractBalance)
		if err != nil {
			return fmt.Errorf("invalid mincontractbalance: %v", err)
		}
		cfg.minBalance = wei
	}

	return parseAndSetDebugLevels(cfg.DebugLevel)
}

// voteManagerConfig returns the libvote configuration of the network
// selected by cfg. Every network keeps its data in its own directory.
func (cfg *config) voteManagerConfig() *libvote.Config {
	return &libvote.Config{
		RootDir:     filepath.Join(cfg.AppDataDir, string(cfg.netType)),
		BackendHost: cfg.BackendHost,
		HTTPTimeout: cfg.HTTPTimeout,
		Ledger: ledger.Config{
			RPCURL:          cfg.RPCURL,
			Network:         cfg.netType,
			RelayerKey:      cfg.RelayerKey,
			GasLimit:        cfg.GasLimit,
			FinalityTimeout: cfg.FinalityTimeout,
			Confirmations:   cfg.Confirmations,
		},
		MinContractBalance: cfg.minBalance,
		TallyConcurrency:   cfg.TallyConcurrency,
	}
}

// parseEther converts a decimal ether amount to wei.
func parseEther(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("%q is not a number", amount)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%q is negative", amount)
	}
	r.Mul(r, new(big.Rat).SetInt(big.NewInt(params.Ether)))
	if !r.IsInt() {
		return nil, fmt.Errorf("%q has more than 18 decimals", amount)
	}
	return new(big.Int).Set(r.Num()), nil
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		return logger.SetLogLevels(debugLevel)
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an invalid "+
				"subsystem/level pair [%v]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if !logger.IsSubsystem(subsysID) {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- "+
				"supported subsystems %v", subsysID, logger.SupportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
		}
		logger.SetLogLevel(subsysID, logLevel)
	}
	return nil
}

func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical", "off":
		return true
	}
	return false
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultAppDataDir)
		if home, err := os.UserHomeDir(); err == nil {
			homeDir = home
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}
