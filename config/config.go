// Package config loads adapter configuration from defaults, an optional YAML
// file and LEDGER_ prefixed environment variables, in that order of
// precedence.
//
// Environment keys map to config keys by dropping the prefix, lowercasing and
// turning underscores into dots: LEDGER_FABRIC_POOL_MAXTOTAL sets
// fabric.pool.maxtotal.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/ruteri/did-ledger-adapter/interfaces"
)

const (
	EnvPrefix = "LEDGER_"
	delimiter = "."
)

var (
	ErrMissingKey   = errors.New("missing required configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")
)

type Config struct {
	Ledger string       `koanf:"ledger"`
	EVM    EVMConfig    `koanf:"evm"`
	Fabric FabricConfig `koanf:"fabric"`
}

type EVMConfig struct {
	Network      NetworkConfig    `koanf:"network"`
	ChainID      int64            `koanf:"chainid"`
	Gas          GasConfig        `koanf:"gas"`
	Connection   ConnectionConfig `koanf:"connection"`
	Contract     ContractConfig   `koanf:"contract"`
	Signer       SignerConfig     `koanf:"signer"`
	Receipt      ReceiptConfig    `koanf:"receipt"`
	StrictStatus bool             `koanf:"strictstatus"`
}

type NetworkConfig struct {
	URL string `koanf:"url"`
}

type GasConfig struct {
	Limit uint64 `koanf:"limit"`
	// Price in wei, used when the node suggests zero.
	Price int64 `koanf:"price"`
}

type ConnectionConfig struct {
	// Timeout in milliseconds, applied as the deadline of each contract call.
	Timeout int `koanf:"timeout"`
}

type ContractConfig struct {
	Address    string `koanf:"address"`
	PrivateKey string `koanf:"privatekey"`
}

// SignerConfig points at a remote signing service. It takes precedence over
// contract.privatekey.
type SignerConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"apikey"`
	// Address is the account the remote service signs for.
	Address string `koanf:"address"`
}

type ReceiptConfig struct {
	Attempts uint          `koanf:"attempts"`
	Interval time.Duration `koanf:"interval"`
}

// FabricConfig file paths accept any location keymaterial understands.
type FabricConfig struct {
	MSPID               string        `koanf:"mspid"`
	PrivateKeyFilePath  string        `koanf:"privatekeyfilepath"`
	CertificateFilePath string        `koanf:"certificatefilepath"`
	TLSFilePath         string        `koanf:"tlsfilepath"`
	ServerEndpoint      string        `koanf:"serverendpoint"`
	Peer                PeerConfig    `koanf:"peer"`
	NetworkName         string        `koanf:"networkname"`
	ChaincodeName       string        `koanf:"chaincodename"`
	Timeout             time.Duration `koanf:"timeout"`
	Pool                PoolConfig    `koanf:"pool"`
	StrictStatus        bool          `koanf:"strictstatus"`
}

type PeerConfig struct {
	HostOverride string `koanf:"hostoverride"`
}

type PoolConfig struct {
	MaxTotal int `koanf:"maxtotal"`
	MinIdle  int `koanf:"minidle"`
	MaxIdle  int `koanf:"maxidle"`
}

// Default returns the configuration used for keys that are not set.
func Default() Config {
	return Config{
		Ledger: string(interfaces.LedgerEVM),
		EVM: EVMConfig{
			Gas:        GasConfig{Limit: 10_000_000},
			Connection: ConnectionConfig{Timeout: 10_000},
			Receipt:    ReceiptConfig{Attempts: 40, Interval: time.Second},
		},
		Fabric: FabricConfig{
			Peer:    PeerConfig{HostOverride: "peer0.org1.example.com"},
			Timeout: 7 * time.Second,
			Pool:    PoolConfig{MaxTotal: 10, MinIdle: 2, MaxIdle: 5},
		},
	}
}

// Load reads the configuration. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with a final layer of explicit key values, such
// as command line flags.
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(delimiter)
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("unable to load config defaults: %w", err)
	}

	// user holds only what was set explicitly, so defaults can be told apart.
	user := koanf.New(delimiter)
	if path != "" {
		if err := user.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	}

	// errors can't occur for this provider
	_ = user.Load(env.Provider(EnvPrefix, delimiter, func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", delimiter)
	}), nil)

	for key, value := range overrides {
		if err := user.Set(key, value); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err)
		}
	}

	if err := k.Merge(user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	cfg.Fabric.Pool = cfg.Fabric.Pool.clamp(user.Exists("fabric.pool.maxidle"), user.Exists("fabric.pool.minidle"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// clamp shrinks default idle limits to fit a smaller explicit maxtotal.
// Explicitly set limits are left for validate to reject.
func (p PoolConfig) clamp(explicitMaxIdle, explicitMinIdle bool) PoolConfig {
	if !explicitMaxIdle && p.MaxIdle > p.MaxTotal {
		p.MaxIdle = p.MaxTotal
	}
	if !explicitMinIdle && p.MinIdle > p.MaxIdle {
		p.MinIdle = p.MaxIdle
	}
	return p
}

// Validate checks that the selected backend has everything it needs.
func (c *Config) Validate() error {
	switch interfaces.LedgerType(strings.ToLower(c.Ledger)) {
	case interfaces.LedgerEVM:
		return c.EVM.validate()
	case interfaces.LedgerFabric:
		return c.Fabric.validate()
	default:
		return fmt.Errorf("%w: ledger must be %q or %q, got %q", ErrInvalidValue, interfaces.LedgerEVM, interfaces.LedgerFabric, c.Ledger)
	}
}

func (c EVMConfig) validate() error {
	if err := requireKeys(map[string]string{
		"evm.network.url":      c.Network.URL,
		"evm.contract.address": c.Contract.Address,
	}); err != nil {
		return err
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("%w: evm.chainid", ErrMissingKey)
	}
	if !common.IsHexAddress(c.Contract.Address) {
		return fmt.Errorf("%w: evm.contract.address %q is not an address", ErrInvalidValue, c.Contract.Address)
	}
	if c.Signer.URL != "" && !common.IsHexAddress(c.Signer.Address) {
		return fmt.Errorf("%w: evm.signer.address is required with evm.signer.url", ErrInvalidValue)
	}
	if c.Signer.URL == "" && c.Contract.PrivateKey == "" {
		return fmt.Errorf("%w: evm.contract.privatekey or evm.signer.url", ErrMissingKey)
	}
	if c.Gas.Price < 0 {
		return fmt.Errorf("%w: evm.gas.price must not be negative", ErrInvalidValue)
	}
	return nil
}

func (c FabricConfig) validate() error {
	if err := requireKeys(map[string]string{
		"fabric.mspid":               c.MSPID,
		"fabric.privatekeyfilepath":  c.PrivateKeyFilePath,
		"fabric.certificatefilepath": c.CertificateFilePath,
		"fabric.tlsfilepath":         c.TLSFilePath,
		"fabric.serverendpoint":      c.ServerEndpoint,
		"fabric.networkname":         c.NetworkName,
		"fabric.chaincodename":       c.ChaincodeName,
	}); err != nil {
		return err
	}
	if c.Pool.MaxTotal <= 0 || c.Pool.MinIdle < 0 || c.Pool.MaxIdle < 0 || c.Pool.MaxIdle > c.Pool.MaxTotal || c.Pool.MinIdle > c.Pool.MaxIdle {
		return fmt.Errorf("%w: fabric.pool sizes %d/%d/%d", ErrInvalidValue, c.Pool.MaxTotal, c.Pool.MinIdle, c.Pool.MaxIdle)
	}
	return nil
}

// requireKeys reports the missing keys in a stable order.
func requireKeys(values map[string]string) error {
	var missing []string
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
}
