// Package evm implements the ledger adapter for EVM smart-contract networks.
//
// Every call dials a fresh JSON-RPC client and tears it down before returning.
// Write calls fetch the network gas price, sign with the configured
// interfaces.Signer and poll for the receipt a fixed number of times.
package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/ruteri/did-ledger-adapter/signer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultGasLimit        uint64        = 10_000_000
	DefaultReceiptAttempts uint          = 40
	DefaultReceiptInterval time.Duration = time.Second
	DefaultTimeout         time.Duration = 10 * time.Second
)

var (
	// ErrNoSigner is returned when a write is attempted without a signer.
	ErrNoSigner = errors.New("no authorized transactor available")

	errReceiptFailed  = errors.New("transaction reverted")
	errReceiptMissing = errors.New("transaction receipt not available")
)

// Config describes the network and contract an Engine talks to.
type Config struct {
	RPCURL          string
	ChainID         *big.Int
	ContractAddress common.Address

	GasLimit uint64
	// GasPrice is used when the node suggests a zero price.
	GasPrice *big.Int

	// Timeout bounds each contract call, receipt polling included.
	Timeout time.Duration

	ReceiptAttempts uint
	ReceiptInterval time.Duration
}

// Engine executes contract calls. It keeps no connection state between calls.
type Engine struct {
	cfg    Config
	abi    abi.ABI
	signer interfaces.Signer
	log    *slog.Logger
}

// NewEngine validates cfg and fills in defaults. signer may be nil for
// read-only use; writes then fail with ErrNoSigner.
func NewEngine(cfg Config, s interfaces.Signer, log *slog.Logger) (*Engine, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("%w: missing RPC URL", interfaces.ErrInvalidArgument)
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("%w: missing chain id", interfaces.ErrInvalidArgument)
	}
	if cfg.ContractAddress == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing contract address", interfaces.ErrInvalidArgument)
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReceiptAttempts == 0 {
		cfg.ReceiptAttempts = DefaultReceiptAttempts
	}
	if cfg.ReceiptInterval <= 0 {
		cfg.ReceiptInterval = DefaultReceiptInterval
	}

	contractABI, err := ContractABI()
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    cfg,
		abi:    contractABI,
		signer: s,
		log:    log,
	}, nil
}

// Call runs a read-only contract method and returns its unpacked outputs.
func (e *Engine) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	err := e.execute(ctx, method, false, func(ctx context.Context, client *ethclient.Client) error {
		contract := bind.NewBoundContract(e.cfg.ContractAddress, e.abi, client, nil, nil)
		return contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transact sends a signed state-changing call and waits for a successful receipt.
func (e *Engine) Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error) {
	if e.signer == nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrInvalidArgument, ErrNoSigner)
	}

	var receipt *types.Receipt
	err := e.execute(ctx, method, true, func(ctx context.Context, client *ethclient.Client) error {
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		if gasPrice.Sign() == 0 && e.cfg.GasPrice != nil {
			gasPrice = e.cfg.GasPrice
		}

		opts := &bind.TransactOpts{
			From:     e.signer.Address(),
			Signer:   signer.SignerFn(ctx, e.cfg.ChainID, e.signer),
			GasPrice: gasPrice,
			GasLimit: e.cfg.GasLimit,
			Context:  ctx,
		}

		contract := bind.NewBoundContract(e.cfg.ContractAddress, e.abi, client, client, client)
		tx, err := contract.Transact(opts, method, args...)
		if err != nil {
			return err
		}

		receipt, err = e.waitReceipt(ctx, client, tx.Hash())
		if err != nil {
			return err
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return fmt.Errorf("%w: %s", errReceiptFailed, tx.Hash().Hex())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// execute opens a dedicated client for one call and always tears it down.
func (e *Engine) execute(ctx context.Context, method string, write bool, fn func(context.Context, *ethclient.Client) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		IdleConnTimeout: e.cfg.Timeout,
	}
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   e.cfg.Timeout,
	}
	defer transport.CloseIdleConnections()

	rpcClient, err := rpc.DialOptions(ctx, e.cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		e.log.Error("Failed to dial node",
			"err", err,
			slog.String("method", method))
		return fmt.Errorf("%w: %v", interfaces.ErrConnection, err)
	}
	client := ethclient.NewClient(rpcClient)
	defer client.Close()

	if err := fn(ctx, client); err != nil {
		classified := classifyError(err)
		e.log.Error("Contract call failed",
			"err", err,
			slog.String("method", method),
			slog.Bool("write", write),
			slog.Duration("duration", time.Since(start)))
		return classified
	}

	e.log.Debug("Contract call completed",
		slog.String("method", method),
		slog.Bool("write", write),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (e *Engine) waitReceipt(ctx context.Context, client *ethclient.Client, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := retry.Do(
		func() error {
			r, err := client.TransactionReceipt(ctx, hash)
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					return err
				}
				return retry.Unrecoverable(err)
			}
			receipt = r
			return nil
		},
		retry.Attempts(e.cfg.ReceiptAttempts),
		retry.Delay(e.cfg.ReceiptInterval),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w for %s after %d attempts", errReceiptMissing, hash.Hex(), e.cfg.ReceiptAttempts)
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// classifyError separates contract rejections from transport failures.
// JSON-RPC error objects mean the node processed the request and refused it.
func classifyError(err error) error {
	var rpcErr rpc.Error
	switch {
	case errors.Is(err, errReceiptFailed), errors.Is(err, bind.ErrNoCode):
		return fmt.Errorf("%w: %v", interfaces.ErrTransaction, err)
	case errors.As(err, &rpcErr):
		return fmt.Errorf("%w: %v", interfaces.ErrTransaction, err)
	default:
		return fmt.Errorf("%w: %v", interfaces.ErrConnection, err)
	}
}

// unpackOne converts the single output of a contract call into its record type.
func unpackOne[T any](out []any) (rec T, err error) {
	if len(out) != 1 {
		return rec, fmt.Errorf("%w: expected 1 return value, got %d", interfaces.ErrConversion, len(out))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", interfaces.ErrConversion, r)
		}
	}()
	return *abi.ConvertType(out[0], new(T)).(*T), nil
}
