// Package ledger builds the ContractAPI backend selected by configuration.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/did-ledger-adapter/config"
	"github.com/ruteri/did-ledger-adapter/evm"
	"github.com/ruteri/did-ledger-adapter/fabric"
	"github.com/ruteri/did-ledger-adapter/interfaces"
	"github.com/ruteri/did-ledger-adapter/keymaterial"
	"github.com/ruteri/did-ledger-adapter/signer"
)

// New creates exactly one backend. Key material is loaded and the Fabric pool
// is warmed up before New returns.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (interfaces.ContractAPI, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", interfaces.ErrInvalidArgument)
	}

	keys := keymaterial.NewFactory(log)

	var (
		api interfaces.ContractAPI
		err error
	)
	switch ledgerType := interfaces.LedgerType(strings.ToLower(cfg.Ledger)); ledgerType {
	case interfaces.LedgerEVM:
		log.Info("Creating ledger backend", slog.String("ledger", string(ledgerType)), slog.String("rpc", cfg.EVM.Network.URL))
		api, err = NewEVM(ctx, cfg.EVM, keys, log)
	case interfaces.LedgerFabric:
		log.Info("Creating ledger backend", slog.String("ledger", string(ledgerType)), slog.String("endpoint", cfg.Fabric.ServerEndpoint))
		api, err = NewFabric(ctx, cfg.Fabric, keys, log)
	default:
		return nil, fmt.Errorf("%w: unknown ledger %q", interfaces.ErrInvalidArgument, cfg.Ledger)
	}
	if err != nil {
		log.Error("Failed to create ledger backend", "err", err, slog.String("ledger", cfg.Ledger))
		return nil, err
	}
	return api, nil
}

func NewEVM(ctx context.Context, cfg config.EVMConfig, keys *keymaterial.Factory, log *slog.Logger) (*evm.Client, error) {
	s, err := evmSigner(ctx, cfg, keys)
	if err != nil {
		return nil, err
	}

	engineCfg := evm.Config{
		RPCURL:          cfg.Network.URL,
		ChainID:         big.NewInt(cfg.ChainID),
		ContractAddress: common.HexToAddress(cfg.Contract.Address),
		GasLimit:        cfg.Gas.Limit,
		Timeout:         time.Duration(cfg.Connection.Timeout) * time.Millisecond,
		ReceiptAttempts: cfg.Receipt.Attempts,
		ReceiptInterval: cfg.Receipt.Interval,
	}
	if cfg.Gas.Price > 0 {
		engineCfg.GasPrice = big.NewInt(cfg.Gas.Price)
	}

	engine, err := evm.NewEngine(engineCfg, s, log)
	if err != nil {
		return nil, err
	}
	return evm.NewClient(engine, evm.Codec{StrictStatus: cfg.StrictStatus}, log), nil
}

// evmSigner prefers the remote signer. The private key may be inline hex or a
// key material location.
func evmSigner(ctx context.Context, cfg config.EVMConfig, keys *keymaterial.Factory) (interfaces.Signer, error) {
	if cfg.Signer.URL != "" {
		remote, err := signer.NewRemoteSigner(cfg.Signer.URL, cfg.Signer.APIKey, common.HexToAddress(cfg.Signer.Address))
		if err != nil {
			return nil, err
		}
		return remote, nil
	}

	privateKey := cfg.Contract.PrivateKey
	if strings.Contains(privateKey, "://") {
		data, err := keys.Load(ctx, privateKey)
		if err != nil {
			return nil, fmt.Errorf("could not load contract private key: %w", err)
		}
		privateKey = strings.TrimSpace(string(data))
	}
	local, err := signer.NewLocalSigner(privateKey)
	if err != nil {
		return nil, err
	}
	return local, nil
}

func NewFabric(ctx context.Context, cfg config.FabricConfig, keys *keymaterial.Factory, log *slog.Logger) (*fabric.Client, error) {
	certPEM, err := keys.Load(ctx, cfg.CertificateFilePath)
	if err != nil {
		return nil, fmt.Errorf("could not load certificate: %w", err)
	}
	keyPEM, err := keys.Load(ctx, cfg.PrivateKeyFilePath)
	if err != nil {
		return nil, fmt.Errorf("could not load private key: %w", err)
	}
	tlsPEM, err := keys.Load(ctx, cfg.TLSFilePath)
	if err != nil {
		return nil, fmt.Errorf("could not load TLS root certificate: %w", err)
	}

	factory, err := fabric.NewGRPCGatewayFactory(fabric.GRPCFactoryConfig{
		MSPID:        cfg.MSPID,
		Endpoint:     cfg.ServerEndpoint,
		HostOverride: cfg.Peer.HostOverride,
		CallTimeout:  cfg.Timeout,
		Identity: fabric.IdentityMaterial{
			CertificatePEM: certPEM,
			PrivateKeyPEM:  keyPEM,
			TLSRootPEM:     tlsPEM,
		},
	}, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrConnection, err)
	}

	pool, err := fabric.NewGatewayPool(ctx, fabric.PoolConfig{
		MaxTotal: cfg.Pool.MaxTotal,
		MinIdle:  cfg.Pool.MinIdle,
		MaxIdle:  cfg.Pool.MaxIdle,
	}, factory, log)
	if err != nil {
		factory.Close()
		return nil, err
	}

	sender := fabric.NewSender(pool, cfg.NetworkName, cfg.ChaincodeName, log)
	return fabric.NewClient(sender, fabric.Codec{StrictStatus: cfg.StrictStatus}, log), nil
}
