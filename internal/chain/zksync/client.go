package zksync

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/compose-network/bridge-tester/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	DefaultL2GasLimit    = 3_000_000
	DefaultGasPerPubdata = 800

	getBridgehubMethod = "zks_getBridgehubContract"
	getBridgesMethod   = "zks_getBridgeContracts"
	getLogProofMethod  = "zks_getL2ToL1LogProof"
	getReceiptMethod   = "eth_getTransactionReceipt"
)

type (
	Config struct {
		L1URL string
		Key   *ecdsa.PrivateKey
		// L2GasLimit bounds the L2 execution of a deposit.
		L2GasLimit          uint64
		GasPerPubdata       uint64
		ReceiptPollInterval time.Duration
	}

	// BridgeContracts are the addresses announced by the L2 node.
	BridgeContracts struct {
		Bridgehub      common.Address `json:"-"`
		L1SharedBridge common.Address `json:"l1SharedDefaultBridge"`
		L2SharedBridge common.Address `json:"l2SharedDefaultBridge"`
	}

	// Client talks to one L1/L2 pair on behalf of one wallet. It implements bridge.Gateway.
	Client struct {
		cfg       Config
		l1        *ethclient.Client
		l2        *ethclient.Client
		l2RPC     *rpc.Client
		from      common.Address
		l1ChainID *big.Int
		l2ChainID *big.Int
		contracts BridgeContracts
		abis      contractABIs
		l1Ledger  *Ledger
		l2Ledger  *Ledger
		logger    *slog.Logger
	}

	contractABIs struct {
		bridgehub      *abi.ABI
		l1SharedBridge *abi.ABI
		l2SharedBridge *abi.ABI
		l2BaseToken    *abi.ABI
		erc20          *abi.ABI
	}
)

var _ bridge.Gateway = (*Client)(nil)

// Dial connects to both chains and discovers the bridge contracts through the L2 node.
func Dial(ctx context.Context, cfg Config, l2URL string) (*Client, error) {
	if cfg.Key == nil {
		return nil, errors.New("wallet key is required")
	}
	if cfg.L2GasLimit == 0 {
		cfg.L2GasLimit = DefaultL2GasLimit
	}
	if cfg.GasPerPubdata == 0 {
		cfg.GasPerPubdata = DefaultGasPerPubdata
	}

	abis, err := loadABIs()
	if err != nil {
		return nil, err
	}

	l1, err := ethclient.DialContext(ctx, cfg.L1URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial L1 RPC: %w", err)
	}

	l2RPC, err := rpc.DialContext(ctx, l2URL)
	if err != nil {
		l1.Close()
		return nil, fmt.Errorf("failed to dial L2 RPC: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		l1:     l1,
		l2:     ethclient.NewClient(l2RPC),
		l2RPC:  l2RPC,
		from:   crypto.PubkeyToAddress(cfg.Key.PublicKey),
		abis:   abis,
		logger: logger.Named("zksync_client"),
	}

	if err := c.init(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) init(ctx context.Context) error {
	var err error
	if c.l1ChainID, err = c.l1.ChainID(ctx); err != nil {
		return fmt.Errorf("failed to get L1 chain id: %w", err)
	}
	if c.l2ChainID, err = c.l2.ChainID(ctx); err != nil {
		return fmt.Errorf("failed to get L2 chain id: %w", err)
	}

	if c.contracts, err = discoverContracts(ctx, c.l2RPC); err != nil {
		return err
	}

	if c.l1Ledger, err = NewLedger("l1", c.l1, c.cfg.ReceiptPollInterval); err != nil {
		return err
	}
	if c.l2Ledger, err = NewLedger("l2", c.l2, c.cfg.ReceiptPollInterval); err != nil {
		return err
	}

	c.logger.
		With("wallet", c.from.Hex()).
		With("l1_chain_id", c.l1ChainID).
		With("l2_chain_id", c.l2ChainID).
		With("bridgehub", c.contracts.Bridgehub.Hex()).
		With("l1_shared_bridge", c.contracts.L1SharedBridge.Hex()).
		With("l2_shared_bridge", c.contracts.L2SharedBridge.Hex()).
		Info("connected to L1 and L2")

	return nil
}

func discoverContracts(ctx context.Context, client *rpc.Client) (BridgeContracts, error) {
	var contracts BridgeContracts
	if err := client.CallContext(ctx, &contracts, getBridgesMethod); err != nil {
		return BridgeContracts{}, fmt.Errorf("%s failed: %w", getBridgesMethod, err)
	}
	if err := client.CallContext(ctx, &contracts.Bridgehub, getBridgehubMethod); err != nil {
		return BridgeContracts{}, fmt.Errorf("%s failed: %w", getBridgehubMethod, err)
	}

	var errs []error
	if contracts.Bridgehub == (common.Address{}) {
		errs = append(errs, errors.New("bridgehub address is empty"))
	}
	if contracts.L1SharedBridge == (common.Address{}) {
		errs = append(errs, errors.New("L1 shared bridge address is empty"))
	}
	if contracts.L2SharedBridge == (common.Address{}) {
		errs = append(errs, errors.New("L2 shared bridge address is empty"))
	}
	if len(errs) > 0 {
		return BridgeContracts{}, fmt.Errorf("bridge discovery failed: %w", errors.Join(errs...))
	}

	return contracts, nil
}

func loadABIs() (contractABIs, error) {
	var (
		abis contractABIs
		err  error
	)
	if abis.bridgehub, err = BridgehubMetaData.GetAbi(); err != nil {
		return abis, fmt.Errorf("failed to parse Bridgehub ABI: %w", err)
	}
	if abis.l1SharedBridge, err = L1SharedBridgeMetaData.GetAbi(); err != nil {
		return abis, fmt.Errorf("failed to parse L1SharedBridge ABI: %w", err)
	}
	if abis.l2SharedBridge, err = L2SharedBridgeMetaData.GetAbi(); err != nil {
		return abis, fmt.Errorf("failed to parse L2SharedBridge ABI: %w", err)
	}
	if abis.l2BaseToken, err = L2BaseTokenMetaData.GetAbi(); err != nil {
		return abis, fmt.Errorf("failed to parse L2BaseToken ABI: %w", err)
	}
	if abis.erc20, err = ERC20MetaData.GetAbi(); err != nil {
		return abis, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	return abis, nil
}

func (c *Client) Close() {
	c.l1.Close()
	c.l2RPC.Close()
}

func (c *Client) From() common.Address {
	return c.from
}

func (c *Client) Contracts() BridgeContracts {
	return c.contracts
}

func (c *Client) L1() *Ledger {
	return c.l1Ledger
}

func (c *Client) L2() *Ledger {
	return c.l2Ledger
}

// Clients exposes the client as the chain pair a scenario run works against.
func (c *Client) Clients() *bridge.Clients {
	return &bridge.Clients{
		L1:      c.l1Ledger,
		L2:      c.l2Ledger,
		Gateway: c,
		Close:   c.Close,
	}
}

// GasAssetAddress is the L1 address of the token the L2 pays gas in.
func (c *Client) GasAssetAddress(ctx context.Context) (common.Address, error) {
	var token common.Address
	if err := call(ctx, c.l1, c.abis.bridgehub, c.contracts.Bridgehub, &token, "baseToken", c.l2ChainID); err != nil {
		return common.Address{}, fmt.Errorf("failed to read base token: %w", err)
	}
	return token, nil
}

// L2TokenAddress maps an L1 token to its L2 counterpart. The gas asset lives in the base token system contract.
func (c *Client) L2TokenAddress(ctx context.Context, l1Token common.Address) (common.Address, error) {
	gasAsset, err := c.GasAssetAddress(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if l1Token == gasAsset || (l1Token == (common.Address{}) && gasAsset == bridge.ETHAddressInContracts) {
		return L2BaseTokenAddress, nil
	}

	var l2Token common.Address
	if err := call(ctx, c.l2, c.abis.l2SharedBridge, c.contracts.L2SharedBridge, &l2Token, "l2TokenAddress", l1Token); err != nil {
		return common.Address{}, fmt.Errorf("failed to derive L2 token of %s: %w", l1Token.Hex(), err)
	}
	return l2Token, nil
}

// Connector dials a fresh client for every run.
func Connector(cfg Config) bridge.Connector {
	return func(ctx context.Context, l2URL string) (*bridge.Clients, error) {
		c, err := Dial(ctx, cfg, l2URL)
		if err != nil {
			return nil, err
		}
		return c.Clients(), nil
	}
}
