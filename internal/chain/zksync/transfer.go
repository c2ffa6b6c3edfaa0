package zksync

import (
	"context"
	"fmt"
	"math/big"

	"github.com/compose-network/bridge-tester/internal/bridge"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

type (
	// l2TransactionRequestDirect mirrors the Bridgehub request tuple of the same name.
	l2TransactionRequestDirect struct {
		ChainId                  *big.Int
		MintValue                *big.Int
		L2Contract               common.Address
		L2Value                  *big.Int
		L2Calldata               []byte
		L2GasLimit               *big.Int
		L2GasPerPubdataByteLimit *big.Int
		FactoryDeps              [][]byte
		RefundRecipient          common.Address
	}

	l2TransactionRequestTwoBridges struct {
		ChainId                  *big.Int
		MintValue                *big.Int
		L2Value                  *big.Int
		L2GasLimit               *big.Int
		L2GasPerPubdataByteLimit *big.Int
		RefundRecipient          common.Address
		SecondBridgeAddress      common.Address
		SecondBridgeValue        *big.Int
		SecondBridgeCalldata     []byte
	}

	// depositPlan is the value flow of one deposit, decided before anything is sent.
	depositPlan struct {
		direct            bool
		mintValue         *big.Int
		l2Value           *big.Int
		secondBridgeValue *big.Int
		msgValue          *big.Int
		// tokenAllowance and gasAllowance are the shared-bridge allowances the deposit consumes; nil means none.
		tokenAllowance *big.Int
		gasAllowance   *big.Int
	}
)

// planDeposit decides between requestL2TransactionDirect (the gas asset itself) and
// requestL2TransactionTwoBridges (everything else) and splits the value accordingly.
func planDeposit(asset bridge.Asset, gasAsset common.Address, amount, baseCost *big.Int) depositPlan {
	ethGas := gasAsset == bridge.ETHAddressInContracts
	zero := new(big.Int)

	switch {
	case asset.IsNative() && ethGas:
		mint := new(big.Int).Add(baseCost, amount)
		return depositPlan{direct: true, mintValue: mint, l2Value: amount, msgValue: mint}
	case !asset.IsNative() && asset.L1Address == gasAsset:
		mint := new(big.Int).Add(baseCost, amount)
		return depositPlan{direct: true, mintValue: mint, l2Value: amount, msgValue: zero, tokenAllowance: mint}
	case asset.IsNative():
		return depositPlan{mintValue: baseCost, secondBridgeValue: amount, msgValue: amount, gasAllowance: baseCost}
	case ethGas:
		return depositPlan{mintValue: baseCost, secondBridgeValue: zero, msgValue: baseCost, tokenAllowance: amount}
	default:
		return depositPlan{mintValue: baseCost, secondBridgeValue: zero, msgValue: zero, tokenAllowance: amount, gasAllowance: baseCost}
	}
}

// secondBridgeCalldata is the shared bridge deposit payload: abi.encode(token, amount, receiver).
func secondBridgeCalldata(token common.Address, amount *big.Int, receiver common.Address) ([]byte, error) {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}
	uintType, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: addressType}, {Type: uintType}, {Type: addressType}}
	return args.Pack(token, amount, receiver)
}

// SubmitTransfer sends a deposit on L1 or a withdrawal on L2 and returns its hash without waiting for it.
func (c *Client) SubmitTransfer(ctx context.Context, intent bridge.TransferIntent) (common.Hash, error) {
	switch intent.Direction {
	case bridge.DirectionDeposit:
		return c.deposit(ctx, intent)
	case bridge.DirectionWithdraw:
		return c.withdraw(ctx, intent)
	default:
		return common.Hash{}, fmt.Errorf("unknown transfer direction %q", intent.Direction)
	}
}

func (c *Client) deposit(ctx context.Context, intent bridge.TransferIntent) (common.Hash, error) {
	gasAsset, err := c.GasAssetAddress(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gasPrice, err := c.l1.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get L1 gas price: %w", err)
	}

	l2GasLimit := new(big.Int).SetUint64(c.cfg.L2GasLimit)
	gasPerPubdata := new(big.Int).SetUint64(c.cfg.GasPerPubdata)

	var baseCost *big.Int
	if err := call(ctx, c.l1, c.abis.bridgehub, c.contracts.Bridgehub, &baseCost, "l2TransactionBaseCost", c.l2ChainID, gasPrice, l2GasLimit, gasPerPubdata); err != nil {
		return common.Hash{}, fmt.Errorf("failed to get L2 transaction base cost: %w", err)
	}

	plan := planDeposit(intent.Asset, gasAsset, intent.Amount, baseCost)

	c.logger.
		With("asset", intent.Asset.String()).
		With("gas_asset", gasAsset.Hex()).
		With("direct", plan.direct).
		With("base_cost", baseCost.String()).
		With("mint_value", plan.mintValue.String()).
		Info("planned deposit")

	if intent.Approvals.Token && plan.tokenAllowance != nil {
		if err := c.approve(ctx, intent.Asset.L1Address, plan.tokenAllowance); err != nil {
			return common.Hash{}, err
		}
	}
	if intent.Approvals.GasAsset && plan.gasAllowance != nil {
		if err := c.approve(ctx, gasAsset, plan.gasAllowance); err != nil {
			return common.Hash{}, err
		}
	}

	opts, err := c.transactOpts(ctx, c.l1ChainID)
	if err != nil {
		return common.Hash{}, err
	}
	opts.Value = plan.msgValue
	opts.GasPrice = gasPrice

	bridgehub := bind.NewBoundContract(c.contracts.Bridgehub, *c.abis.bridgehub, c.l1, c.l1, c.l1)

	var tx *types.Transaction
	if plan.direct {
		tx, err = bridgehub.Transact(opts, "requestL2TransactionDirect", l2TransactionRequestDirect{
			ChainId:                  c.l2ChainID,
			MintValue:                plan.mintValue,
			L2Contract:               intent.Receiver,
			L2Value:                  plan.l2Value,
			L2Calldata:               []byte{},
			L2GasLimit:               l2GasLimit,
			L2GasPerPubdataByteLimit: gasPerPubdata,
			FactoryDeps:              [][]byte{},
			RefundRecipient:          c.from,
		})
	} else {
		var calldata []byte
		calldata, err = secondBridgeCalldata(intent.Asset.ContractAddress(), intent.Amount, intent.Receiver)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to encode second bridge calldata: %w", err)
		}
		tx, err = bridgehub.Transact(opts, "requestL2TransactionTwoBridges", l2TransactionRequestTwoBridges{
			ChainId:                  c.l2ChainID,
			MintValue:                plan.mintValue,
			L2Value:                  new(big.Int),
			L2GasLimit:               l2GasLimit,
			L2GasPerPubdataByteLimit: gasPerPubdata,
			RefundRecipient:          c.from,
			SecondBridgeAddress:      c.contracts.L1SharedBridge,
			SecondBridgeValue:        plan.secondBridgeValue,
			SecondBridgeCalldata:     calldata,
		})
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send deposit: %w", err)
	}

	return tx.Hash(), nil
}

func (c *Client) withdraw(ctx context.Context, intent bridge.TransferIntent) (common.Hash, error) {
	l2Token := intent.Asset.L2Address
	if intent.Asset.IsNative() {
		l2Token = L2BaseTokenAddress
	}

	opts, err := c.transactOpts(ctx, c.l2ChainID)
	if err != nil {
		return common.Hash{}, err
	}

	var tx *types.Transaction
	if l2Token == L2BaseTokenAddress {
		opts.Value = intent.Amount
		baseToken := bind.NewBoundContract(L2BaseTokenAddress, *c.abis.l2BaseToken, c.l2, c.l2, c.l2)
		tx, err = baseToken.Transact(opts, "withdraw", intent.Receiver)
	} else {
		sharedBridge := bind.NewBoundContract(c.contracts.L2SharedBridge, *c.abis.l2SharedBridge, c.l2, c.l2, c.l2)
		tx, err = sharedBridge.Transact(opts, "withdraw", intent.Receiver, l2Token, intent.Amount)
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send withdrawal: %w", err)
	}

	c.logger.With("l2_token", l2Token.Hex()).With("tx_hash", tx.Hash().Hex()).Debug("withdrawal sent")

	return tx.Hash(), nil
}

// approve grants the L1 shared bridge amount of token and waits for it to be mined. Existing allowances
// that already cover amount are left alone.
func (c *Client) approve(ctx context.Context, token common.Address, amount *big.Int) error {
	var allowance *big.Int
	if err := call(ctx, c.l1, c.abis.erc20, token, &allowance, "allowance", c.from, c.contracts.L1SharedBridge); err != nil {
		return fmt.Errorf("failed to read allowance of %s: %w", token.Hex(), err)
	}
	if allowance.Cmp(amount) >= 0 {
		c.logger.With("token", token.Hex()).With("allowance", allowance.String()).Debug("allowance already sufficient")
		return nil
	}

	opts, err := c.transactOpts(ctx, c.l1ChainID)
	if err != nil {
		return err
	}

	erc20 := bind.NewBoundContract(token, *c.abis.erc20, c.l1, c.l1, c.l1)
	tx, err := erc20.Transact(opts, "approve", c.contracts.L1SharedBridge, amount)
	if err != nil {
		return fmt.Errorf("failed to approve %s: %w", token.Hex(), err)
	}

	c.logger.
		With("token", token.Hex()).
		With("spender", c.contracts.L1SharedBridge.Hex()).
		With("amount", amount.String()).
		With("tx_hash", tx.Hash().Hex()).
		Info("approval sent")

	if err := waitSuccess(ctx, c.l1, tx); err != nil {
		return fmt.Errorf("approval of %s failed: %w", token.Hex(), err)
	}

	return nil
}

func (c *Client) transactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.cfg.Key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func waitSuccess(ctx context.Context, client *ethclient.Client, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return nil
}
