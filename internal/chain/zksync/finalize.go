package zksync

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotProvable means the withdrawal's batch has not been committed with a log proof yet.
var ErrNotProvable = errors.New("withdrawal not provable yet")

type (
	zkReceipt struct {
		Status         hexutil.Uint64 `json:"status"`
		L1BatchNumber  *hexutil.Big   `json:"l1BatchNumber"`
		L1BatchTxIndex *hexutil.Big   `json:"l1BatchTxIndex"`
		Logs           []zkLog        `json:"logs"`
		L2ToL1Logs     []l2ToL1Log    `json:"l2ToL1Logs"`
	}

	zkLog struct {
		Address       common.Address `json:"address"`
		Topics        []common.Hash  `json:"topics"`
		Data          hexutil.Bytes  `json:"data"`
		L1BatchNumber *hexutil.Big   `json:"l1BatchNumber"`
	}

	l2ToL1Log struct {
		Sender common.Address `json:"sender"`
		Key    common.Hash    `json:"key"`
		Value  common.Hash    `json:"value"`
	}

	logProof struct {
		ID    uint64        `json:"id"`
		Proof []common.Hash `json:"proof"`
		Root  common.Hash   `json:"root"`
	}

	// finalizeParams are the arguments of L1SharedBridge.finalizeWithdrawal.
	finalizeParams struct {
		l1BatchNumber     *big.Int
		l2MessageIndex    *big.Int
		l2TxNumberInBatch uint16
		message           []byte
		sender            common.Address
		proof             [][32]byte
	}
)

// SubmitFinalize sends finalizeWithdrawal for withdrawTx on L1. Until the withdrawal's batch is proven
// it fails with ErrNotProvable or a revert during gas estimation.
func (c *Client) SubmitFinalize(ctx context.Context, withdrawTx common.Hash) (common.Hash, error) {
	params, err := c.finalizeParams(ctx, withdrawTx)
	if err != nil {
		return common.Hash{}, err
	}

	var finalized bool
	if err := call(ctx, c.l1, c.abis.l1SharedBridge, c.contracts.L1SharedBridge, &finalized, "isWithdrawalFinalized", c.l2ChainID, params.l1BatchNumber, params.l2MessageIndex); err != nil {
		return common.Hash{}, fmt.Errorf("failed to check withdrawal status: %w", err)
	}
	if finalized {
		return common.Hash{}, fmt.Errorf("withdrawal %s is already finalized", withdrawTx.Hex())
	}

	opts, err := c.transactOpts(ctx, c.l1ChainID)
	if err != nil {
		return common.Hash{}, err
	}

	sharedBridge := bind.NewBoundContract(c.contracts.L1SharedBridge, *c.abis.l1SharedBridge, c.l1, c.l1, c.l1)
	tx, err := sharedBridge.Transact(opts, "finalizeWithdrawal",
		c.l2ChainID,
		params.l1BatchNumber,
		params.l2MessageIndex,
		params.l2TxNumberInBatch,
		params.message,
		params.proof,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send finalizeWithdrawal: %w", err)
	}

	c.logger.
		With("withdraw_tx", withdrawTx.Hex()).
		With("l1_batch_number", params.l1BatchNumber).
		With("l2_message_index", params.l2MessageIndex).
		With("sender", params.sender.Hex()).
		Debug("finalizeWithdrawal sent")

	return tx.Hash(), nil
}

func (c *Client) finalizeParams(ctx context.Context, withdrawTx common.Hash) (*finalizeParams, error) {
	var receipt *zkReceipt
	if err := c.l2RPC.CallContext(ctx, &receipt, getReceiptMethod, withdrawTx); err != nil {
		return nil, fmt.Errorf("failed to get L2 receipt: %w", err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: no receipt for %s", ErrNotProvable, withdrawTx.Hex())
	}

	msg, logIndex, err := withdrawalMessage(receipt)
	if err != nil {
		return nil, err
	}

	var proof *logProof
	if err := c.l2RPC.CallContext(ctx, &proof, getLogProofMethod, withdrawTx, logIndex); err != nil {
		return nil, fmt.Errorf("%s failed: %w", getLogProofMethod, err)
	}
	if proof == nil {
		return nil, fmt.Errorf("%w: no log proof for %s", ErrNotProvable, withdrawTx.Hex())
	}

	return buildFinalizeParams(receipt, msg, proof)
}

// withdrawalMessage finds the first L1 messenger log of the receipt and the index of the matching
// L2->L1 log among the messenger's logs.
func withdrawalMessage(receipt *zkReceipt) (zkLog, int, error) {
	var (
		found bool
		msg   zkLog
	)
	for _, l := range receipt.Logs {
		if l.Address == L1MessengerAddress && len(l.Topics) > 1 && l.Topics[0] == l1MessageSentTopic {
			msg, found = l, true
			break
		}
	}
	if !found {
		return zkLog{}, 0, errors.New("withdrawal receipt has no L1MessageSent log")
	}

	for i, l := range receipt.L2ToL1Logs {
		if l.Sender == L1MessengerAddress {
			return msg, i, nil
		}
	}
	return zkLog{}, 0, errors.New("withdrawal receipt has no L1 messenger L2->L1 log")
}

func buildFinalizeParams(receipt *zkReceipt, msg zkLog, proof *logProof) (*finalizeParams, error) {
	batch := msg.L1BatchNumber
	if batch == nil {
		batch = receipt.L1BatchNumber
	}
	if batch == nil || receipt.L1BatchTxIndex == nil {
		return nil, fmt.Errorf("%w: receipt is not part of a batch yet", ErrNotProvable)
	}

	txIndex := receipt.L1BatchTxIndex.ToInt()
	if !txIndex.IsUint64() || txIndex.Uint64() > 0xffff {
		return nil, fmt.Errorf("batch tx index %s out of range", txIndex)
	}

	message, err := decodeBytes(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode L1 message: %w", err)
	}

	hashes := make([][32]byte, len(proof.Proof))
	for i, h := range proof.Proof {
		hashes[i] = h
	}

	return &finalizeParams{
		l1BatchNumber:     new(big.Int).Set(batch.ToInt()),
		l2MessageIndex:    new(big.Int).SetUint64(proof.ID),
		l2TxNumberInBatch: uint16(txIndex.Uint64()),
		message:           message,
		sender:            common.BytesToAddress(msg.Topics[1].Bytes()),
		proof:             hashes,
	}, nil
}

// decodeBytes unpacks an ABI-encoded dynamic bytes value.
func decodeBytes(data []byte) ([]byte, error) {
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return nil, err
	}
	values, err := abi.Arguments{{Type: bytesType}}.Unpack(data)
	if err != nil {
		return nil, err
	}
	out, ok := values[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected message type %T", values[0])
	}
	return out, nil
}
