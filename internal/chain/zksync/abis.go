package zksync

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// System contracts on every ZK chain.
var (
	L2BaseTokenAddress = common.HexToAddress("0x000000000000000000000000000000000000800A")
	L1MessengerAddress = common.HexToAddress("0x0000000000000000000000000000000000008008")
)

// BridgehubMetaData is the subset of the Bridgehub ABI used for deposits.
var BridgehubMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"baseToken","stateMutability":"view","inputs":[{"name":"_chainId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"l2TransactionBaseCost","stateMutability":"view","inputs":[{"name":"_chainId","type":"uint256"},{"name":"_gasPrice","type":"uint256"},{"name":"_l2GasLimit","type":"uint256"},{"name":"_l2GasPerPubdataByteLimit","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"requestL2TransactionDirect","stateMutability":"payable","inputs":[{"name":"_request","type":"tuple","components":[{"name":"chainId","type":"uint256"},{"name":"mintValue","type":"uint256"},{"name":"l2Contract","type":"address"},{"name":"l2Value","type":"uint256"},{"name":"l2Calldata","type":"bytes"},{"name":"l2GasLimit","type":"uint256"},{"name":"l2GasPerPubdataByteLimit","type":"uint256"},{"name":"factoryDeps","type":"bytes[]"},{"name":"refundRecipient","type":"address"}]}],"outputs":[{"name":"canonicalTxHash","type":"bytes32"}]},
{"type":"function","name":"requestL2TransactionTwoBridges","stateMutability":"payable","inputs":[{"name":"_request","type":"tuple","components":[{"name":"chainId","type":"uint256"},{"name":"mintValue","type":"uint256"},{"name":"l2Value","type":"uint256"},{"name":"l2GasLimit","type":"uint256"},{"name":"l2GasPerPubdataByteLimit","type":"uint256"},{"name":"refundRecipient","type":"address"},{"name":"secondBridgeAddress","type":"address"},{"name":"secondBridgeValue","type":"uint256"},{"name":"secondBridgeCalldata","type":"bytes"}]}],"outputs":[{"name":"canonicalTxHash","type":"bytes32"}]}
]`,
}

// L1SharedBridgeMetaData covers withdrawal finalization on L1.
var L1SharedBridgeMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"finalizeWithdrawal","stateMutability":"nonpayable","inputs":[{"name":"_chainId","type":"uint256"},{"name":"_l2BatchNumber","type":"uint256"},{"name":"_l2MessageIndex","type":"uint256"},{"name":"_l2TxNumberInBatch","type":"uint16"},{"name":"_message","type":"bytes"},{"name":"_merkleProof","type":"bytes32[]"}],"outputs":[]},
{"type":"function","name":"isWithdrawalFinalized","stateMutability":"view","inputs":[{"name":"_chainId","type":"uint256"},{"name":"_l2BatchNumber","type":"uint256"},{"name":"_l2MessageIndex","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`,
}

// L2SharedBridgeMetaData covers token address derivation and ERC-20 withdrawals.
var L2SharedBridgeMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"l2TokenAddress","stateMutability":"view","inputs":[{"name":"_l1Token","type":"address"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"_l1Receiver","type":"address"},{"name":"_l2Token","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[]}
]`,
}

// L2BaseTokenMetaData is the base token system contract at 0x800A.
var L2BaseTokenMetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"withdraw","stateMutability":"payable","inputs":[{"name":"_l1Receiver","type":"address"}],"outputs":[]}
]`,
}

// ERC20MetaData is the part of ERC-20 the bridge flows touch.
var ERC20MetaData = &bind.MetaData{
	ABI: `[
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`,
}

var l1MessageSentTopic = crypto.Keccak256Hash([]byte("L1MessageSent(address,bytes32,bytes)"))
