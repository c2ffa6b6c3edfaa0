package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultArtifactPath is where hardhat writes the compiled token.
const DefaultArtifactPath = "artifacts/contracts/CustomBaseToken.sol/CustomBaseToken.json"

// Artifact is a compiled contract ready to deploy.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// LoadArtifact reads a hardhat artifact (contractName, abi, bytecode) from path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return parseArtifact(data)
}

func parseArtifact(data []byte) (*Artifact, error) {
	var raw struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     string          `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI for %s: %w", raw.ContractName, err)
	}

	bytecode := common.FromHex(raw.Bytecode)
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", raw.ContractName)
	}

	return &Artifact{
		Name:     raw.ContractName,
		ABI:      parsedABI,
		Bytecode: bytecode,
	}, nil
}
