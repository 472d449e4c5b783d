package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const registryABIJSON = `[
  {"type":"function","name":"getPropertyCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getProperty","stateMutability":"view",
   "inputs":[{"name":"propertyId","type":"uint256"}],
   "outputs":[
     {"name":"name","type":"string"},
     {"name":"token","type":"address"},
     {"name":"accessControl","type":"address"},
     {"name":"active","type":"bool"}
   ]}
]`

const accessControlABIJSON = `[
  {"type":"function","name":"grantRole","stateMutability":"nonpayable",
   "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"hasRole","stateMutability":"view",
   "inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var (
	registryABI      = mustParseABI(registryABIJSON)
	accessControlABI = mustParseABI(accessControlABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// RegistryABI is the property registry interface
func RegistryABI() abi.ABI { return registryABI }

// AccessControlABI is the per-property access control interface
func AccessControlABI() abi.ABI { return accessControlABI }
