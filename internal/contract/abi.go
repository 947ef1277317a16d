// Package contract talks to the Infinity Ventures receipt contract: a
// soulbound ERC-721 whose payable mint records one investment.
package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// SBTABI is the subset of the receipt contract's ABI the client uses.
const SBTABI = `[
  {"type":"function","name":"mint","stateMutability":"payable",
   "inputs":[
     {"name":"storageLocator","type":"string"},
     {"name":"termsHash","type":"bytes32"},
     {"name":"maturityTime","type":"uint256"},
     {"name":"targetApyBps","type":"uint256"}],
   "outputs":[{"name":"tokenId","type":"uint256"}]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"holder","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[
     {"name":"from","type":"address","indexed":true},
     {"name":"to","type":"address","indexed":true},
     {"name":"tokenId","type":"uint256","indexed":true}]}
]`

// ABIEntry is one ABI entry (function, event, etc.).
type ABIEntry struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "view" || e.StateMutability == "pure")
}

// Signature returns the canonical "name(type,...)" form.
func (e ABIEntry) Signature() string {
	types := make([]string, len(e.Inputs))
	for i, p := range e.Inputs {
		types[i] = p.Type
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

// ParseEntries decodes ABI JSON into entries.
func ParseEntries(data []byte) ([]ABIEntry, error) {
	var entries []ABIEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	return entries, nil
}

var (
	sbtEntries = mustEntries(SBTABI)
	sbtABI     = mustABI(SBTABI)
)

func mustEntries(s string) []ABIEntry {
	e, err := ParseEntries([]byte(s))
	if err != nil {
		panic(err)
	}
	return e
}

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("contract: bad receipt ABI: %v", err))
	}
	return a
}
