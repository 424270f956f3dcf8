package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// NFTABI is the subset of the AI Image NFT contract interface this package uses.
const NFTABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"nextTokenId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"royaltyInfo","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"},{"name":"salePrice","type":"uint256"}],"outputs":[{"name":"receiver","type":"address"},{"name":"royaltyAmount","type":"uint256"}]},
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"uri","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"resale","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"buyer","type":"address"},{"name":"minPrice","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setNextTokenId","stateMutability":"nonpayable","inputs":[{"name":"newId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}]},
  {"type":"event","name":"Minted","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true},{"name":"tokenURI","type":"string","indexed":false}]},
  {"type":"event","name":"Resold","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false},{"name":"royalty","type":"uint256","indexed":false}]}
]`

// ExpectedName is the value name() returns on the AI Image NFT contract.
const ExpectedName = "AI Image NFT"

var parsedABI = mustParseABI(NFTABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("chain: invalid contract abi: " + err.Error())
	}
	return parsed
}
