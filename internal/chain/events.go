package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"nft-go/internal/nft"
)

// DecodeLog decodes a raw log emitted by contract. It returns false for logs
// from other addresses, unknown event signatures and malformed payloads.
func DecodeLog(contract common.Address, lg *types.Log) (nft.Event, bool) {
	if lg == nil || lg.Address != contract || len(lg.Topics) == 0 {
		return nft.Event{}, false
	}
	ev, err := parsedABI.EventByID(lg.Topics[0])
	if err != nil {
		return nft.Event{}, false
	}

	fields := make(map[string]any)
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := parsedABI.UnpackIntoMap(fields, ev.Name, lg.Data); err != nil {
			return nft.Event{}, false
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics)-1 != len(indexed) {
		return nft.Event{}, false
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
		return nft.Event{}, false
	}

	tokenID, ok := uint64Field(fields, "tokenId")
	if !ok {
		return nft.Event{}, false
	}
	out := nft.Event{Kind: nft.EventKind(ev.Name), TokenID: tokenID}

	switch out.Kind {
	case nft.EventTransfer:
		out.From = addressField(fields, "from")
		out.To = addressField(fields, "to")
	case nft.EventMinted:
		out.Creator = addressField(fields, "creator")
		out.TokenURI, _ = fields["tokenURI"].(string)
	case nft.EventResold:
		out.Seller = addressField(fields, "seller")
		out.Buyer = addressField(fields, "buyer")
		out.Price, _ = fields["price"].(*big.Int)
		out.Royalty, _ = fields["royalty"].(*big.Int)
	default:
		return nft.Event{}, false
	}
	return out, true
}

// decodeReceipt converts a go-ethereum receipt, keeping only decodable logs from contract.
func decodeReceipt(contract common.Address, r *types.Receipt) *nft.Receipt {
	out := &nft.Receipt{
		TxHash:  r.TxHash.Hex(),
		GasUsed: r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	for _, lg := range r.Logs {
		if ev, ok := DecodeLog(contract, lg); ok {
			out.Events = append(out.Events, ev)
		}
	}
	return out
}

func uint64Field(fields map[string]any, name string) (uint64, bool) {
	v, ok := fields[name].(*big.Int)
	if !ok || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

func addressField(fields map[string]any, name string) string {
	if a, ok := fields[name].(common.Address); ok {
		return a.Hex()
	}
	return ""
}
