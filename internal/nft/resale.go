package nft

import (
	"context"
	"fmt"
	"math/big"
	"strings"
)

// ResaleRequest describes a resale of TokenID to Buyer.
type ResaleRequest struct {
	TokenID   uint64
	Buyer     string
	SalePrice *big.Int // wei sent with the transaction
	MinPrice  *big.Int // minimum accepted by the contract; nil means SalePrice
}

// ResaleResult reports a completed resale.
type ResaleResult struct {
	TxHash          string
	PreviousOwner   string
	NewOwner        string
	RoyaltyReceiver string
	RoyaltyAmount   *big.Int
	// Resold is the decoded Resold event, nil when the receipt carried none.
	Resold *Event
}

// Resale sells a token owned by the signer to req.Buyer. No transaction is
// submitted unless the signer currently owns the token.
func (s *NFTService) Resale(ctx context.Context, req ResaleRequest) (*ResaleResult, error) {
	if err := s.requireChain(); err != nil {
		return nil, err
	}
	if req.SalePrice == nil || req.SalePrice.Sign() <= 0 {
		return nil, fmt.Errorf("sale price must be positive")
	}
	if strings.TrimSpace(req.Buyer) == "" {
		return nil, fmt.Errorf("buyer address is required")
	}
	minPrice := req.MinPrice
	if minPrice == nil {
		minPrice = req.SalePrice
	}

	if err := s.ensureNotPaused(ctx); err != nil {
		return nil, err
	}

	owner, err := s.contract.OwnerOf(ctx, req.TokenID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(owner, s.signer.Address()) {
		return nil, fmt.Errorf("%w: token %d is owned by %s, signer is %s", ErrNotOwner, req.TokenID, owner, s.signer.Address())
	}

	result := &ResaleResult{PreviousOwner: owner}

	// Royalty info is informational; a failure here does not block the sale.
	receiver, amount, err := s.contract.RoyaltyInfo(ctx, req.TokenID, req.SalePrice)
	if err != nil {
		s.logger.Warn("royaltyInfo failed", "token_id", req.TokenID, "error", err)
	} else {
		result.RoyaltyReceiver = receiver
		result.RoyaltyAmount = amount
		s.logger.Info("royalty", "token_id", req.TokenID, "receiver", receiver, "amount", amount.String())
	}

	tx, err := s.contract.Resale(ctx, s.signer, req.TokenID, req.Buyer, minPrice, req.SalePrice)
	if err != nil {
		return nil, fmt.Errorf("submitting resale: %w", err)
	}
	receipt, err := s.contract.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for resale %s: %w", tx.Hash, err)
	}
	result.TxHash = tx.Hash

	newOwner, err := s.contract.OwnerOf(ctx, req.TokenID)
	if err != nil {
		return nil, fmt.Errorf("resale %s confirmed but reading new owner failed: %w", tx.Hash, err)
	}
	result.NewOwner = newOwner

	if ev, ok := receipt.FindEvent(EventResold); ok {
		result.Resold = ev
	} else {
		s.logger.Warn("no Resold event in receipt", "tx", tx.Hash)
	}

	s.logger.Info("resold", "token_id", req.TokenID, "tx", tx.Hash, "new_owner", newOwner)
	return result, nil
}
