package api

import (
	"math/big"

	"auction/internal/auction"
	"auction/internal/models"

	"github.com/shopspring/decimal"
)

// FormatAmount renders raw token units with the given number of decimal places.
// FormatAmount(12345, 2) == "123.45"
func FormatAmount(amount uint64, decimals int) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return d.StringFixed(int32(decimals))
}

// AuctionStatus summarises the auction lifecycle for display
func AuctionStatus(a *models.Auction) string {
	switch {
	case !a.Ongoing:
		return "closed"
	case a.HasBid():
		return "bidding"
	default:
		return "open"
	}
}

// BuildAuctionResponse converts an auction into its API representation
func BuildAuctionResponse(a *models.Auction, authority models.Identity, decimals int) models.AuctionResponse {
	var refundReceiver *string
	if a.RefundReceiver != nil {
		s := a.RefundReceiver.String()
		refundReceiver = &s
	}

	return models.AuctionResponse{
		AuctionID:      a.ID.String(),
		Ongoing:        a.Ongoing,
		Status:         AuctionStatus(a),
		Seller:         a.Seller.String(),
		Bidder:         a.Bidder.String(),
		RefundReceiver: refundReceiver,
		Authority:      authority.String(),
		ItemHolder:     a.ItemHolder.String(),
		CurrencyHolder: a.CurrencyHolder.String(),
		Price:          a.Price,
		PriceDisplay:   FormatAmount(a.Price, decimals),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		ClosedAt:       a.ClosedAt,
	}
}

// BuildBidResponse converts an accepted bid into its API representation
func BuildBidResponse(b *models.Bid, decimals int) models.BidResponse {
	return models.BidResponse{
		BidID:        b.ID.String(),
		AuctionID:    b.AuctionID.String(),
		Bidder:       b.Bidder.String(),
		Price:        b.Price,
		PriceDisplay: FormatAmount(b.Price, decimals),
		CreatedAt:    b.CreatedAt,
	}
}

// BuildSettlementResponse converts a close result into its API representation
func BuildSettlementResponse(s *auction.Settlement, decimals int) models.SettlementResponse {
	return models.SettlementResponse{
		AuctionID:           s.AuctionID.String(),
		Winner:              s.Winner.String(),
		ItemAmount:          s.ItemAmount,
		CurrencyPaid:        s.CurrencyPaid,
		CurrencyPaidDisplay: FormatAmount(s.CurrencyPaid, decimals),
		CurrencySkipped:     s.CurrencySkipped,
	}
}

// BuildAccountResponse converts a token account into its API representation
func BuildAccountResponse(a *models.TokenAccount, decimals int) models.AccountResponse {
	return models.AccountResponse{
		Address:       a.Address.String(),
		Mint:          a.Mint.String(),
		Owner:         a.Owner.String(),
		Amount:        a.Amount,
		AmountDisplay: FormatAmount(a.Amount, decimals),
	}
}
