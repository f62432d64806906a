package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"auction/internal/auction"
	"auction/internal/auth"
	"auction/internal/models"

	"github.com/google/uuid"
)

// CreateAuctionPayload is the signed body of POST /auctions
type CreateAuctionPayload struct {
	Seller         string `json:"seller"`
	ItemHolder     string `json:"item_holder"`
	CurrencyHolder string `json:"currency_holder"`
	StartPrice     uint64 `json:"start_price"`
}

// PlaceBidPayload is the signed body of POST /auctions/{id}/bids
type PlaceBidPayload struct {
	AuctionID    string  `json:"auction_id"`
	Bidder       string  `json:"bidder"`
	Source       string  `json:"source"`
	RefundTarget *string `json:"refund_target"` // null before the first bid
	Price        uint64  `json:"price"`
}

// CloseAuctionPayload is the signed body of POST /auctions/{id}/close
type CloseAuctionPayload struct {
	AuctionID        string `json:"auction_id"`
	Seller           string `json:"seller"`
	ItemHolder       string `json:"item_holder"`
	ItemReceiver     string `json:"item_receiver"`
	CurrencyHolder   string `json:"currency_holder"`
	CurrencyReceiver string `json:"currency_receiver"`
}

// errBadPayload marks payloads that are malformed rather than refused
var errBadPayload = errors.New("bad payload")

func decodePayload(env auth.Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func parseField(name, value string) (models.Identity, error) {
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", errBadPayload, name)
	}
	id, err := models.ParseIdentity(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errBadPayload, name, err)
	}
	return id, nil
}

// parseAuctionID checks the signed auction_id against the one in the path
func parseAuctionID(signed string, path uuid.UUID) error {
	id, err := uuid.Parse(signed)
	if err != nil {
		return fmt.Errorf("%w: auction_id: %v", errBadPayload, err)
	}
	if id != path {
		return fmt.Errorf("%w: signed auction_id %s does not match %s", errBadPayload, id, path)
	}
	return nil
}

func (p CreateAuctionPayload) input(signers auth.SignerSet) (auction.CreateAuctionInput, error) {
	in := auction.CreateAuctionInput{StartPrice: p.StartPrice, Signers: signers}

	var err error
	if in.Seller, err = parseField("seller", p.Seller); err != nil {
		return in, err
	}
	if in.ItemHolder, err = parseField("item_holder", p.ItemHolder); err != nil {
		return in, err
	}
	if in.CurrencyHolder, err = parseField("currency_holder", p.CurrencyHolder); err != nil {
		return in, err
	}
	return in, nil
}

func (p PlaceBidPayload) input(auctionID uuid.UUID, signers auth.SignerSet) (auction.PlaceBidInput, error) {
	in := auction.PlaceBidInput{AuctionID: auctionID, Price: p.Price, Signers: signers}

	if err := parseAuctionID(p.AuctionID, auctionID); err != nil {
		return in, err
	}

	var err error
	if in.Bidder, err = parseField("bidder", p.Bidder); err != nil {
		return in, err
	}
	if in.Source, err = parseField("source", p.Source); err != nil {
		return in, err
	}
	if p.RefundTarget != nil {
		target, err := parseField("refund_target", *p.RefundTarget)
		if err != nil {
			return in, err
		}
		in.RefundTarget = &target
	}
	return in, nil
}

func (p CloseAuctionPayload) input(auctionID uuid.UUID, signers auth.SignerSet) (auction.CloseAuctionInput, error) {
	in := auction.CloseAuctionInput{AuctionID: auctionID, Signers: signers}

	if err := parseAuctionID(p.AuctionID, auctionID); err != nil {
		return in, err
	}

	var err error
	if in.Seller, err = parseField("seller", p.Seller); err != nil {
		return in, err
	}
	if in.ItemHolder, err = parseField("item_holder", p.ItemHolder); err != nil {
		return in, err
	}
	if in.ItemReceiver, err = parseField("item_receiver", p.ItemReceiver); err != nil {
		return in, err
	}
	if in.CurrencyHolder, err = parseField("currency_holder", p.CurrencyHolder); err != nil {
		return in, err
	}
	if in.CurrencyReceiver, err = parseField("currency_receiver", p.CurrencyReceiver); err != nil {
		return in, err
	}
	return in, nil
}
