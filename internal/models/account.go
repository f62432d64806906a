package models

// TokenAccount is a balance of a single denomination (Mint) held at Address.
// Only Owner may authorise transfers out of it.
type TokenAccount struct {
	Address Identity `json:"address"`
	Mint    Identity `json:"mint"`
	Owner   Identity `json:"owner"`
	Amount  uint64   `json:"amount"`
}
