package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"auction/internal/ledger"
	"auction/internal/models"
	"auction/internal/storage"
)

// seedAccounts opens every token account listed in a JSON file in one unit of work
func seedAccounts(ctx context.Context, store storage.Store, l *ledger.TokenLedger, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var accounts []models.TokenAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, account := range accounts {
		for _, id := range []models.Identity{account.Address, account.Mint, account.Owner} {
			if _, err := models.ParseIdentity(id.String()); err != nil {
				return 0, err
			}
		}
	}

	err = store.WithTx(ctx, func(tx storage.Tx) error {
		for _, account := range accounts {
			if err := l.OpenAccount(ctx, tx, account); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(accounts), nil
}
