package main

import (
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"auction/internal/auth"
	"auction/internal/custody"
	"auction/internal/models"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
)

const usage = `Usage: auctionctl <command> [flags]

Commands:
  authority  Print the custodial authority for a seller
  sign       Wrap a JSON payload in a signed envelope
  keygen     Generate a user keypair (G... / S...)
  address    Generate a random token account or mint address (C...)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "authority":
		err = runAuthority(os.Args[2:])
	case "sign":
		err = runSign(os.Args[2:])
	case "keygen":
		err = runKeygen()
	case "address":
		err = runAddress()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAuthority(args []string) error {
	fs := flag.NewFlagSet("authority", flag.ExitOnError)
	program := fs.String("program", os.Getenv("PROGRAM_ID"), "Program identity (C...)")
	seller := fs.String("seller", "", "Seller account (G...)")
	fs.Parse(args)

	programID, err := models.ParseIdentity(*program)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	sellerID, err := models.ParseIdentity(*seller)
	if err != nil {
		return fmt.Errorf("seller: %w", err)
	}

	authority, err := custody.Derive(programID, sellerID)
	if err != nil {
		return err
	}

	fmt.Println(authority.Address)
	return nil
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("AUCTION_SECRET"), "Signer secret seed (S...)")
	payloadPath := fs.String("payload", "-", "Payload JSON file, - for stdin")
	passphrase := fs.String("network", network.TestNetworkPassphrase, "Network passphrase")
	fs.Parse(args)

	kp, err := keypair.ParseFull(*secret)
	if err != nil {
		return fmt.Errorf("secret: %w", err)
	}

	var payload []byte
	if *payloadPath == "-" {
		payload, err = io.ReadAll(os.Stdin)
	} else {
		payload, err = os.ReadFile(*payloadPath)
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON")
	}

	sig, err := auth.Sign(*passphrase, payload, kp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(auth.Envelope{
		Payload:    payload,
		Signatures: []auth.Signature{sig},
	})
}

func runKeygen() error {
	kp, err := keypair.Random()
	if err != nil {
		return err
	}

	fmt.Printf("address: %s\n", kp.Address())
	fmt.Printf("secret:  %s\n", kp.Seed())
	return nil
}

func runAddress() error {
	payload := make([]byte, 32)
	if _, err := rand.Read(payload); err != nil {
		return err
	}

	id, err := models.NewContractIdentity(payload)
	if err != nil {
		return err
	}

	fmt.Println(id)
	return nil
}
