// Package main is a CLI for local development: it mints admin bearer tokens
// for the consent reset endpoint and generates bcrypt secret hashes for the
// ADMIN_SECRET_HASH setting. Tokens signed with the dev key will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/RahulUpadhay-art/consents-denied/internal/admintoken"
	"github.com/RahulUpadhay-art/consents-denied/pkg/secrets"
)

// Dev signing key, matches config.go when JWT_SIGNING_KEY is not set.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresIn string `json:"expires_in"`
	Usage     string `json:"usage"`
}

type secretOutput struct {
	Secret string `json:"secret"`
	Hash   string `json:"hash"`
	Usage  string `json:"usage"`
}

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenKey := tokenCmd.String("signing-key", devSigningKey, "JWT signing key, must match the server")
	tokenTTL := tokenCmd.Duration("ttl", 15*time.Minute, "Token time-to-live")
	tokenJSON := tokenCmd.Bool("json", false, "Output as JSON")

	secretCmd := flag.NewFlagSet("secret", flag.ExitOnError)
	secretJSON := secretCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "token":
		_ = tokenCmd.Parse(os.Args[2:])
		runToken(*tokenKey, *tokenTTL, *tokenJSON)
	case "secret":
		_ = secretCmd.Parse(os.Args[2:])
		runSecret(*secretJSON)
	default:
		usage()
		os.Exit(2)
	}
}

func runToken(signingKey string, ttl time.Duration, asJSON bool) {
	token, err := admintoken.NewService(signingKey, ttl).Mint()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if asJSON {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "Bearer",
			ExpiresIn: ttl.String(),
			Usage:     `curl -X DELETE -H "Authorization: Bearer <token>" http://localhost:8080/consent`,
		})
		return
	}
	fmt.Println(token)
}

func runSecret(asJSON bool) {
	secret, err := secrets.Generate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if asJSON {
		printJSON(secretOutput{
			Secret: secret,
			Hash:   hash,
			Usage:  "export ADMIN_SECRET_HASH='<hash>' and exchange the secret at POST /admin/token",
		})
		return
	}
	fmt.Println("secret:", secret)
	fmt.Println("hash:  ", hash)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tokengen <command> [flags]

commands:
  token   mint an admin bearer token
  secret  generate an admin secret and its bcrypt hash`)
}
