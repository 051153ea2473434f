package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Bootstraps operator TOTP credentials. Without OPS_TOTP_SECRET set it
// generates a fresh secret; with it set it prints the current code, which is
// handy for testing logins.
func main() {
	secret := os.Getenv("OPS_TOTP_SECRET")
	if secret == "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      "Mint Backend Ops",
			AccountName: "admin@mint-backend",
			Period:      30,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			fmt.Printf("Error generating TOTP secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("New TOTP Secret: %s\n", key.Secret())
		fmt.Printf("Provisioning URL: %s\n", key.URL())
		fmt.Println("Save the secret to the OPS_TOTP_SECRET env var.")
		return
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		fmt.Printf("Error generating TOTP code: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Current TOTP Code: %s\n", code)
	fmt.Printf("Valid for: ~30 seconds\n")
}
