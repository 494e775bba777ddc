package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Operator helper: print the bcrypt hash of a password at the portal work
// factor, e.g. for seeding a test identity.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go <password>\n")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), 12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}
