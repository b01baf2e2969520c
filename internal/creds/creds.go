package creds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// The access token for the private manifest repository ships alongside the
// client as an age-encrypted file so it is never stored in plain text.

// LoadToken reads and decrypts the token file. With an empty identityFile
// the token file is taken as plain text, which is what development setups
// use.
func LoadToken(tokenFile, identityFile string) (string, error) {
	if identityFile == "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	identityData, err := os.ReadFile(identityFile)
	if err != nil {
		return "", fmt.Errorf("failed to read identity file: %w", err)
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(identityData)))
	if err != nil {
		return "", fmt.Errorf("failed to parse identity: %w", err)
	}

	in, err := os.Open(tokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to open token file: %w", err)
	}
	defer in.Close()

	r, err := age.Decrypt(in, identity)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	token, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read decrypted token: %w", err)
	}
	return strings.TrimSpace(string(token)), nil
}

// EncryptToken writes the token encrypted to the given recipient. Used by
// the packaging side when preparing a release.
func EncryptToken(token, outputFile, recipientKey string) error {
	recipient, err := age.ParseX25519Recipient(recipientKey)
	if err != nil {
		return fmt.Errorf("failed to parse recipient: %w", err)
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer out.Close()

	w, err := age.Encrypt(out, recipient)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, token); err != nil {
		return err
	}
	return w.Close()
}
