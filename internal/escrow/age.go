package escrow

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"datalocker/internal/config"
	"datalocker/internal/locker"
)

// AgeSealer implements locker.Sealer using filippo.io/age with X25519 keys.
// The recipient (public key) is stored in plaintext so snapshots can be
// sealed without interaction; the identity (private key) is itself sealed
// with the operator's passphrase using age's scrypt-based encryption.
type AgeSealer struct {
	recipientPath string
	identityPath  string
}

var _ locker.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a new AgeSealer from configuration.
func NewAgeSealer(cfg config.EscrowConfig) *AgeSealer {
	return &AgeSealer{
		recipientPath: cfg.RecipientPath,
		identityPath:  cfg.IdentityPath,
	}
}

// Setup generates a new X25519 key pair, stores the recipient in plaintext,
// and seals the identity with the passphrase.
func (s *AgeSealer) Setup(passphrase string) error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.recipientPath), 0700); err != nil {
		return fmt.Errorf("creating recipient directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.identityPath), 0700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	if err := os.WriteFile(s.recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient: %w", err)
	}

	identityFile, err := os.OpenFile(s.identityPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	defer identityFile.Close()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(identityFile, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("writing sealed identity: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing sealed identity: %w", err)
	}

	return nil
}

// Seal reads a snapshot from r and writes age ciphertext to w using the
// stored recipient. No passphrase is involved, so routine pushes stay
// non-interactive.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	recipient, err := s.loadRecipient()
	if err != nil {
		return fmt.Errorf("loading recipient: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("sealing snapshot: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing seal: %w", err)
	}

	return nil
}

// Unseal recovers the identity with the passphrase, then decrypts a sealed
// snapshot from r into w.
func (s *AgeSealer) Unseal(passphrase string, r io.Reader, w io.Writer) error {
	identity, err := s.unlockIdentity(passphrase)
	if err != nil {
		return err
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("decrypting snapshot: %w", err)
	}

	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("reading decrypted snapshot: %w", err)
	}

	return nil
}

// IsConfigured returns true if both key files exist.
func (s *AgeSealer) IsConfigured() bool {
	if _, err := os.Stat(s.recipientPath); err != nil {
		return false
	}
	if _, err := os.Stat(s.identityPath); err != nil {
		return false
	}
	return true
}

// unlockIdentity decrypts the sealed identity file with the passphrase.
func (s *AgeSealer) unlockIdentity(passphrase string) (age.Identity, error) {
	sealed, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	scryptID, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(bytes.NewReader(sealed), scryptID)
	if err != nil {
		return nil, fmt.Errorf("decrypting identity: %w", err)
	}

	keyData, err := io.ReadAll(decReader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in identity file")
	}

	return identities[0], nil
}

// loadRecipient reads the recipient from disk and parses it.
func (s *AgeSealer) loadRecipient() (age.Recipient, error) {
	pubData, err := os.ReadFile(s.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(pubData))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in recipient file")
	}

	return recipients[0], nil
}
