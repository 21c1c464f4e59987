package security

import (
	"fmt"

	"github.com/geocoder89/salesdesk/internal/domain/user"
)

// CipherObserver receives the outcome of every encrypt/decrypt call.
type CipherObserver interface {
	ObserveCipher(op string, err error)
}

// PasswordPolicy is the only place passwords become stored credentials:
// a bcrypt hash for verification and a cipher token for admin recovery.
type PasswordPolicy struct {
	hasher   *Hasher
	cipher   *Cipher
	observer CipherObserver
}

func NewPasswordPolicy(hasher *Hasher, cipher *Cipher) *PasswordPolicy {
	return &PasswordPolicy{hasher: hasher, cipher: cipher}
}

func (p *PasswordPolicy) WithObserver(o CipherObserver) *PasswordPolicy {
	p.observer = o
	return p
}

// Derive produces both stored forms of plain, or neither.
func (p *PasswordPolicy) Derive(plain string) (user.Credentials, error) {
	hash, err := p.hasher.Hash(plain)
	if err != nil {
		return user.Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	token, err := p.cipher.Encrypt(plain)
	p.observe("encrypt", err)
	if err != nil {
		return user.Credentials{}, fmt.Errorf("encrypt password: %w", err)
	}

	return user.Credentials{PasswordHash: hash, EncryptedPassword: token}, nil
}

func (p *PasswordPolicy) Verify(plain, hash string) bool {
	return p.hasher.Verify(plain, hash)
}

// Reveal decrypts a stored token. A nil token reveals nil.
func (p *PasswordPolicy) Reveal(token *string) (*string, error) {
	if token == nil {
		return nil, nil
	}

	plain, err := p.cipher.Decrypt(*token)
	p.observe("decrypt", err)
	if err != nil {
		return nil, err
	}

	return &plain, nil
}

func (p *PasswordPolicy) observe(op string, err error) {
	if p.observer != nil {
		p.observer.ObserveCipher(op, err)
	}
}
