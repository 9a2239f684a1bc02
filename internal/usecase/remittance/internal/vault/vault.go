// Package vault keeps raw recipient banking details per session and hands
// out only masked receipts with opaque references. Raw fields are sealed at
// rest and only Resolve can open them.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

// DefaultSessionTTL is how long an untouched entry survives
const DefaultSessionTTL = 30 * time.Minute

// ReferencePrefix marks vault references
const ReferencePrefix = "acct_"

var errSealedCorrupted = errors.New("sealed recipient details are corrupted")

// Options tunes the vault
type Options struct {
	SessionTTL time.Duration
	// Key seals entries at rest. A random per-process key is generated when
	// empty.
	Key   []byte
	Clock domain.Clock
}

// sealedFields is the plaintext layout inside a sealed entry.
// RecipientDetails redacts itself when marshalled, so it is never
// serialized directly.
type sealedFields struct {
	AccountNumber string `json:"account_number"`
	DocumentID    string `json:"document_id,omitempty"`
	Address       string `json:"address,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	AccountType   string `json:"account_type,omitempty"`
}

type entry struct {
	receipt   domain.RecipientReceipt
	sealed    []byte // nonce || ciphertext
	touchedAt time.Time
}

// Vault is a session-scoped store of recipient details
type Vault struct {
	aead cipher.AEAD
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a new Vault instance
func New(opts Options) (*Vault, error) {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	key := opts.Key
	if len(key) == 0 {
		key = make([]byte, chacha20poly1305.KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate vault key: %w", err)
		}
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init vault cipher: %w", err)
	}
	opts.Key = nil

	return &Vault{
		aead:    aead,
		opts:    opts,
		entries: make(map[string]*entry),
	}, nil
}

// Store saves raw details for a session, replacing any previous entry, and
// returns the only view that may leave the core.
func (v *Vault) Store(sessionID string, raw domain.RecipientDetails) (domain.RecipientReceipt, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.RecipientReceipt{}, fmt.Errorf("%w: session id is required", domain.ErrInvalidRequest)
	}
	if err := raw.Validate(); err != nil {
		return domain.RecipientReceipt{}, err
	}
	fields := sealedFields{
		AccountNumber: strings.TrimSpace(raw.AccountNumber),
		DocumentID:    strings.TrimSpace(raw.DocumentID),
		Address:       strings.TrimSpace(raw.Address),
		BankName:      strings.TrimSpace(raw.BankName),
		AccountType:   strings.TrimSpace(raw.AccountType),
	}

	sealed, err := v.seal(sessionID, fields)
	if err != nil {
		return domain.RecipientReceipt{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	receipt := domain.RecipientReceipt{
		Reference:     v.newReference(),
		MaskedAccount: domain.MaskAccount(fields.AccountNumber),
	}
	v.entries[sessionID] = &entry{
		receipt:   receipt,
		sealed:    sealed,
		touchedAt: v.opts.Clock(),
	}

	log.Printf("level=info component=vault msg=\"recipient details stored\" reference=%s account=%s", receipt.Reference, receipt.MaskedAccount)
	return receipt, nil
}

// Resolve opens the raw details stored for a session and returns them with
// the receipt of the same entry. It is the only way to read them back.
func (v *Vault) Resolve(sessionID string) (domain.RecipientReceipt, domain.RecipientDetails, error) {
	sessionID = strings.TrimSpace(sessionID)

	v.mu.Lock()
	defer v.mu.Unlock()

	e, err := v.live(sessionID)
	if err != nil {
		return domain.RecipientReceipt{}, domain.RecipientDetails{}, err
	}
	fields, err := v.open(sessionID, e.sealed)
	if err != nil {
		log.Printf("level=error component=vault msg=\"failed to open sealed entry\" reference=%s err=%v", e.receipt.Reference, err)
		return domain.RecipientReceipt{}, domain.RecipientDetails{}, err
	}
	e.touchedAt = v.opts.Clock()

	return e.receipt, domain.RecipientDetails{
		AccountNumber: fields.AccountNumber,
		DocumentID:    fields.DocumentID,
		Address:       fields.Address,
		BankName:      fields.BankName,
		AccountType:   fields.AccountType,
	}, nil
}

// Receipt returns the masked view for a session without touching raw data
func (v *Vault) Receipt(sessionID string) (domain.RecipientReceipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, err := v.live(strings.TrimSpace(sessionID))
	if err != nil {
		return domain.RecipientReceipt{}, err
	}
	return e.receipt, nil
}

// Forget drops the entry for a session. It reports whether one existed.
func (v *Vault) Forget(sessionID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	sessionID = strings.TrimSpace(sessionID)
	if _, ok := v.entries[sessionID]; !ok {
		return false
	}
	delete(v.entries, sessionID)
	return true
}

// Sweep removes entries idle for longer than the session TTL and returns
// how many were removed.
func (v *Vault) Sweep(now time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	removed := 0
	for id, e := range v.entries {
		if now.Sub(e.touchedAt) > v.opts.SessionTTL {
			delete(v.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions
func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// live must be called with mu held. Expired entries are dropped on access.
func (v *Vault) live(sessionID string) (*entry, error) {
	e, ok := v.entries[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if v.opts.Clock().Sub(e.touchedAt) > v.opts.SessionTTL {
		delete(v.entries, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return e, nil
}

// newReference must be called with mu held
func (v *Vault) newReference() string {
	for {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		ref := ReferencePrefix + raw[:8]
		taken := false
		for _, e := range v.entries {
			if e.receipt.Reference == ref {
				taken = true
				break
			}
		}
		if !taken {
			return ref
		}
	}
}

// seal binds the ciphertext to the session id as additional data
func (v *Vault) seal(sessionID string, fields sealedFields) ([]byte, error) {
	plain, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode recipient details: %w", err)
	}
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plain)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plain, []byte(sessionID)), nil
}

func (v *Vault) open(sessionID string, sealed []byte) (sealedFields, error) {
	var fields sealedFields
	if len(sealed) < v.aead.NonceSize() {
		return fields, errSealedCorrupted
	}
	nonce, ct := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, ct, []byte(sessionID))
	if err != nil {
		return fields, errSealedCorrupted
	}
	if err := json.Unmarshal(plain, &fields); err != nil {
		return fields, errSealedCorrupted
	}
	return fields, nil
}
