package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// MaskMarker prefixes every masked account number
const MaskMarker = "..."

// RecipientDetails holds raw recipient banking fields. The type redacts
// itself when formatted, logged or marshalled so an accidental print never
// leaks the account number.
type RecipientDetails struct {
	AccountNumber string
	DocumentID    string
	Address       string
	BankName      string
	AccountType   string
}

// Validate ensures the fields needed to fund a transfer are present
func (d RecipientDetails) Validate() error {
	if strings.TrimSpace(d.AccountNumber) == "" {
		return fmt.Errorf("%w: account number is required", ErrInvalidRequest)
	}
	return nil
}

// Masked returns the display-safe form of the account number
func (d RecipientDetails) Masked() string {
	return MaskAccount(d.AccountNumber)
}

func (d RecipientDetails) String() string {
	return "RecipientDetails{account:" + d.Masked() + "}"
}

func (d RecipientDetails) GoString() string { return d.String() }

func (d RecipientDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"account": d.Masked()})
}

func (d RecipientDetails) LogValue() slog.Value {
	return slog.StringValue(d.String())
}

// MaskAccount reveals only the last 4 characters of an account number.
// Numbers shorter than 4 characters are masked entirely.
func MaskAccount(account string) string {
	chars := []rune(strings.TrimSpace(account))
	if len(chars) < 4 {
		return MaskMarker
	}
	return MaskMarker + string(chars[len(chars)-4:])
}

// RecipientReceipt is the only view of stored recipient details that may
// leave the core.
type RecipientReceipt struct {
	Reference     string
	MaskedAccount string
}
