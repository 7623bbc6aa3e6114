package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderType identifies the payment vendor
type ProviderType string

const (
	ProviderStripe ProviderType = "stripe"
	ProviderPayPal ProviderType = "paypal"
)

func (p ProviderType) Valid() bool {
	switch p {
	case ProviderStripe, ProviderPayPal:
		return true
	}
	return false
}

// ParseProviderType accepts the known vendors in any letter case.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown payment provider %q", s)
	}
	return p, nil
}

// Scan implements sql.Scanner interface
func (p *ProviderType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*p = ProviderType(v)
	case []byte:
		*p = ProviderType(v)
	default:
		return fmt.Errorf("cannot scan %T into ProviderType", src)
	}
	return nil
}

// Value implements driver.Valuer interface
func (p ProviderType) Value() (driver.Value, error) {
	return string(p), nil
}

// PaymentKind distinguishes one-time checkouts from subscription checkouts
type PaymentKind string

const (
	PaymentKindOneTime      PaymentKind = "one_time"
	PaymentKindSubscription PaymentKind = "subscription"
)

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// ToJSONB converts any JSON-encodable value into a JSONB map.
func ToJSONB(v interface{}) (JSONB, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode fills out from the stored document.
func (j JSONB) Decode(out interface{}) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", src)
	}
}
