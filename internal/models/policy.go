package models

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FallbackAccount is a built-in operational account verified locally
// instead of through the user directory. Accounts are configured in the
// auth policy file, never hard-coded.
type FallbackAccount struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	PasswordHash   string `json:"password_hash,omitempty"`   // bcrypt; wins when present
	FallbackSecret string `json:"fallback_secret,omitempty"` // used only without a stored hash
}

// AuthPolicy is the external configuration table for identity policy
// overrides: fallback accounts and the elevated-identity allow-list.
// Elevated identities receive no MFA bypass; they only change audit
// tagging.
type AuthPolicy struct {
	FallbackAccounts   []FallbackAccount `json:"fallback_accounts"`
	ElevatedIdentities []string          `json:"elevated_identities"` // ids or emails

	byEmail  map[string]*FallbackAccount
	elevated map[string]bool
}

// LoadAuthPolicy reads and indexes the policy file. A missing path yields
// an empty policy.
func LoadAuthPolicy(path string) (*AuthPolicy, error) {
	policy := &AuthPolicy{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read auth policy file: %w", err)
		}
		if err := json.Unmarshal(data, policy); err != nil {
			return nil, fmt.Errorf("failed to parse auth policy file: %w", err)
		}
	}
	policy.index()
	return policy, nil
}

// NewAuthPolicy builds an indexed policy from explicit values (tests,
// embedded defaults).
func NewAuthPolicy(accounts []FallbackAccount, elevated []string) *AuthPolicy {
	policy := &AuthPolicy{
		FallbackAccounts:   accounts,
		ElevatedIdentities: elevated,
	}
	policy.index()
	return policy
}

func (p *AuthPolicy) index() {
	p.byEmail = make(map[string]*FallbackAccount, len(p.FallbackAccounts))
	for i := range p.FallbackAccounts {
		acct := &p.FallbackAccounts[i]
		p.byEmail[strings.ToLower(acct.Email)] = acct
	}
	p.elevated = make(map[string]bool, len(p.ElevatedIdentities))
	for _, id := range p.ElevatedIdentities {
		p.elevated[strings.ToLower(id)] = true
	}
}

// FallbackAccount returns the configured fallback account for an email.
func (p *AuthPolicy) FallbackAccount(email string) (*FallbackAccount, bool) {
	acct, ok := p.byEmail[strings.ToLower(email)]
	return acct, ok
}

// IsElevated reports whether an identity id or email is on the
// elevated-privilege allow-list.
func (p *AuthPolicy) IsElevated(idOrEmail string) bool {
	return p.elevated[strings.ToLower(idOrEmail)]
}
