// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Token is a bearer token issued by one recipe server.
type Token struct {
	// AccessToken is the compact JWT sent in the Authorization header.
	AccessToken string `json:"access_token"`
	// TokenType is usually "bearer".
	TokenType string `json:"token_type,omitempty"`
	// ExpiresAt is read from the "exp" claim; nil if the token has none.
	ExpiresAt *time.Time `json:"-"`
}

// Valid reports whether the token is present and not expired at now, allowing
// for the given clock skew.
func (t Token) Valid(now time.Time, skew time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt == nil {
		return true
	}
	return now.Add(skew).Before(*t.ExpiresAt)
}

// String returns the compact token.
func (t Token) String() string {
	return t.AccessToken
}
