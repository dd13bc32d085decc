// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto hashes account passwords of the recipe server.
package crypto

// PasswordHasher derives and checks password hashes. Only hashes are kept in
// memory, the plain passwords from the configuration are dropped right after
// hashing.
//
// Формат закодированного хеша (PHC):
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt b64>$<key b64>
type PasswordHasher interface {
	// Hash derives a hash with a fresh random salt.
	Hash(password string) (PasswordHash, error)

	// Verify reports whether password matches hash. Comparison runs in
	// constant time.
	Verify(password string, hash PasswordHash) bool
}
