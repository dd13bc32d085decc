// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"sync"
)

// hasherPool keeps SHA-256 instances around between digests; a download pass
// digests two payloads per record.
var hasherPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// canonicalJSON re-encodes data so that key order and whitespace do not
// influence the digest. Invalid JSON is digested as is.
func canonicalJSON(data []byte) []byte {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return out
}

// PayloadDigest returns the hex SHA-256 of the canonical form of a JSON
// payload.
func PayloadDigest(data []byte) string {
	h := hasherPool.Get().(hash.Hash)
	defer func() {
		h.Reset()
		hasherPool.Put(h)
	}()

	h.Reset()
	h.Write(canonicalJSON(data))
	return hex.EncodeToString(h.Sum(nil))
}

// SamePayload reports whether two JSON payloads describe the same value.
func SamePayload(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	return PayloadDigest(a) == PayloadDigest(b)
}
