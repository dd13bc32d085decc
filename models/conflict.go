// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrConflictResolved is returned when a resolution is attempted on a
// ConflictCase that has already been resolved.
var ErrConflictResolved = errors.New("conflict is already resolved")

// ConflictType is the kind of record a ConflictCase was raised for.
type ConflictType string

const (
	ConflictTypeRecipe       ConflictType = "RECIPE"
	ConflictTypeMealPlan     ConflictType = "MEAL_PLAN"
	ConflictTypeShoppingList ConflictType = "SHOPPING_LIST"
)

var conflictTypes = map[RecordType]ConflictType{
	RecordTypeRecipe:       ConflictTypeRecipe,
	RecordTypeMealPlan:     ConflictTypeMealPlan,
	RecordTypeShoppingList: ConflictTypeShoppingList,
}

// ConflictTypeFor returns the conflict type for a record type. The second
// value is false for record types that never surface conflicts to the user.
func ConflictTypeFor(t RecordType) (ConflictType, bool) {
	ct, ok := conflictTypes[t]
	return ct, ok
}

// RecordType returns the record type a conflict type belongs to.
func (c ConflictType) RecordType() RecordType {
	return RecordType(c)
}

// ResolutionStrategy tells which version a conflict was settled with.
type ResolutionStrategy string

const (
	StrategyUseLocal  ResolutionStrategy = "USE_LOCAL"
	StrategyUseServer ResolutionStrategy = "USE_SERVER"
	StrategyMerge     ResolutionStrategy = "MERGE"
	StrategyAskUser   ResolutionStrategy = "ASK_USER"
)

// Valid reports whether s is a known strategy.
func (s ResolutionStrategy) Valid() bool {
	switch s {
	case StrategyUseLocal, StrategyUseServer, StrategyMerge, StrategyAskUser:
		return true
	}
	return false
}

// VersionSnapshot is one side of a conflict.
type VersionSnapshot struct {
	Payload    json.RawMessage `json:"payload,omitempty"`
	ModifiedAt time.Time       `json:"modified_at"`
	Deleted    bool            `json:"deleted,omitempty"`
}

// ConflictCase is a detected divergence between the local and the server
// version of the same record. Once Resolved is true the case is immutable.
type ConflictCase struct {
	ID           string       `json:"id"`
	ConflictType ConflictType `json:"conflict_type"`
	// ItemID is the client-side id of the record in conflict.
	ItemID   string `json:"item_id"`
	ServerID string `json:"server_id,omitempty"`

	LocalVersion  VersionSnapshot `json:"local_version"`
	ServerVersion VersionSnapshot `json:"server_version"`

	Strategy        ResolutionStrategy `json:"strategy,omitempty"`
	ResolvedVersion json.RawMessage    `json:"resolved_version,omitempty"`
	Resolved        bool               `json:"resolved"`
	DetectedAt      time.Time          `json:"detected_at"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
}

// ResolveWithLocal settles the conflict with the local version.
func (c *ConflictCase) ResolveWithLocal() error {
	return c.resolve(StrategyUseLocal, c.LocalVersion.Payload)
}

// ResolveWithServer settles the conflict with the server version.
func (c *ConflictCase) ResolveWithServer() error {
	return c.resolve(StrategyUseServer, c.ServerVersion.Payload)
}

// ResolveWithMerge records a version produced by a caller supplied merge.
func (c *ConflictCase) ResolveWithMerge(merged json.RawMessage) error {
	if len(merged) == 0 {
		return errors.New("merged version is empty")
	}
	return c.resolve(StrategyMerge, merged)
}

// ResolveWithCustom records a version the user picked or edited by hand.
func (c *ConflictCase) ResolveWithCustom(version json.RawMessage) error {
	if len(version) == 0 {
		return errors.New("custom version is empty")
	}
	return c.resolve(StrategyAskUser, version)
}

func (c *ConflictCase) resolve(strategy ResolutionStrategy, version json.RawMessage) error {
	if c.Resolved {
		return ErrConflictResolved
	}
	now := time.Now().UTC()
	c.Strategy = strategy
	c.ResolvedVersion = append(json.RawMessage(nil), version...)
	c.Resolved = true
	c.ResolvedAt = &now
	return nil
}

// NeedsUpload reports whether the resolved version still has to reach the
// server. Only a server-side resolution is already in place remotely.
func (c *ConflictCase) NeedsUpload() bool {
	return c.Resolved && c.Strategy != StrategyUseServer
}

// ResolvedDeleted reports whether the resolution keeps a deletion, i.e. the
// chosen side was a tombstone.
func (c *ConflictCase) ResolvedDeleted() bool {
	switch c.Strategy {
	case StrategyUseLocal:
		return c.LocalVersion.Deleted
	case StrategyUseServer:
		return c.ServerVersion.Deleted
	}
	return false
}

// Description returns a short human-readable summary for display.
func (c *ConflictCase) Description() string {
	const layout = "2006-01-02 15:04"
	return fmt.Sprintf("%s changed on this device (%s) and on the server (%s)",
		c.ConflictType.RecordType().Title(),
		describeSide(c.LocalVersion, layout),
		describeSide(c.ServerVersion, layout),
	)
}

func describeSide(v VersionSnapshot, layout string) string {
	if v.Deleted {
		return "deleted " + v.ModifiedAt.Local().Format(layout)
	}
	return v.ModifiedAt.Local().Format(layout)
}
