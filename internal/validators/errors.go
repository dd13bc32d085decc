// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyName         = errors.New("name is required")
	ErrInvalidServings   = errors.New("servings cannot be negative")
	ErrInvalidIngredient = errors.New("ingredient food is required")
	ErrInvalidQuantity   = errors.New("quantity cannot be negative")
	ErrEmptyDate         = errors.New("date is required")
	ErrInvalidEntryType  = errors.New("invalid meal type")
	ErrEmptySubject      = errors.New("recipe or title is required")
	ErrInvalidItem       = errors.New("shopping list item food is required")
	ErrEmptyUsername     = errors.New("username is required")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrEmptyNaturalKey   = errors.New("natural key is required")
	ErrInvalidPayload    = errors.New("payload must be a JSON object")
)
