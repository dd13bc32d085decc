// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MKhiriev/go-recipe-sync/models"
)

// Field names accepted by RecordValidator.Validate.
const (
	FieldName        = "name"
	FieldServings    = "servings"
	FieldIngredients = "ingredients"
	FieldDate        = "date"
	FieldEntryType   = "entry_type"
	FieldSubject     = "subject"
	FieldItems       = "items"
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldNaturalKey  = "natural_key"
	FieldPayload     = "payload"
)

var (
	recipeFields       = []string{FieldName, FieldServings, FieldIngredients}
	mealPlanFields     = []string{FieldDate, FieldEntryType, FieldSubject}
	shoppingListFields = []string{FieldName, FieldItems}
	userProfileFields  = []string{FieldUsername, FieldEmail}
	remoteRecordFields = []string{FieldNaturalKey, FieldPayload}
)

// RecordValidator validates domain records and remote record envelopes.
// Without explicit fields every rule of the value's type is checked.
type RecordValidator struct{}

func NewRecordValidator() *RecordValidator {
	return &RecordValidator{}
}

// Validate implements [Validator] for records and remote record envelopes,
// by value or by pointer.
func (v *RecordValidator) Validate(ctx context.Context, value any, fields ...string) error {
	switch rec := value.(type) {
	case models.Recipe:
		return v.validateRecipe(rec, orDefault(fields, recipeFields))
	case *models.Recipe:
		return v.validateRecipe(*rec, orDefault(fields, recipeFields))
	case models.MealPlan:
		return v.validateMealPlan(rec, orDefault(fields, mealPlanFields))
	case *models.MealPlan:
		return v.validateMealPlan(*rec, orDefault(fields, mealPlanFields))
	case models.ShoppingList:
		return v.validateShoppingList(rec, orDefault(fields, shoppingListFields))
	case *models.ShoppingList:
		return v.validateShoppingList(*rec, orDefault(fields, shoppingListFields))
	case models.UserProfile:
		return v.validateUserProfile(rec, orDefault(fields, userProfileFields))
	case *models.UserProfile:
		return v.validateUserProfile(*rec, orDefault(fields, userProfileFields))
	case models.RemoteRecord:
		return v.validateRemoteRecord(rec, orDefault(fields, remoteRecordFields))
	case *models.RemoteRecord:
		return v.validateRemoteRecord(*rec, orDefault(fields, remoteRecordFields))
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

func (v *RecordValidator) validateRecipe(r models.Recipe, fields []string) error {
	for _, field := range fields {
		switch field {
		case FieldName:
			if strings.TrimSpace(r.Name) == "" {
				return ErrEmptyName
			}
		case FieldServings:
			if r.Servings < 0 {
				return ErrInvalidServings
			}
		case FieldIngredients:
			for i, ing := range r.Ingredients {
				if strings.TrimSpace(ing.Food) == "" {
					return fmt.Errorf("%w: line %d", ErrInvalidIngredient, i+1)
				}
				if ing.Quantity < 0 {
					return fmt.Errorf("%w: line %d", ErrInvalidQuantity, i+1)
				}
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func (v *RecordValidator) validateMealPlan(m models.MealPlan, fields []string) error {
	for _, field := range fields {
		switch field {
		case FieldDate:
			if m.Date.IsZero() {
				return ErrEmptyDate
			}
		case FieldEntryType:
			switch m.EntryType {
			case models.MealTypeBreakfast, models.MealTypeLunch, models.MealTypeDinner, models.MealTypeSide:
			default:
				return fmt.Errorf("%w: %q", ErrInvalidEntryType, m.EntryType)
			}
		case FieldSubject:
			if strings.TrimSpace(m.RecipeSlug) == "" && strings.TrimSpace(m.Title) == "" {
				return ErrEmptySubject
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func (v *RecordValidator) validateShoppingList(s models.ShoppingList, fields []string) error {
	for _, field := range fields {
		switch field {
		case FieldName:
			if strings.TrimSpace(s.Name) == "" {
				return ErrEmptyName
			}
		case FieldItems:
			for i, item := range s.Items {
				if strings.TrimSpace(item.Food) == "" {
					return fmt.Errorf("%w: item %d", ErrInvalidItem, i+1)
				}
				if item.Quantity < 0 {
					return fmt.Errorf("%w: item %d", ErrInvalidQuantity, i+1)
				}
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func (v *RecordValidator) validateUserProfile(u models.UserProfile, fields []string) error {
	for _, field := range fields {
		switch field {
		case FieldUsername:
			if strings.TrimSpace(u.Username) == "" {
				return ErrEmptyUsername
			}
		case FieldEmail:
			// email is optional
			if u.Email == "" {
				continue
			}
			if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
				return fmt.Errorf("%w: %q", ErrInvalidEmail, u.Email)
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func (v *RecordValidator) validateRemoteRecord(r models.RemoteRecord, fields []string) error {
	for _, field := range fields {
		switch field {
		case FieldNaturalKey:
			if strings.TrimSpace(r.NaturalKey) == "" {
				return ErrEmptyNaturalKey
			}
		case FieldPayload:
			trimmed := bytes.TrimSpace(r.Payload)
			if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
				return ErrInvalidPayload
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func orDefault(fields, defaults []string) []string {
	if len(fields) == 0 {
		return defaults
	}
	return fields
}
