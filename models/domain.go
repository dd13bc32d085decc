// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"strings"
	"time"
)

// Record is implemented by every domain type that can be stored locally and
// synchronized.
type Record interface {
	// Type returns the record type.
	Type() RecordType
	// Key returns the natural key used for duplicate detection on the server.
	Key() string
}

// Ingredient is one line of a recipe.
type Ingredient struct {
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Food     string  `json:"food"`
	Note     string  `json:"note,omitempty"`
}

// Recipe is a user recipe.
type Recipe struct {
	Slug         string       `json:"slug"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Servings     int          `json:"servings,omitempty"`
	TotalTime    string       `json:"totalTime,omitempty"`
	Ingredients  []Ingredient `json:"recipeIngredient,omitempty"`
	Instructions []string     `json:"recipeInstructions,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
}

func (r Recipe) Type() RecordType { return RecordTypeRecipe }

// Key returns the slug, derived from the name if unset.
func (r Recipe) Key() string {
	if r.Slug != "" {
		return r.Slug
	}
	return Slugify(r.Name)
}

// MealType is the slot of a meal plan entry.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSide      MealType = "side"
)

// MealPlan is one planned meal on a date.
type MealPlan struct {
	Date       time.Time `json:"date"`
	EntryType  MealType  `json:"entryType"`
	Title      string    `json:"title,omitempty"`
	Text       string    `json:"text,omitempty"`
	RecipeSlug string    `json:"recipeSlug,omitempty"`
}

func (m MealPlan) Type() RecordType { return RecordTypeMealPlan }

// Key combines date, slot and recipe.
func (m MealPlan) Key() string {
	return m.Date.Format("2006-01-02") + ":" + string(m.EntryType) + ":" + m.RecipeSlug
}

// ShoppingListItem is one entry of a shopping list.
type ShoppingListItem struct {
	Food     string  `json:"food"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Checked  bool    `json:"checked"`
}

// ShoppingList is a named list of items.
type ShoppingList struct {
	Name  string             `json:"name"`
	Items []ShoppingListItem `json:"listItems,omitempty"`
}

func (s ShoppingList) Type() RecordType { return RecordTypeShoppingList }

func (s ShoppingList) Key() string { return Slugify(s.Name) }

// UserProfile holds the signed-in user's editable profile.
type UserProfile struct {
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (u UserProfile) Type() RecordType { return RecordTypeUserProfile }

func (u UserProfile) Key() string { return u.Username }

// Slugify lowercases s and replaces every run of non-alphanumerics with "-".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
