// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "fmt"

// RecordType identifies the kind of domain record that is being synchronized.
type RecordType string

const (
	RecordTypeRecipe       RecordType = "RECIPE"
	RecordTypeMealPlan     RecordType = "MEAL_PLAN"
	RecordTypeShoppingList RecordType = "SHOPPING_LIST"
	RecordTypeUserProfile  RecordType = "USER_PROFILE"
)

// AllRecordTypes lists every synchronizable record type in the order the
// orchestrator processes them when no explicit type is requested.
var AllRecordTypes = []RecordType{
	RecordTypeRecipe,
	RecordTypeMealPlan,
	RecordTypeShoppingList,
	RecordTypeUserProfile,
}

// recordTypeResources maps each record type to the REST collection it lives in.
var recordTypeResources = map[RecordType]string{
	RecordTypeRecipe:       "recipes",
	RecordTypeMealPlan:     "mealplans",
	RecordTypeShoppingList: "shoppinglists",
	RecordTypeUserProfile:  "users",
}

// recordTypeTitles holds human-readable names used in conflict descriptions
// and status messages.
var recordTypeTitles = map[RecordType]string{
	RecordTypeRecipe:       "Recipe",
	RecordTypeMealPlan:     "Meal plan",
	RecordTypeShoppingList: "Shopping list",
	RecordTypeUserProfile:  "User profile",
}

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	_, ok := recordTypeResources[t]
	return ok
}

// Resource returns the REST collection name for t, e.g. "recipes".
func (t RecordType) Resource() string {
	return recordTypeResources[t]
}

// Title returns a display name for t.
func (t RecordType) Title() string {
	if title, ok := recordTypeTitles[t]; ok {
		return title
	}
	return string(t)
}

// ParseRecordType converts a user supplied value (case-sensitive enum name or
// REST resource name) into a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	t := RecordType(s)
	if t.Valid() {
		return t, nil
	}
	for rt, resource := range recordTypeResources {
		if resource == s {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// Action is the kind of local mutation recorded in a PendingChange.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}
