// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package utils holds small helpers shared by the client and the in-process
// recipe server: context keys, id generation, clocks, payload digests, JSON
// responses, the resty client constructor and JWT helpers.
package utils

import (
	"context"
)

// contextKey is a private type for context keys, so that keys set here never
// collide with string keys of other packages.
type contextKey string

func (c contextKey) String() string {
	return string(c)
}

// SubjectCtxKey stores the authenticated account name of a request.
var SubjectCtxKey = contextKey("subject")

// WithSubject returns a copy of ctx carrying subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectCtxKey, subject)
}

// GetSubjectFromContext returns the subject stored by WithSubject.
// ok is false when the value is missing, empty or of another type.
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectCtxKey).(string)
	return subject, ok && subject != ""
}
