// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package tui renders the interactive sync dashboard: per record type session
// status, configured servers and queue counters. Sessions started from the
// dashboard stream their progress into the view as it happens.
package tui
