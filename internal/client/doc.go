// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the recipe sync client runtime.
//
// It wires local storage, the server adapter, sync services and background
// jobs into one process. Without a command the interactive dashboard runs
// with the background jobs; a command runs once and exits.
package client
