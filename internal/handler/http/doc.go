// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http implements the REST API of the in-process recipe server.
//
// It exposes route wiring, request handlers, and middleware. Authentication,
// request tracing, access logging and response compression are handled in
// this package before requests reach the record repository. The server can be
// switched unavailable at runtime, which lets end-to-end tests and local
// setups simulate an outage of one server while another keeps answering.
package http
