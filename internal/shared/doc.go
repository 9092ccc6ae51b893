// Package shared holds cross-cutting helpers that do not belong to any
// single domain package. Today that is only testutil, the in-memory slog
// capture used by package tests across the codebase.
package shared
