//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` and are not tracked in go.mod
// beyond what the code itself imports.
package tools

// Development tools (install via `go install`):
//
// MockGen - Mock generation for the port interfaces
//   Install: go install go.uber.org/mock/mockgen@v0.6.0
//   Version: v0.6.0 (matches the gomock runtime in go.mod)
//   Docs: https://github.com/uber-go/mock
