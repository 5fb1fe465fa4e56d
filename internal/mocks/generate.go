// Package mocks provides mock implementations for testing the session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	api := mocks.NewMockAuthAPI(ctrl)
//	api.EXPECT().ValidateToken(gomock.Any()).Return(true)
package mocks

// Generate mock for AuthAPI interface from internal/ports.
// This creates MockAuthAPI with methods for all AuthAPI interface methods:
// Login, LoginUnified, CurrentUser, Logout, ValidateToken
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=authapi_mock.go github.com/sprintdeck/sprintdeck-go/internal/ports AuthAPI

// Generate mock for TokenStore interface from internal/ports.
// This creates MockTokenStore with methods for all TokenStore interface methods:
// Get, Set, Clear
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=tokenstore_mock.go github.com/sprintdeck/sprintdeck-go/internal/ports TokenStore
