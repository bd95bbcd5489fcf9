// Package mocks provides mock implementations for testing the admin console.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	nav := mocks.NewMockNavigator(ctrl)
//	nav.EXPECT().NavigateTo(gomock.Any(), "/app/dashboard").Return(nil)
package mocks

// Generate mock for Navigator interface from internal/ports package.
// This creates MockNavigator with methods for all Navigator interface methods:
// NavigateTo
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=navigator_mock.go github.com/target/mmk-admin-console/internal/ports Navigator

// Generate mock for Notifier interface from internal/ports package.
// This creates MockNotifier with methods for all Notifier interface methods:
// Notify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=notifier_mock.go github.com/target/mmk-admin-console/internal/ports Notifier

// Generate mock for BlobStore interface from internal/ports package.
// This creates MockBlobStore with methods for all BlobStore interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=blob_store_mock.go github.com/target/mmk-admin-console/internal/ports BlobStore
