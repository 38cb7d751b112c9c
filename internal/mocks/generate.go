// Package mocks provides generated mock implementations of the ports used by the portal.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gw := mocks.NewMockAuthGateway(ctrl)
//	gw.EXPECT().FetchCurrentUser(gomock.Any()).Return(domainauth.User{}, apperrors.NotAuthenticated(nil))
package mocks

// Generate mocks for the auth ports:
// AuthGateway (Login, FetchCurrentUser, Logout, Refresh) and SessionEvents (PublishLogout, Listen).
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_ports_mock.go github.com/target/helpdesk-portal/internal/ports AuthGateway,SessionEvents
