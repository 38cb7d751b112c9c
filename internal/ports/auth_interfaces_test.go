package ports_test

import (
	"testing"

	mocks "github.com/target/helpdesk-portal/internal/mocks/auth"
	"github.com/target/helpdesk-portal/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.AuthGateway = (*mocks.FakeGateway)(nil)
	var _ ports.SessionEvents = (*mocks.MemorySessionEvents)(nil)
}
