package datetime_tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/calbot/calbot/internal/clock"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
)

func TestRegisterDateTimeTools(t *testing.T) {
	ctx := context.Background()

	sc, err := server.NewServerContext(ctx, nil)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	reg := tools.NewRegistry()
	if err := RegisterDateTimeTools(reg, sc); err != nil {
		t.Fatalf("failed to register datetime tools: %v", err)
	}

	registered := reg.Tools()
	if len(registered) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(registered))
	}
	if registered[0].Name != "get_current_datetime" {
		t.Errorf("Expected 'get_current_datetime', got %s", registered[0].Name)
	}
}

func TestGetCurrentDateTime_UsesConfiguredClock(t *testing.T) {
	ctx := context.Background()

	sc, err := server.NewServerContext(ctx, nil)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	// Pin the clock to a known instant
	fixed := time.Date(2025, time.July, 11, 14, 5, 0, 0, time.UTC)
	sc.SetClock(clock.SourceFunc(func() time.Time { return fixed }))

	reg := tools.NewRegistry()
	if err := RegisterDateTimeTools(reg, sc); err != nil {
		t.Fatalf("failed to register datetime tools: %v", err)
	}

	text, isError := reg.Dispatch(ctx, "get_current_datetime", "")

	if isError {
		t.Fatalf("expected success, got error text %q", text)
	}
	if !strings.Contains(text, "Current date and time: 2025-07-11T14:05:00Z") {
		t.Errorf("Expected pinned timestamp in output, got %q", text)
	}
	if !strings.Contains(text, "Formatted: Friday, July 11, 2025 at 02:05 PM UTC") {
		t.Errorf("Expected formatted date in output, got %q", text)
	}
	if !strings.Contains(text, "Always ensure the booking time is in the future!") {
		t.Errorf("Expected future-booking guidance in output, got %q", text)
	}
}
