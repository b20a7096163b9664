package console

import "testing"

func TestOpenCloseWithoutTerminal(t *testing.T) {
	// Test runs with stdin/stdout not a terminal: raw mode is skipped,
	// so no keys are ever buffered.
	h, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = h.Close() }()

	if h.KeyAvailable() {
		t.Error("expected no key available without a terminal")
	}
	if h.ReadKey() != 0 {
		t.Error("expected zero key without a terminal")
	}
	h.WriteChar('x') // must not panic
}
