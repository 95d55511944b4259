package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
)

// TestKeyMapDefaults verifies the documented single-key bindings.
func TestKeyMapDefaults(t *testing.T) {
	k := newKeyMap()
	cases := map[string]key.Binding{
		"s":   k.start,
		"c":   k.complete,
		"d":   k.delete,
		"e":   k.edit,
		"tab": k.nextField,
		"x":   k.exportCSV,
		"y":   k.copyCSV,
		"j":   k.moveDown,
		"k":   k.moveUp,
		"?":   k.toggleHelp,
		"q":   k.quit,
	}
	for want, binding := range cases {
		keys := binding.Keys()
		if len(keys) == 0 || keys[0] != want {
			t.Fatalf("expected %q as primary key, got %#v", want, keys)
		}
	}
}

// TestKeyMapHelpGroups verifies every binding shows up in full help exactly once.
func TestKeyMapHelpGroups(t *testing.T) {
	k := newKeyMap()
	seen := map[string]int{}
	for _, group := range k.FullHelp() {
		for _, b := range group {
			seen[b.Help().Key]++
		}
	}
	for helpKey, count := range seen {
		if count != 1 {
			t.Fatalf("binding %q listed %d times", helpKey, count)
		}
	}
	if len(seen) != 14 {
		t.Fatalf("expected 14 bindings in full help, got %d", len(seen))
	}
	if len(k.ShortHelp()) == 0 {
		t.Fatal("expected short help bindings")
	}
}
