package pricing

import "testing"

// TestLookupIsDeterministicAcrossOverlappingNames guards against the
// nondeterminism a naive range-and-return-on-first-match implementation
// would have: Go randomizes map iteration order per run, so a catalog with
// several substring-overlapping names must still resolve the same model to
// the same Entry every call, not whichever key the iterator visits first.
func TestLookupIsDeterministicAcrossOverlappingNames(t *testing.T) {
	catalog := Catalog{
		"gpt-4":       {InputCostPerToken: 0.1, OutputCostPerToken: 0.2},
		"gpt-4o":      {InputCostPerToken: 0.3, OutputCostPerToken: 0.4},
		"gpt-4-turbo": {InputCostPerToken: 0.5, OutputCostPerToken: 0.6},
		"gpt-4-32k":   {InputCostPerToken: 0.7, OutputCostPerToken: 0.8},
	}

	entry, ok := lookup(catalog, "gpt-4o-mini")
	if !ok {
		t.Fatal("expected a match")
	}
	want := entry

	for i := 0; i < 50; i++ {
		got, ok := lookup(catalog, "gpt-4o-mini")
		if !ok {
			t.Fatal("expected a match")
		}
		if got != want {
			t.Fatalf("lookup returned a different entry across calls: %+v vs %+v", got, want)
		}
	}
}

// TestLookupPrefersMostSpecificSubstringMatch asserts the tie-break rule
// itself: the longest overlapping catalog name wins, not an arbitrary one.
func TestLookupPrefersMostSpecificSubstringMatch(t *testing.T) {
	catalog := Catalog{
		"claude-3":      {InputCostPerToken: 0.1, OutputCostPerToken: 0.1},
		"claude-3-opus": {InputCostPerToken: 0.9, OutputCostPerToken: 0.9},
	}

	entry, ok := lookup(catalog, "claude-3-opus-20240229")
	if !ok {
		t.Fatal("expected a match")
	}
	if entry.InputCostPerToken != 0.9 {
		t.Fatalf("expected the more specific claude-3-opus entry to win, got %+v", entry)
	}
}
