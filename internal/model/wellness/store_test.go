package wellness

import "testing"

func TestSeedCatalogue(t *testing.T) {
	store := NewMemoryStore(Seed())

	breathing, ok := store.FindByID("breathing")
	if !ok {
		t.Fatal("breathing exercise missing")
	}
	if breathing.Cycles != 5 || breathing.CycleSeconds != 4 {
		t.Fatalf("unexpected breathing pacing: %+v", breathing)
	}

	mindfulness, ok := store.FindByID("mindfulness")
	if !ok || len(mindfulness.Prompts) != 5 {
		t.Fatalf("expected five mindfulness prompts, got %+v", mindfulness)
	}

	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("unexpected activity for unknown id")
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Title = "changed"
	if store.List()[0].Title == "changed" {
		t.Fatal("List must not expose internal slice")
	}
}
