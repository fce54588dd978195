// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package profile

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeriveActionComedy(t *testing.T) {
	p, err := Derive(Item{
		ContentID: "c-001",
		Title:     "Fast Laughs",
		Genres:    []string{"Action", "Comedy"},
		Category:  "movie",
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if !almostEqual(p.ValenceDelta, 0.4) {
		t.Errorf("valence_delta = %v, want 0.4", p.ValenceDelta)
	}
	if !almostEqual(p.ArousalDelta, 0.4) {
		t.Errorf("arousal_delta = %v, want 0.4", p.ArousalDelta)
	}
	if !almostEqual(p.Intensity, 0.7) {
		t.Errorf("intensity = %v, want 0.7", p.Intensity)
	}
	if !almostEqual(p.Complexity, 0.6) {
		t.Errorf("complexity = %v, want 0.6", p.Complexity)
	}
}

func TestDeriveNeutralDefault(t *testing.T) {
	p, err := Derive(Item{ContentID: "x-1", Genres: []string{"unheard-of"}})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !almostEqual(p.ValenceDelta, 0.2) || !almostEqual(p.ArousalDelta, 0.1) || !almostEqual(p.Intensity, 0.5) {
		t.Errorf("neutral effect = (%v, %v, %v), want (0.2, 0.1, 0.5)",
			p.ValenceDelta, p.ArousalDelta, p.Intensity)
	}
}

func TestDeriveComplexityCap(t *testing.T) {
	p, err := Derive(Item{
		ContentID: "c-many",
		Genres:    []string{"action", "comedy", "drama", "horror", "sci-fi"},
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !almostEqual(p.Complexity, 0.9) {
		t.Errorf("complexity = %v, want cap 0.9", p.Complexity)
	}

	p, err = Derive(Item{ContentID: "c-none"})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !almostEqual(p.Complexity, 0.3) {
		t.Errorf("no-genre complexity = %v, want 0.3", p.Complexity)
	}
}

func TestPrimaryToneCategoryOverride(t *testing.T) {
	// Category override wins even against a tense genre list.
	p, err := Derive(Item{
		ContentID: "m-1",
		Genres:    []string{"horror"},
		Category:  "Meditation",
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if p.PrimaryTone != ToneCalming {
		t.Errorf("tone = %q, want calming from category override", p.PrimaryTone)
	}
}

func TestPrimaryToneGenreOrder(t *testing.T) {
	// First matching genre decides, not the strongest.
	p, err := Derive(Item{
		ContentID: "g-1",
		Genres:    []string{"comedy", "horror"},
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if p.PrimaryTone != ToneUplifting {
		t.Errorf("tone = %q, want uplifting from first genre", p.PrimaryTone)
	}
}

func TestPrimaryToneFallbackCycle(t *testing.T) {
	// Nothing resolves: tone comes from the id's first byte.
	cases := []struct {
		id   string
		want Tone
	}{
		// 'd' = 100, 100 % 4 = 0.
		{"d-000", ToneCalming},
		// 'e' = 101, 101 % 4 = 1.
		{"e-000", ToneUplifting},
		// 'f' = 102, 102 % 4 = 2.
		{"f-000", ToneContemplative},
		// 'g' = 103, 103 % 4 = 3.
		{"g-000", ToneEnergetic},
	}
	for _, tc := range cases {
		p, err := Derive(Item{ContentID: tc.id})
		if err != nil {
			t.Fatalf("Derive(%q): %v", tc.id, err)
		}
		if p.PrimaryTone != tc.want {
			t.Errorf("tone(%q) = %q, want %q", tc.id, p.PrimaryTone, tc.want)
		}
	}
}

func TestDeriveAnchors(t *testing.T) {
	p, err := Derive(Item{ContentID: "a-1", Genres: []string{"action"}})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(p.TargetStates) != 2 {
		t.Fatalf("anchors = %d, want 2", len(p.TargetStates))
	}
	if !almostEqual(p.TargetStates[0].Valence, 0.5*p.ValenceDelta) ||
		!almostEqual(p.TargetStates[0].Arousal, 0.5*p.ArousalDelta) {
		t.Errorf("anchor 0 = %+v, want 50%% of deltas", p.TargetStates[0])
	}
	if !almostEqual(p.TargetStates[1].Valence, 0.3*p.ValenceDelta) ||
		!almostEqual(p.TargetStates[1].Arousal, 0.3*p.ArousalDelta) {
		t.Errorf("anchor 1 = %+v, want 30%% of deltas", p.TargetStates[1])
	}
}

func TestDeriveDeterministic(t *testing.T) {
	it := Item{ContentID: "det-1", Genres: []string{"Drama", "Mystery"}, Category: "series"}
	a, err := Derive(it)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	b, err := Derive(it)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if a.ValenceDelta != b.ValenceDelta || a.PrimaryTone != b.PrimaryTone || a.Complexity != b.Complexity {
		t.Errorf("Derive not deterministic: %+v vs %+v", a, b)
	}
}

func TestItemValidate(t *testing.T) {
	if err := (Item{}).Validate(); err == nil {
		t.Error("empty content_id accepted")
	}
	if err := (Item{ContentID: "x", Rating: math.NaN()}).Validate(); err == nil {
		t.Error("NaN rating accepted")
	}
	if err := (Item{ContentID: "x", Rating: math.Inf(1)}).Validate(); err == nil {
		t.Error("Inf rating accepted")
	}
	if err := (Item{ContentID: "x", Rating: 4.5}).Validate(); err != nil {
		t.Errorf("valid item rejected: %v", err)
	}
}

func TestBuildVocabularyDeterministic(t *testing.T) {
	profiles := map[string]Profile{
		"a": {ContentID: "a", Genres: []string{"comedy", "action"}, Category: "movie"},
		"b": {ContentID: "b", Genres: []string{"drama"}, Category: "series"},
	}

	v1 := buildVocabulary(profiles)
	v2 := buildVocabulary(profiles)

	if len(v1.GenreSlots) != 3 {
		t.Fatalf("genre slots = %d, want 3", len(v1.GenreSlots))
	}
	// Sorted assignment: action=0, comedy=1, drama=2.
	if v1.GenreSlots["action"] != 0 || v1.GenreSlots["comedy"] != 1 || v1.GenreSlots["drama"] != 2 {
		t.Errorf("genre slots not sorted: %v", v1.GenreSlots)
	}
	for g, s := range v1.GenreSlots {
		if v2.GenreSlots[g] != s {
			t.Errorf("slot for %q differs across builds", g)
		}
	}
	if v1.CategorySlots["movie"] != 0 || v1.CategorySlots["series"] != 1 {
		t.Errorf("category slots not sorted: %v", v1.CategorySlots)
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")

	good := `[
		{"content_id": "c-1", "title": "One", "genres": ["comedy"], "category": "movie", "duration_minutes": 90},
		{"content_id": "c-2", "title": "Two", "genres": ["nature"], "category": "documentary", "duration_minutes": 45}
	]`
	if err := os.WriteFile(path, []byte(good), 0o600); err != nil {
		t.Fatal(err)
	}

	items, err := LoadCatalogFile(path)
	if err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}
	if len(items) != 2 || items[0].ContentID != "c-1" {
		t.Errorf("unexpected items: %+v", items)
	}

	bad := `[{"title": "missing id"}]`
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalogFile(path); err == nil {
		t.Error("catalog with empty content_id accepted")
	}

	if _, err := LoadCatalogFile(filepath.Join(dir, "nope.json")); err == nil {
		t.Error("missing file accepted")
	}
}
