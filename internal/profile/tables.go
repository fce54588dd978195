// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package profile

// Vocabulary version. Changing any table below invalidates stored embeddings
// and must bump this constant.
const VocabularyVersion = "v1"

// Tone is a content item's dominant emotional color. The index order of
// Tones is part of the embedding wire contract.
type Tone string

// The fixed 8-tone vocabulary, in embedding segment order.
const (
	ToneCalming       Tone = "calming"
	ToneUplifting     Tone = "uplifting"
	ToneExciting      Tone = "exciting"
	ToneMelancholic   Tone = "melancholic"
	ToneTense         Tone = "tense"
	ToneSerene        Tone = "serene"
	ToneEnergetic     Tone = "energetic"
	ToneContemplative Tone = "contemplative"
)

// Tones lists the vocabulary in segment order.
var Tones = []Tone{
	ToneCalming, ToneUplifting, ToneExciting, ToneMelancholic,
	ToneTense, ToneSerene, ToneEnergetic, ToneContemplative,
}

// ToneIndex returns the segment slot for a tone, or -1 if unknown.
func ToneIndex(t Tone) int {
	for i, known := range Tones {
		if known == t {
			return i
		}
	}
	return -1
}

// genreEffect is the expected emotional effect of a genre.
type genreEffect struct {
	ValenceDelta float64
	ArousalDelta float64
	Intensity    float64
}

// genreEffects maps lowercased genre names to expected effects. Part of the
// wire contract: identical metadata must yield identical profiles across
// deployments.
var genreEffects = map[string]genreEffect{
	"action":      {0.3, 0.6, 0.8},
	"adventure":   {0.4, 0.5, 0.7},
	"animation":   {0.5, 0.3, 0.5},
	"comedy":      {0.5, 0.2, 0.6},
	"crime":       {-0.2, 0.4, 0.7},
	"documentary": {0.1, -0.2, 0.4},
	"drama":       {-0.1, -0.1, 0.6},
	"family":      {0.4, 0.1, 0.4},
	"fantasy":     {0.3, 0.2, 0.6},
	"horror":      {-0.4, 0.7, 0.9},
	"meditation":  {0.3, -0.6, 0.2},
	"music":       {0.5, 0.2, 0.5},
	"mystery":     {0.0, 0.3, 0.6},
	"nature":      {0.3, -0.4, 0.3},
	"romance":     {0.4, 0.1, 0.5},
	"sci-fi":      {0.2, 0.3, 0.7},
	"thriller":    {-0.2, 0.6, 0.8},
}

// neutralEffect is used when no genre matches.
var neutralEffect = genreEffect{ValenceDelta: 0.2, ArousalDelta: 0.1, Intensity: 0.5}

// genreTones maps lowercased genres to their tone.
var genreTones = map[string]Tone{
	"action":      ToneExciting,
	"adventure":   ToneEnergetic,
	"animation":   ToneEnergetic,
	"comedy":      ToneUplifting,
	"crime":       ToneTense,
	"documentary": ToneSerene,
	"drama":       ToneMelancholic,
	"family":      ToneUplifting,
	"fantasy":     ToneContemplative,
	"horror":      ToneTense,
	"meditation":  ToneCalming,
	"music":       ToneUplifting,
	"mystery":     ToneContemplative,
	"nature":      ToneSerene,
	"romance":     ToneUplifting,
	"sci-fi":      ToneContemplative,
	"thriller":    ToneTense,
}

// categoryTones are category-level overrides that win over genre tones.
var categoryTones = map[string]Tone{
	"meditation":  ToneCalming,
	"documentary": ToneSerene,
	"music":       ToneUplifting,
}

// fallbackToneCycle is used when neither category nor genres resolve a tone;
// the content id's first byte selects deterministically from this cycle.
var fallbackToneCycle = []Tone{ToneCalming, ToneUplifting, ToneContemplative, ToneEnergetic}
