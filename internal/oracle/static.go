// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package oracle

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/moodloop/moodloop/internal/affect"
)

// emotion labels in vector order
var emotionLabels = [EmotionDims]string{
	"joy", "sadness", "anger", "fear", "surprise", "disgust", "calm", "anticipation",
}

// lexEntry scores one keyword's contribution.
type lexEntry struct {
	valence float64
	arousal float64
	stress  float64
	emotion int
}

// lexicon is a small hand-built keyword table. Not meant to rival the real
// analyzer; it keeps the service functional when the oracle is down and
// gives tests a deterministic input path.
var lexicon = map[string]lexEntry{
	"happy":       {0.7, 0.3, 0.1, 0},
	"joyful":      {0.8, 0.4, 0.1, 0},
	"excited":     {0.6, 0.7, 0.2, 7},
	"great":       {0.6, 0.2, 0.1, 0},
	"calm":        {0.4, -0.5, 0.1, 6},
	"relaxed":     {0.5, -0.6, 0.1, 6},
	"peaceful":    {0.5, -0.5, 0.1, 6},
	"content":     {0.5, -0.2, 0.1, 0},
	"sad":         {-0.6, -0.3, 0.4, 1},
	"depressed":   {-0.8, -0.5, 0.6, 1},
	"down":        {-0.5, -0.3, 0.4, 1},
	"lonely":      {-0.6, -0.2, 0.5, 1},
	"angry":       {-0.6, 0.7, 0.7, 2},
	"furious":     {-0.8, 0.9, 0.8, 2},
	"frustrated":  {-0.5, 0.5, 0.6, 2},
	"annoyed":     {-0.4, 0.4, 0.5, 2},
	"anxious":     {-0.5, 0.6, 0.8, 3},
	"worried":     {-0.4, 0.5, 0.7, 3},
	"scared":      {-0.6, 0.7, 0.8, 3},
	"stressed":    {-0.4, 0.6, 0.9, 3},
	"overwhelmed": {-0.5, 0.6, 0.9, 3},
	"nervous":     {-0.3, 0.5, 0.7, 3},
	"tired":       {-0.3, -0.6, 0.4, 1},
	"exhausted":   {-0.4, -0.7, 0.5, 1},
	"bored":       {-0.2, -0.5, 0.2, 5},
	"surprised":   {0.2, 0.6, 0.3, 4},
	"curious":     {0.4, 0.3, 0.1, 7},
	"hopeful":     {0.5, 0.2, 0.2, 7},
}

// StaticClient is a deterministic lexicon analyzer.
type StaticClient struct {
	now func() time.Time
}

// NewStaticClient creates the lexicon client.
func NewStaticClient() *StaticClient {
	return &StaticClient{now: time.Now}
}

// Analyze averages lexicon hits over the tokenized text. Unmatched text
// yields a neutral state with low confidence.
func (s *StaticClient) Analyze(_ context.Context, _ string, text string) (Analysis, error) {
	tokens := tokenize(text)

	var sum lexEntry
	var counts [EmotionDims]int
	matched := 0
	for _, tok := range tokens {
		entry, ok := lexicon[tok]
		if !ok {
			continue
		}
		sum.valence += entry.valence
		sum.arousal += entry.arousal
		sum.stress += entry.stress
		counts[entry.emotion]++
		matched++
	}

	analysis := Analysis{Timestamp: s.now().UTC()}
	if matched == 0 {
		analysis.State = clampState(0, 0, 0.3, 0.3)
		analysis.PrimaryEmotion = "neutral"
		return analysis, nil
	}

	n := float64(matched)
	// Confidence grows with hits but saturates well below certainty.
	conf := 0.5 + 0.1*n
	if conf > 0.9 {
		conf = 0.9
	}
	analysis.State = clampState(sum.valence/n, sum.arousal/n, sum.stress/n, conf)

	total := float64(matched)
	for i, c := range counts {
		analysis.Vector[i] = float64(c) / total
	}
	analysis.PrimaryEmotion = dominantEmotion(counts)
	return analysis, nil
}

// dominantEmotion picks the most frequent label, ties broken by label order.
func dominantEmotion(counts [EmotionDims]int) string {
	best, bestI := 0, 0
	for i, c := range counts {
		if c > best {
			best, bestI = c, i
		}
	}
	return emotionLabels[bestI]
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(fields)
	return fields
}

func clampState(v, a, stress, conf float64) affect.State {
	return affect.State{Valence: v, Arousal: a, Stress: stress, Confidence: conf}.Clamped()
}
