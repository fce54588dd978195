// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/moodloop/moodloop/internal/affect"
	"github.com/moodloop/moodloop/internal/validation"
)

// maxBodyBytes caps request payloads; affect states and feedback are tiny.
const maxBodyBytes = 1 << 20

// stateInput is the wire shape of a continuous affect state.
type stateInput struct {
	Valence    float64 `json:"valence" validate:"gte=-1,lte=1"`
	Arousal    float64 `json:"arousal" validate:"gte=-1,lte=1"`
	Stress     float64 `json:"stress" validate:"gte=0,lte=1"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

func (s stateInput) toState() affect.State {
	return affect.State{
		Valence:    s.Valence,
		Arousal:    s.Arousal,
		Stress:     s.Stress,
		Confidence: s.Confidence,
	}
}

// desiredInput is the optional client-supplied target state.
type desiredInput struct {
	TargetValence float64 `json:"target_valence" validate:"gte=-1,lte=1"`
	TargetArousal float64 `json:"target_arousal" validate:"gte=-1,lte=1"`
	TargetStress  float64 `json:"target_stress" validate:"gte=0,lte=1"`
	Intensity     string  `json:"intensity" validate:"omitempty,oneof=subtle moderate significant"`
}

func (d desiredInput) toDesired() affect.Desired {
	return affect.Desired{
		TargetValence: d.TargetValence,
		TargetArousal: d.TargetArousal,
		TargetStress:  d.TargetStress,
		Intensity:     affect.Intensity(d.Intensity),
		Reason:        "client-specified target",
	}
}

type analyzeRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Text   string `json:"text" validate:"required,max=4096"`
}

type recommendRequest struct {
	UserID       string        `json:"user_id" validate:"required,max=128"`
	CurrentState stateInput    `json:"current_state" validate:"required"`
	DesiredState *desiredInput `json:"desired_state,omitempty"`
	Limit        int           `json:"limit" validate:"gte=0,lte=100"`
}

type feedbackRequest struct {
	UserID          string     `json:"user_id" validate:"required,max=128"`
	ContentID       string     `json:"content_id" validate:"required,max=256"`
	ActualPostState stateInput `json:"actual_post_state" validate:"required"`
	WatchDuration   float64    `json:"watch_duration" validate:"gte=0"`
	TotalDuration   float64    `json:"total_duration" validate:"gte=0"`
	Completed       bool       `json:"completed"`
	Rating          *float64   `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// A false return means the error response has already been written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondInvalid(w, "malformed JSON body", nil)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondInvalid(w, verr.Error(), verr.Details())
		return false
	}
	return true
}
