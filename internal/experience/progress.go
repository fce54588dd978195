// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package experience

// Reward trend labels.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// Learning stages, by convergence score.
const (
	StageExploring = "exploring"
	StageLearning  = "learning"
	StageConfident = "confident"
)

// trendThreshold separates stable from improving/declining.
const trendThreshold = 0.05

// movingAvgWindow is how many recent rewards the moving average covers.
const movingAvgWindow = 10

// convergence score stage cut points
const (
	stageLearningAt  = 0.30
	stageConfidentAt = 0.70
)

// Progress is the analytics view over one user's experience log.
type Progress struct {
	TotalExperiences  int     `json:"total_experiences"`
	CompletionRate    float64 `json:"completion_rate"`
	MovingAvgReward   float64 `json:"moving_avg_reward"`
	RewardTrend       string  `json:"reward_trend"`
	ExplorationCount  int     `json:"exploration_count"`
	ExploitationCount int     `json:"exploitation_count"`
	Epsilon           float64 `json:"epsilon"`
	AvgReward         float64 `json:"avg_reward"`
	ConvergenceScore  float64 `json:"convergence_score"`
	Stage             string  `json:"stage"`
}

// PolicyView is the slice of exploration state the analytics need.
type PolicyView struct {
	Epsilon        float64
	EpsilonInitial float64
	EpsilonMin     float64
	AvgReward      float64
}

// ComputeProgress derives analytics from a user's records, oldest first.
// Pure; safe to call with a snapshot while the log keeps growing.
func ComputeProgress(records []Experience, policy PolicyView) Progress {
	p := Progress{
		TotalExperiences: len(records),
		RewardTrend:      TrendStable,
		Epsilon:          policy.Epsilon,
		AvgReward:        policy.AvgReward,
	}

	completed := 0
	for _, e := range records {
		if e.Completed {
			completed++
		}
		if e.Exploration {
			p.ExplorationCount++
		} else {
			p.ExploitationCount++
		}
	}
	if len(records) > 0 {
		p.CompletionRate = float64(completed) / float64(len(records))
	}

	p.MovingAvgReward = meanReward(tail(records, movingAvgWindow))
	p.RewardTrend = rewardTrend(records)

	p.ConvergenceScore = convergenceScore(len(records), policy)
	switch {
	case p.ConvergenceScore < stageLearningAt:
		p.Stage = StageExploring
	case p.ConvergenceScore < stageConfidentAt:
		p.Stage = StageLearning
	default:
		p.Stage = StageConfident
	}

	return p
}

// rewardTrend compares the mean reward of the last third of the log against
// the prior two-thirds.
func rewardTrend(records []Experience) string {
	if len(records) < 3 {
		return TrendStable
	}

	split := len(records) - len(records)/3
	prior := meanReward(records[:split])
	recent := meanReward(records[split:])

	switch {
	case recent-prior > trendThreshold:
		return TrendImproving
	case prior-recent > trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// convergenceScore blends experience volume, reward level, and how far
// epsilon has decayed:
//
//	0.4*min(1, N/100) + 0.4*(avg_reward+1)/2 + 0.2*(1 - normalized_epsilon)
func convergenceScore(n int, policy PolicyView) float64 {
	volume := float64(n) / 100
	if volume > 1 {
		volume = 1
	}

	rewardLevel := (policy.AvgReward + 1) / 2

	normEps := 1.0
	if span := policy.EpsilonInitial - policy.EpsilonMin; span > 0 {
		normEps = (policy.Epsilon - policy.EpsilonMin) / span
	}
	if normEps < 0 {
		normEps = 0
	}
	if normEps > 1 {
		normEps = 1
	}

	return 0.4*volume + 0.4*rewardLevel + 0.2*(1-normEps)
}

func meanReward(records []Experience) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, e := range records {
		sum += e.Reward
	}
	return sum / float64(len(records))
}

func tail(records []Experience, n int) []Experience {
	if len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}
