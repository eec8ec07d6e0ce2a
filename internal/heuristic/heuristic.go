// Package heuristic classifies mood from text with keyword matching. No model call.
package heuristic

import (
	"fmt"
	"strings"
)

// Category is the coarse outcome of a keyword classification
type Category string

const (
	Positive Category = "Positive"
	Negative Category = "Negative"
	Anxious  Category = "Anxious"
	Neutral  Category = "Neutral"
)

const (
	baseStress     = 35
	negativeStress = 12
	anxiousStress  = 15
	positiveRelief = 10
	minStress      = 10
	maxStress      = 95
)

var positiveKeywords = []string{
	"happy", "joy", "great", "good", "calm", "relaxed", "grateful", "thankful",
	"excited", "love", "peaceful", "hopeful", "proud", "content", "wonderful",
	"amazing", "better", "energized", "motivated",
}

var negativeKeywords = []string{
	"sad", "angry", "tired", "exhausted", "lonely", "depressed", "upset",
	"hopeless", "hate", "cry", "awful", "terrible", "frustrated", "hurt",
	"miserable", "stressed", "overwhelmed", "burned out", "worthless",
}

var anxiousKeywords = []string{
	"anxious", "anxiety", "worried", "worry", "nervous", "panic", "scared",
	"afraid", "fear", "restless", "tense", "on edge", "can't sleep", "uneasy",
}

// Result is a keyword classification of one text
type Result struct {
	Category      Category `json:"category"`
	Mood          string   `json:"mood"`
	StressLevel   int      `json:"stressLevel"`
	PositiveCount int      `json:"positiveCount"`
	NegativeCount int      `json:"negativeCount"`
	AnxiousCount  int      `json:"anxiousCount"`
	Summary       string   `json:"summary"`
}

// Classify counts keyword hits and picks a category.
// Positive or negative win only with a strict majority; any anxious hit beats a tie.
func Classify(text string) Result {
	lower := strings.ToLower(text)

	r := Result{
		PositiveCount: countHits(lower, positiveKeywords),
		NegativeCount: countHits(lower, negativeKeywords),
		AnxiousCount:  countHits(lower, anxiousKeywords),
	}

	switch {
	case r.PositiveCount > r.NegativeCount && r.PositiveCount > r.AnxiousCount:
		r.Category = Positive
		r.Mood = "happy"
		r.Summary = "Your words sound mostly positive."
	case r.NegativeCount > r.PositiveCount && r.NegativeCount > r.AnxiousCount:
		r.Category = Negative
		r.Mood = "stressed"
		r.Summary = "Your words suggest you are having a hard time."
	case r.AnxiousCount > 0:
		r.Category = Anxious
		r.Mood = "anxious"
		r.Summary = "Your words suggest some worry or tension."
	default:
		r.Category = Neutral
		r.Mood = "neutral"
		r.Summary = "No strong mood signals detected."
	}

	r.StressLevel = stressLevel(r.PositiveCount, r.NegativeCount, r.AnxiousCount)
	return r
}

// Scores derives a mood score mapping for the category that satisfies the record schema
func (r Result) Scores() map[string]float64 {
	switch r.Category {
	case Positive:
		return map[string]float64{"happy": 0.5, "calm": 0.3, "stressed": 0.1, "anxious": 0.1}
	case Negative:
		return map[string]float64{"happy": 0.1, "calm": 0.1, "stressed": 0.5, "anxious": 0.2, "sad": 0.1}
	case Anxious:
		return map[string]float64{"happy": 0.1, "calm": 0.1, "stressed": 0.3, "anxious": 0.5}
	default:
		return map[string]float64{"happy": 0.25, "calm": 0.25, "stressed": 0.25, "anxious": 0.25}
	}
}

// Describe renders the result as a one-line summary for storage
func (r Result) Describe() string {
	return fmt.Sprintf("%s (stress %d/100, estimated offline)", r.Summary, r.StressLevel)
}

func stressLevel(pos, neg, anx int) int {
	level := baseStress + negativeStress*neg + anxiousStress*anx - positiveRelief*pos
	if level < minStress {
		return minStress
	}
	if level > maxStress {
		return maxStress
	}
	return level
}

func countHits(text string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	return count
}
