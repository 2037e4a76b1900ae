package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"dilemma-arena/internal/domain"
)

// StaticSource serves the built-in dilemma set: one fully written scenario
// plus generated variations covering the remaining categories.
type StaticSource struct {
	rnd *rand.Rand
}

func NewStaticSource() *StaticSource {
	return &StaticSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *StaticSource) LoadDilemmas(_ context.Context) ([]domain.Dilemma, error) {
	dilemmas := []domain.Dilemma{misleadingEmail()}
	dilemmas = append(dilemmas, s.generated()...)
	return dilemmas, nil
}

func misleadingEmail() domain.Dilemma {
	return domain.Dilemma{
		ID:          "1",
		Title:       "The Misleading Email",
		Description: "A colleague sent falsified figures to a VIP client to close a $2M contract. The client has already signed.",
		Context:     "The company was about to lay off 40 people. The contract saved every job.",
		Category:    "Integrity",
		Difficulty:  "hard",
		Options: []domain.Option{
			{
				ID:           "a",
				Text:         "Report it immediately to the client and the board",
				OverallScore: 94,
				Feedback:     "You put absolute truth first, despite the high human cost.",
				Frameworks: []domain.FrameworkScore{
					{Framework: domain.Deontology, Score: 100, Explanation: "Lying is always wrong"},
					{Framework: domain.Utilitarianism, Score: 30, Explanation: "Triggers mass layoffs"},
					{Framework: domain.Virtue, Score: 95, Explanation: "Exemplary courage"},
					{Framework: domain.Consequentialism, Score: 25, Explanation: "Harmful outcomes"},
					{Framework: domain.Relativism, Score: 40, Explanation: "Depends on context"},
				},
				Values: []domain.ValueScore{
					{Value: "Integrity", Alignment: 100, Explanation: "Total"},
					{Value: "Social responsibility", Alignment: 20, Explanation: "Harms bystanders"},
					{Value: "Justice", Alignment: 95, Explanation: "Very high"},
					{Value: "Courage", Alignment: 100, Explanation: "Exemplary"},
					{Value: "Compassion", Alignment: 20, Explanation: "Low"},
				},
				CulturalImpact: "Severe internal crisis",
			},
			{
				ID:           "b",
				Text:         "Give the colleague 48 hours to fix it themselves",
				OverallScore: 88,
				Feedback:     "A restorative approach with the least damage.",
				Frameworks: []domain.FrameworkScore{
					{Framework: domain.Deontology, Score: 70, Explanation: "Postpones the truth"},
					{Framework: domain.Utilitarianism, Score: 92, Explanation: "Maximizes well-being"},
					{Framework: domain.Virtue, Score: 85, Explanation: "Compassion with courage"},
					{Framework: domain.Consequentialism, Score: 90, Explanation: "Good outcomes"},
					{Framework: domain.Relativism, Score: 85, Explanation: "Favorable context"},
				},
				Values: []domain.ValueScore{
					{Value: "Integrity", Alignment: 85, Explanation: "With repair"},
					{Value: "Empathy", Alignment: 95, Explanation: "Considers people"},
					{Value: "Opportunity", Alignment: 90, Explanation: "Second chance"},
					{Value: "Responsibility", Alignment: 80, Explanation: "Shared"},
					{Value: "Trust", Alignment: 75, Explanation: "Moderate"},
				},
				CulturalImpact: "Preserves climate with a chance to correct",
			},
			{
				ID:           "c",
				Text:         "Ignore it and pretend you never saw it",
				OverallScore: 32,
				Feedback:     "You compromised essential values.",
				Frameworks: []domain.FrameworkScore{
					{Framework: domain.Deontology, Score: 10, Explanation: "Violates the duty of honesty"},
					{Framework: domain.Utilitarianism, Score: 50, Explanation: "Keeps jobs"},
					{Framework: domain.Virtue, Score: 15, Explanation: "Lack of courage"},
					{Framework: domain.Consequentialism, Score: 55, Explanation: "Avoids immediate harm"},
					{Framework: domain.Relativism, Score: 60, Explanation: "Depends on perspective"},
				},
				Values: []domain.ValueScore{
					{Value: "Integrity", Alignment: 10, Explanation: "Serious violation"},
					{Value: "Courage", Alignment: 5, Explanation: "None"},
					{Value: "Loyalty", Alignment: 40, Explanation: "False"},
					{Value: "Honesty", Alignment: 5, Explanation: "Violated"},
					{Value: "Responsibility", Alignment: 10, Explanation: "Evaded"},
				},
				CulturalImpact: "Normalizes ethical drift",
			},
			{
				ID:           "d",
				Text:         "Disclose internally only and monitor the account",
				OverallScore: 78,
				Feedback:     "You protected the company but left the client in the dark.",
				Frameworks: []domain.FrameworkScore{
					{Framework: domain.Deontology, Score: 45, Explanation: "Deceives the client"},
					{Framework: domain.Utilitarianism, Score: 80, Explanation: "Good balance"},
					{Framework: domain.Virtue, Score: 70, Explanation: "Prudence"},
					{Framework: domain.Consequentialism, Score: 75, Explanation: "Positive outcomes"},
					{Framework: domain.Relativism, Score: 80, Explanation: "Favorable context"},
				},
				Values: []domain.ValueScore{
					{Value: "Internal loyalty", Alignment: 90, Explanation: "Protects the team"},
					{Value: "Integrity", Alignment: 50, Explanation: "Partial"},
					{Value: "Transparency", Alignment: 40, Explanation: "Limited"},
					{Value: "Responsibility", Alignment: 70, Explanation: "Shared"},
					{Value: "Prudence", Alignment: 85, Explanation: "High"},
				},
				CulturalImpact: "Culture of secrets",
			},
		},
		LearningObjective: "Weigh absolute honesty against the human cost of disclosure.",
	}
}

var generatedCategories = []string{
	"Obedience vs Conscience",
	"Conflict of Interest",
	"Confidentiality vs Friendship",
	"Fairness vs Diversity",
	"Merit vs Relationships",
	"Justice vs Results",
	"Transparency vs Survival",
	"Innovation vs Safety",
	"Efficiency vs Humanity",
	"Profit vs Sustainability",
}

// generated synthesizes the rest of the catalog from three option profiles
// (principled, balanced, self-interested) with jittered overall scores.
func (s *StaticSource) generated() []domain.Dilemma {
	dilemmas := make([]domain.Dilemma, 0, 29)
	for i := 2; i <= 30; i++ {
		category := generatedCategories[(i-2)%len(generatedCategories)]
		dilemmas = append(dilemmas, domain.Dilemma{
			ID:          fmt.Sprintf("%d", i),
			Title:       fmt.Sprintf("Dilemma %d: %s", i, category),
			Description: fmt.Sprintf("You face a difficult situation involving %s.", strings.ToLower(category)),
			Context:     "A demanding professional setting that calls for an ethical decision.",
			Category:    category,
			Difficulty:  "medium",
			Options: []domain.Option{
				{
					ID:           "a",
					Text:         "Hold to absolute ethical principles",
					OverallScore: 85 + s.rnd.Intn(15),
					Feedback:     "You stood by your ethical principles.",
					Frameworks: []domain.FrameworkScore{
						{Framework: domain.Deontology, Score: 95, Explanation: "Follows moral rules"},
						{Framework: domain.Utilitarianism, Score: 70, Explanation: "Good overall outcome"},
						{Framework: domain.Virtue, Score: 90, Explanation: "Demonstrates virtue"},
						{Framework: domain.Consequentialism, Score: 75, Explanation: "Positive consequences"},
						{Framework: domain.Relativism, Score: 60, Explanation: "Depends on context"},
					},
					Values: []domain.ValueScore{
						{Value: "Integrity", Alignment: 95, Explanation: "Total"},
						{Value: "Courage", Alignment: 90, Explanation: "High"},
						{Value: "Justice", Alignment: 85, Explanation: "High"},
						{Value: "Honesty", Alignment: 95, Explanation: "Total"},
						{Value: "Responsibility", Alignment: 85, Explanation: "High"},
					},
					CulturalImpact: "Reinforces an ethical culture",
				},
				{
					ID:           "b",
					Text:         "Balance principles against pragmatism",
					OverallScore: 80 + s.rnd.Intn(15),
					Feedback:     "You found a sensible middle ground.",
					Frameworks: []domain.FrameworkScore{
						{Framework: domain.Deontology, Score: 75, Explanation: "Respects principles"},
						{Framework: domain.Utilitarianism, Score: 85, Explanation: "Maximizes well-being"},
						{Framework: domain.Virtue, Score: 85, Explanation: "Prudence and courage"},
						{Framework: domain.Consequentialism, Score: 85, Explanation: "Good outcomes"},
						{Framework: domain.Relativism, Score: 80, Explanation: "Fits the context"},
					},
					Values: []domain.ValueScore{
						{Value: "Wisdom", Alignment: 90, Explanation: "Very high"},
						{Value: "Balance", Alignment: 95, Explanation: "Strong"},
						{Value: "Pragmatism", Alignment: 85, Explanation: "High"},
						{Value: "Responsibility", Alignment: 80, Explanation: "High"},
						{Value: "Compassion", Alignment: 80, Explanation: "High"},
					},
					CulturalImpact: "A balanced, mature culture",
				},
				{
					ID:           "c",
					Text:         "Put personal or company interests first",
					OverallScore: 45 + s.rnd.Intn(25),
					Feedback:     "You chose immediate gains.",
					Frameworks: []domain.FrameworkScore{
						{Framework: domain.Deontology, Score: 30, Explanation: "Violates principles"},
						{Framework: domain.Utilitarianism, Score: 60, Explanation: "Limited benefit"},
						{Framework: domain.Virtue, Score: 35, Explanation: "Lack of virtue"},
						{Framework: domain.Consequentialism, Score: 50, Explanation: "Mixed outcomes"},
						{Framework: domain.Relativism, Score: 70, Explanation: "Depends on the viewpoint"},
					},
					Values: []domain.ValueScore{
						{Value: "Profit", Alignment: 90, Explanation: "High"},
						{Value: "Efficiency", Alignment: 85, Explanation: "High"},
						{Value: "Integrity", Alignment: 20, Explanation: "Low"},
						{Value: "Transparency", Alignment: 10, Explanation: "Very low"},
						{Value: "Justice", Alignment: 30, Explanation: "Low"},
					},
					CulturalImpact: "A results-at-any-cost culture",
				},
			},
			LearningObjective: fmt.Sprintf("Recognize the trade-offs behind %s.", strings.ToLower(category)),
		})
	}
	return dilemmas
}
