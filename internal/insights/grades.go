// Package insights derives presentation values from a planner snapshot.
//
// Every function here is pure: it reads the records it is given and
// returns fresh values. Callers recompute on each read; nothing is cached.
package insights

import (
	"math"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
)

// ClassGrade is a class with its assignments and weighted average
type ClassGrade struct {
	Class           domain.ClassItem    `json:"class"`
	Assignments     []domain.Assignment `json:"assignments"`
	WeightedAverage float64             `json:"weightedAverage"`
	Points          float64             `json:"points"`
}

// WeightedAverage computes sum(grade*weight)/totalWeight over assignments.
// Missing grades count as 0 and a zero total weight is replaced by 1, so an
// empty or weightless class averages 0.
func WeightedAverage(assignments []domain.Assignment) float64 {
	weights := make([]float64, len(assignments))
	for i, a := range assignments {
		weights[i] = a.Weight
	}
	totalWeight := helper.NonZero(helper.Sum(weights))

	var avg float64
	for _, a := range assignments {
		avg += a.GradeOrZero() * a.Weight / totalWeight
	}
	return avg
}

// ClassGrades groups assignments by class and computes each weighted average.
func ClassGrades(classes []domain.ClassItem, assignments []domain.Assignment) []ClassGrade {
	byClass := make(map[string][]domain.Assignment)
	for _, a := range assignments {
		byClass[a.ClassID] = append(byClass[a.ClassID], a)
	}

	grades := make([]ClassGrade, 0, len(classes))
	for _, c := range classes {
		own := byClass[c.ID]
		avg := WeightedAverage(own)
		grades = append(grades, ClassGrade{
			Class:           c,
			Assignments:     own,
			WeightedAverage: avg,
			Points:          GPAPoints(avg),
		})
	}
	return grades
}

// GPAPoints maps a percentage average to grade points on a 0-4 scale.
// The active grade scale is never consulted.
func GPAPoints(avg float64) float64 {
	switch {
	case avg >= 90:
		return 4
	case avg >= 80:
		return 3
	case avg >= 70:
		return 2
	case avg >= 60:
		return 1
	}
	return 0
}

// OverallGPA is the credit-weighted mean of class grade points, rounded to
// two decimals.
func OverallGPA(grades []ClassGrade) float64 {
	var credits, points float64
	for _, g := range grades {
		credits += float64(g.Class.Credits)
		points += GPAPoints(g.WeightedAverage) * float64(g.Class.Credits)
	}
	return helper.Round(points/helper.NonZero(credits), 2)
}

// WhatIf appends a hypothetical score (clamped to 0-100) to every
// assignment grade and returns the plain mean rounded to one decimal.
// This is deliberately unweighted and separate from OverallGPA.
func WhatIf(assignments []domain.Assignment, score float64) float64 {
	values := make([]float64, 0, len(assignments)+1)
	for _, a := range assignments {
		values = append(values, a.GradeOrZero())
	}
	values = append(values, helper.Clamp(score, 0, 100))
	return helper.Round(helper.Average(values), 1)
}

// GPAProgress is the percentage of target reached, capped at 100.
func GPAProgress(gpa, target float64) float64 {
	return math.Min(gpa/helper.NonZero(target)*100, 100)
}

// LetterFor returns the label of the first range containing avg. Only used
// for display next to a weighted average.
func LetterFor(scale domain.GradeScale, avg float64) (string, bool) {
	rounded := math.Round(avg)
	for _, r := range scale.Ranges {
		if rounded >= r.Min && rounded <= r.Max {
			return r.Label, true
		}
	}
	return "", false
}
