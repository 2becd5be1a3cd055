package domain

import "slices"

// PresetScales returns the built-in grade scales. Each call returns fresh
// copies, so importing or editing a preset never changes the preset list.
func PresetScales() []GradeScale {
	return []GradeScale{
		{
			ID:   "scale-standard",
			Name: "Standard A-F",
			Ranges: []GradeRange{
				{Label: "A", Min: 90, Max: 100},
				{Label: "B", Min: 80, Max: 89},
				{Label: "C", Min: 70, Max: 79},
				{Label: "D", Min: 60, Max: 69},
				{Label: "F", Min: 0, Max: 59},
			},
		},
		{
			ID:   "scale-plus",
			Name: "Plus/Minus",
			Ranges: []GradeRange{
				{Label: "A", Min: 93, Max: 100},
				{Label: "A-", Min: 90, Max: 92},
				{Label: "B+", Min: 87, Max: 89},
				{Label: "B", Min: 83, Max: 86},
				{Label: "B-", Min: 80, Max: 82},
				{Label: "C+", Min: 77, Max: 79},
				{Label: "C", Min: 73, Max: 76},
				{Label: "C-", Min: 70, Max: 72},
				{Label: "D", Min: 60, Max: 69},
				{Label: "F", Min: 0, Max: 59},
			},
		},
	}
}

// FindPreset looks a preset up by ID or name.
func FindPreset(key string) (GradeScale, bool) {
	for _, p := range PresetScales() {
		if p.ID == key || p.Name == key {
			return p, true
		}
	}
	return GradeScale{}, false
}

// CloneScale returns an independent copy of scale under a new ID.
func CloneScale(scale GradeScale) GradeScale {
	return GradeScale{
		ID:     NewID(),
		Name:   scale.Name,
		Ranges: slices.Clone(scale.Ranges),
	}
}
