package helper

import "math"

// Number is any numeric type the helpers accept.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Sum adds up values. An empty slice sums to zero.
func Sum[T Number](values []T) T {
	var total T
	for _, v := range values {
		total += v
	}
	return total
}

// Average returns the arithmetic mean, or 0 for an empty slice.
func Average[T Number](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	return float64(Sum(values)) / float64(len(values))
}

// Clamp limits value to [min, max].
func Clamp(value, min, max float64) float64 {
	return math.Min(math.Max(value, min), max)
}

// Round rounds half-up to the given number of decimal places.
func Round(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(value*p+0.5) / p
}

// NonZero returns v, or 1 when v is zero. Used for every denominator that
// could be empty so results stay numeric.
func NonZero[T Number](v T) T {
	if v == 0 {
		return 1
	}
	return v
}
