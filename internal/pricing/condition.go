package pricing

// Condition describes the physical state a seller reports for a figure.
type Condition string

const (
	ConditionOVP       Condition = "ovp"
	ConditionNewOpen   Condition = "new_open"
	ConditionVeryGood  Condition = "very_good"
	ConditionGood      Condition = "good"
	ConditionPlayed    Condition = "played"
	ConditionDefective Condition = "defective"
)

// conditionFactors scale the market quantiles, which reflect typical used
// condition, to the requested one.
var conditionFactors = map[Condition]float64{
	ConditionOVP:       1.35,
	ConditionNewOpen:   1.20,
	ConditionVeryGood:  1.00,
	ConditionGood:      0.90,
	ConditionPlayed:    0.75,
	ConditionDefective: 0.35,
}

// ConditionFactor returns the multiplier for a condition; unknown conditions
// fall back to the "good" factor.
func ConditionFactor(c Condition) float64 {
	if f, ok := conditionFactors[c]; ok {
		return f
	}
	return conditionFactors[ConditionGood]
}

// ValidCondition reports whether c names a known condition.
func ValidCondition(c Condition) bool {
	_, ok := conditionFactors[c]
	return ok
}

// Conditions lists the known condition names, best first.
func Conditions() []Condition {
	return []Condition{
		ConditionOVP,
		ConditionNewOpen,
		ConditionVeryGood,
		ConditionGood,
		ConditionPlayed,
		ConditionDefective,
	}
}
