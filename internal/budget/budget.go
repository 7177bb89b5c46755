// Package budget computes daily calorie and macronutrient targets from body
// metrics. It is a pure function of its input and performs no I/O.
package budget

import "math"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Distribution string

const (
	HighProtein Distribution = "high_protein"
	Balanced    Distribution = "balanced"
	LowFat      Distribution = "low_fat"
	Custom      Distribution = "custom"
)

// activityMultipliers maps activity level 1 (sedentary) through 5 (extremely
// active) onto the TDEE multiplier.
var activityMultipliers = [...]float64{1.2, 1.375, 1.55, 1.725, 1.9}

type Input struct {
	WeightKg             float64
	HeightCm             float64
	Age                  int
	Gender               Gender
	TargetWeeklyChangeKg float64 // negative to lose weight
	ActivityLevel        int     // 1..5; out-of-range values fall back to sedentary
	Distribution         Distribution
	CustomProteinPercent int
	CustomFatPercent     int
	CustomCarbPercent    int
}

type Budget struct {
	BMR           int
	TDEE          int
	DailyDeficit  int
	DailyCalories int
	ProteinGrams  int
	FatGrams      int
	CarbGrams     int
}

// Calculate derives the daily budget: Mifflin-St Jeor BMR, TDEE by activity
// multiplier, a deficit spread from the weekly weight-change target
// (7700 kcal per kg), a gender-specific calorie floor, then a protein-first
// macro split. Custom percentages that do not sum to 100 are renormalized
// rather than rejected.
func Calculate(in Input) Budget {
	bmr := 10*in.WeightKg + 6.25*in.HeightCm - 5*float64(in.Age) + 5
	if in.Gender == GenderFemale {
		bmr = 10*in.WeightKg + 6.25*in.HeightCm - 5*float64(in.Age) - 161
	}

	lvl := in.ActivityLevel
	if lvl < 1 || lvl > len(activityMultipliers) {
		lvl = 1
	}
	tdee := bmr * activityMultipliers[lvl-1]

	deficit := in.TargetWeeklyChangeKg * 7700 / 7

	floor := math.Max(1500, bmr*0.75)
	if in.Gender == GenderFemale {
		floor = math.Max(1200, bmr*0.70)
	}

	calories := math.Max(tdee+deficit, floor)

	targetWeight := math.Max(in.WeightKg+in.TargetWeeklyChangeKg, 30)

	var proteinGrams, fatP, carbP float64
	switch in.Distribution {
	case Balanced:
		proteinGrams = targetWeight * 1.8
		fatP, carbP = 35, 35
	case LowFat:
		proteinGrams = targetWeight * 2.0
		fatP, carbP = 20, 50
	case Custom:
		total := in.CustomProteinPercent + in.CustomFatPercent + in.CustomCarbPercent
		factor := 1.0
		if total != 100 && total > 0 {
			factor = 100 / float64(total)
		}
		proteinGrams = calories * float64(in.CustomProteinPercent) * factor / 100 / 4
		fatP = float64(in.CustomFatPercent) * factor
		carbP = float64(in.CustomCarbPercent) * factor
	default: // high protein
		proteinGrams = targetWeight * 2.2
		fatP, carbP = 30, 30
	}

	remaining := calories - proteinGrams*4
	fatGrams := remaining * fatP / (fatP + carbP) / 9
	carbGrams := remaining * carbP / (fatP + carbP) / 4

	return Budget{
		BMR:           int(bmr),
		TDEE:          int(tdee),
		DailyDeficit:  int(deficit),
		DailyCalories: int(calories),
		ProteinGrams:  int(proteinGrams),
		FatGrams:      int(fatGrams),
		CarbGrams:     int(carbGrams),
	}
}
