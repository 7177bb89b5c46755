package domain

// MealComponent is one detected food component of a meal. Values are grams
// and kilocalories. Components are produced by response normalization and
// rehydrated by the meal store; they are never mutated in place.
type MealComponent struct {
	Name         string
	WeightGrams  float64
	EnergyKcal   float64
	ProteinGrams float64
	FatGrams     float64
	CarbGrams    float64
}

// Conversation is a persisted message thread. Meal-detection sessions and
// free-form chats share the same storage, distinguished by IsMealDetection.
type Conversation struct {
	ID              int64
	Title           string
	CreatedAt       int64 // unix milliseconds
	IsMealDetection bool
}

// Message belongs to exactly one conversation and is append-only.
type Message struct {
	ID             int64
	ConversationID int64
	Content        string
	FromUser       bool
	Timestamp      int64 // unix milliseconds
}

// Meal is a confirmed detection result saved by the user.
type Meal struct {
	ID          int64
	PhotoKey    string
	Description string
	Timestamp   int64 // unix milliseconds
}

// UserSettings is the single-row profile backing budget calculation and the
// inference credential.
type UserSettings struct {
	WeightKg             float64
	HeightCm             float64
	Age                  int
	Gender               string // "male" or "female"
	TargetWeeklyChangeKg float64
	ActivityLevel        int    // 1 (sedentary) .. 5 (extremely active)
	Distribution         string // "high_protein", "balanced", "low_fat", "custom"
	CustomProteinPercent int
	CustomFatPercent     int
	CustomCarbPercent    int
	OpenAIAPIKey         string
}
