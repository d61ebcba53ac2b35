package rating

// Params holds every tunable of the rating engine. DefaultParams returns the
// production values; tests and experiments may inject their own.
type Params struct {
	Floor         float64 // no rating ever drops below this
	DefaultRating float64 // rating of a learner, problem or type with no history
	Scale         float64 // logistic scale of ExpectedScore

	// user K-factor: (UserKBase*exp(-n/UserKDecay) + UserKMin) * stability
	UserKBase          float64
	UserKDecay         float64
	UserKMin           float64
	UserStabilityPivot float64
	UserStabilitySpan  float64
	UserStabilityMin   float64
	UserStabilityMax   float64

	// problem K-factor: (ProblemKBase*exp(-n/ProblemKDecay) + ProblemKMin) * stability
	ProblemKBase         float64
	ProblemKDecay        float64
	ProblemKMin          float64
	ProblemCentre        float64
	ProblemStabilitySpan float64
	ProblemStabilityMin  float64
	ProblemStabilityMax  float64

	SurpriseCap float64

	// zero accuracy always costs at least ZeroAccuracyPenalty; the change
	// reported at the floor is capped at ReportedPenaltyCap
	ZeroAccuracyPenalty float64
	ReportedPenaltyCap  float64

	TypeScale   float64
	TypeKNumer  float64
	TypeKOffset float64
	TypeKMin    float64
	TypeKMax    float64
}

func DefaultParams() Params {
	return Params{
		Floor:         1000,
		DefaultRating: 1500,
		Scale:         350,

		UserKBase:          100,
		UserKDecay:         25,
		UserKMin:           20,
		UserStabilityPivot: 1800,
		UserStabilitySpan:  300,
		UserStabilityMin:   0.5,
		UserStabilityMax:   1.5,

		ProblemKBase:         60,
		ProblemKDecay:        40,
		ProblemKMin:          10,
		ProblemCentre:        1500,
		ProblemStabilitySpan: 800,
		ProblemStabilityMin:  0.5,
		ProblemStabilityMax:  1.0,

		SurpriseCap: 0.5,

		ZeroAccuracyPenalty: 10,
		ReportedPenaltyCap:  30,

		TypeScale:   100,
		TypeKNumer:  50,
		TypeKOffset: 10,
		TypeKMin:    0.3,
		TypeKMax:    1.0,
	}
}
