// Package rating implements the adaptive ELO-style rating of learners and
// problems, plus the simpler per-question-type proficiency rating.
// Every function is pure; persistence and ordering of updates belong to the
// caller.
package rating

import "math"

// Engine evaluates the rating formulas for one parameter set.
type Engine struct {
	p Params
}

func New(p Params) *Engine { return &Engine{p: p} }

// Default uses DefaultParams.
var Default = New(DefaultParams())

// Params returns the engine's parameter set.
func (e *Engine) Params() Params { return e.p }

// Update is the outcome of one learner attempt on one problem.
type Update struct {
	NewUserRating    float64 `json:"newUserRating"`
	NewProblemRating float64 `json:"newProblemRating"`
	RatingChange     float64 `json:"ratingChange"`
}

// TypeUpdate is the outcome of one type-rating adjustment.
type TypeUpdate struct {
	NewRating    float64 `json:"newRating"`
	RatingChange float64 `json:"ratingChange"`
}

// ExpectedScore is the logistic win probability of subject against reference.
func (e *Engine) ExpectedScore(subject, reference float64) float64 {
	return 1 / (1 + math.Pow(10, (reference-subject)/e.p.Scale))
}

// UserKFactor shrinks with experience and with rating above the pivot.
func (e *Engine) UserKFactor(submissionCount int, userRating float64) float64 {
	experience := e.p.UserKBase*math.Exp(-float64(submissionCount)/e.p.UserKDecay) + e.p.UserKMin
	stability := clamp((e.p.UserStabilityPivot-userRating)/e.p.UserStabilitySpan,
		e.p.UserStabilityMin, e.p.UserStabilityMax)
	return experience * stability
}

// ProblemKFactor shrinks with submissions and with distance from the centre.
func (e *Engine) ProblemKFactor(submissionCount int, problemRating float64) float64 {
	volume := e.p.ProblemKBase*math.Exp(-float64(submissionCount)/e.p.ProblemKDecay) + e.p.ProblemKMin
	deviation := math.Abs(problemRating - e.p.ProblemCentre)
	stability := clamp((e.p.ProblemStabilitySpan-deviation)/e.p.ProblemStabilitySpan,
		e.p.ProblemStabilityMin, e.p.ProblemStabilityMax)
	return volume * stability
}

// UpdateRatings moves the learner and problem ratings after one attempt
// scored userAccuracy in [0,1]. Both new ratings respect the floor.
//
// With zero accuracy the learner always loses at least ZeroAccuracyPenalty.
// When the floor absorbs that loss, RatingChange still reports it (capped at
// ReportedPenaltyCap) even though NewUserRating equals userRating.
func (e *Engine) UpdateRatings(userRating, problemRating, userAccuracy float64, userSubmissions, problemSubmissions int) Update {
	acc := userAccuracy
	if math.IsNaN(acc) {
		acc = 0
	}
	acc = clamp(acc, 0, 1)

	expected := e.ExpectedScore(userRating, problemRating)
	transformed := transformAccuracy(acc)
	diff := transformed - expected
	surprise := 1 + math.Min(e.p.SurpriseCap, math.Abs(diff))

	userK := e.UserKFactor(userSubmissions, userRating) * surprise
	problemK := e.ProblemKFactor(problemSubmissions, problemRating)

	change := jsRound(userK * diff)
	if acc == 0 {
		change = math.Min(change, -e.p.ZeroAccuracyPenalty)
	}

	newUser := math.Max(e.p.Floor, userRating+change)
	newProblem := math.Max(e.p.Floor, problemRating+jsRound(problemK*(expected-transformed)))

	reported := newUser - userRating
	if acc == 0 && reported >= 0 {
		reported = math.Max(math.Min(change, -e.p.ZeroAccuracyPenalty), -e.p.ReportedPenaltyCap)
	}

	return Update{
		NewUserRating:    newUser,
		NewProblemRating: newProblem,
		RatingChange:     reported,
	}
}

// UpdateTypeRating nudges a per-type proficiency rating toward accuracy.
// submissionCount includes the attempt being applied. accuracy is not clamped.
func (e *Engine) UpdateTypeRating(current, accuracy float64, submissionCount int) TypeUpdate {
	if math.IsNaN(accuracy) {
		accuracy = 0
	}
	base := jsRound((accuracy - 0.5) * e.p.TypeScale)
	k := clamp(e.p.TypeKNumer/(float64(submissionCount)+e.p.TypeKOffset), e.p.TypeKMin, e.p.TypeKMax)
	next := math.Max(e.p.Floor, current+jsRound(base*k))
	return TypeUpdate{NewRating: next, RatingChange: next - current}
}

// transformAccuracy penalises low accuracy and rewards high accuracy
// non-linearly; it is continuous at 0.5.
func transformAccuracy(acc float64) float64 {
	switch {
	case acc == 0:
		return 0
	case acc <= 0.5:
		return acc * 0.5
	default:
		return 0.5 + math.Pow(2*(acc-0.5), 1.5)*0.5
	}
}

// jsRound rounds half toward +Inf, so -2.5 becomes -2.
func jsRound(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	// NaN falls to lo
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ExpectedScore evaluates Default.ExpectedScore.
func ExpectedScore(subject, reference float64) float64 {
	return Default.ExpectedScore(subject, reference)
}

func UserKFactor(submissionCount int, userRating float64) float64 {
	return Default.UserKFactor(submissionCount, userRating)
}

func ProblemKFactor(submissionCount int, problemRating float64) float64 {
	return Default.ProblemKFactor(submissionCount, problemRating)
}

// UpdateRatings evaluates Default.UpdateRatings.
func UpdateRatings(userRating, problemRating, userAccuracy float64, userSubmissions, problemSubmissions int) Update {
	return Default.UpdateRatings(userRating, problemRating, userAccuracy, userSubmissions, problemSubmissions)
}

// UpdateTypeRating evaluates Default.UpdateTypeRating.
func UpdateTypeRating(current, accuracy float64, submissionCount int) TypeUpdate {
	return Default.UpdateTypeRating(current, accuracy, submissionCount)
}
