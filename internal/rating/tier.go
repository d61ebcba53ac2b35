package rating

import "strconv"

// Tier is the display band of a rating.
type Tier struct {
	Class string `json:"class"`
	Title string `json:"title"`
}

var tiers = []struct {
	min  float64
	tier Tier
}{
	{3000, Tier{"rate-admin", "Admin"}},
	{2400, Tier{"rate-target", "Target"}},
	{2100, Tier{"rate-grandmaster", "Grandmaster"}},
	{1900, Tier{"rate-master", "Master"}},
	{1600, Tier{"rate-candidate-master", "Candidate Master"}},
	{1300, Tier{"rate-expert", "Expert"}},
	{1000, Tier{"rate-amateur", "Amateur"}},
}

// TierFor maps a rating to its band. A zero rating means unrated.
func TierFor(r float64) Tier {
	if r == 0 {
		return Tier{Title: "Unrated"}
	}
	for _, t := range tiers {
		if r >= t.min {
			return t.tier
		}
	}
	return Tier{"rate-newbie", "Newbie"}
}

// Format renders a rating as a whole number, or "" when unrated.
func Format(r float64) string {
	if r == 0 {
		return ""
	}
	return strconv.FormatFloat(jsRound(r), 'f', 0, 64)
}
