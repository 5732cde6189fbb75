package valueobjects

import "fmt"

// Tier is the quality band a tutor is placed in by the tiering rules
type Tier struct {
	value string
	rank  int
}

var (
	TierStandard = Tier{value: "standard", rank: 0}
	TierAdvanced = Tier{value: "advanced", rank: 1}
	TierPremium  = Tier{value: "premium", rank: 2}
)

// ParseTier creates a Tier from a raw string
func ParseTier(raw string) (Tier, error) {
	switch raw {
	case TierStandard.value:
		return TierStandard, nil
	case TierAdvanced.value:
		return TierAdvanced, nil
	case TierPremium.value:
		return TierPremium, nil
	default:
		return Tier{}, fmt.Errorf("unknown tier: %q", raw)
	}
}

// String returns the tier name
func (t Tier) String() string {
	return t.value
}

// Equals checks if two Tiers are equal
func (t Tier) Equals(other Tier) bool {
	return t.value == other.value
}

// IsZero checks if the Tier is the zero value
func (t Tier) IsZero() bool {
	return t.value == ""
}

// Above reports whether t outranks other
func (t Tier) Above(other Tier) bool {
	return t.rank > other.rank
}

// MarshalJSON implements json.Marshaler
func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Tier) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("tier must be a string")
	}
	parsed, err := ParseTier(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
