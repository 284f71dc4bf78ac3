package domain

// TimeHorizon classifies the intended holding period of a trade.
// Two trades can only be netted against each other when their horizons match.
type TimeHorizon string

const (
	HorizonShort TimeHorizon = "Short"
	HorizonMid   TimeHorizon = "Mid"
	HorizonLong  TimeHorizon = "Long"
)

// IsValid reports whether the horizon is one of the known values.
func (h TimeHorizon) IsValid() bool {
	switch h {
	case HorizonShort, HorizonMid, HorizonLong:
		return true
	}
	return false
}
