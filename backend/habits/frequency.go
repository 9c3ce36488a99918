package habits

// Frequency is the cadence of a habit. It is stored as a plain string on
// the habit row, so values arriving from old rows or external writers may
// be anything; Normalize folds every unrecognized value to daily rather
// than erroring.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Normalize returns the frequency itself for the three known cadences and
// Daily for anything else.
func (f Frequency) Normalize() Frequency {
	switch f {
	case Daily, Weekly, Monthly:
		return f
	default:
		return Daily
	}
}

func (f Frequency) String() string {
	return string(f)
}
