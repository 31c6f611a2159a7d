package throttle

type Level uint8

const (
	Normal Level = iota
	Throttled
	Survival
)

func (l Level) AllowsBackground() bool {
	return l != Survival
}

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Throttled:
		return "throttled"
	case Survival:
		return "survival"
	default:
		return "unknown"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
