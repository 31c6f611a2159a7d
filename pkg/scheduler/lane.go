package scheduler

type Lane uint8

const (
	Critical Lane = iota
	Normal
	Background
)

var lanes = [...]Lane{Critical, Normal, Background}

// Lanes returns every lane in execution order.
func Lanes() []Lane {
	return lanes[:]
}

func (l Lane) Weight() uint32 {
	switch l {
	case Critical:
		return 10
	case Normal:
		return 5
	case Background:
		return 1
	default:
		return 0
	}
}

func (l Lane) IsBackground() bool {
	return l == Background
}

func (l Lane) String() string {
	switch l {
	case Critical:
		return "critical"
	case Normal:
		return "normal"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}
