package policy

type Kind uint8

const (
	Allow Kind = iota
	SafeRespond
	Refuse
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case SafeRespond:
		return "safe_respond"
	case Refuse:
		return "refuse"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Decision struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}
