package viewer

// State is the one thing a result view shows at a time.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateError
	StateResult
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateResult:
		return "result"
	default:
		return "empty"
	}
}

// DeriveState picks the render state. An error wins over loading, and
// loading wins over data.
func DeriveState(loading bool, errMessage string, hasData bool) State {
	switch {
	case errMessage != "":
		return StateError
	case loading:
		return StateLoading
	case hasData:
		return StateResult
	default:
		return StateEmpty
	}
}
