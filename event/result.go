package event

type Result uint8

const (
	NotHandled Result = iota
	Handled
)

func (r Result) Or(o Result) Result {
	if r == Handled || o == Handled {
		return Handled
	}
	return NotHandled
}

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "not handled"
}
