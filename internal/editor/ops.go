package editor

// Op names a long-running editor command.
type Op string

const (
	OpSave     Op = "save"
	OpDelete   Op = "delete"
	OpGenerate Op = "generate"
)

// Phase is a step in a command's lifecycle.
type Phase int

const (
	Started Phase = iota
	Succeeded
	Failed
)

// OpEvent reports a lifecycle step. Err is only read for Failed.
type OpEvent struct {
	Phase Phase
	Err   string
}

// OpState is what the UI renders for one command.
type OpState struct {
	Pending bool
	Err     string
}

// Reduce folds a lifecycle event into the command's UI state.
func Reduce(s OpState, ev OpEvent) OpState {
	switch ev.Phase {
	case Started:
		return OpState{Pending: true}
	case Succeeded:
		return OpState{}
	case Failed:
		return OpState{Err: ev.Err}
	}
	return s
}
