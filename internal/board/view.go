package board

import "vibecoder.app/console/internal/model"

// Defaults shown before a board exists, or for any field the board leaves
// empty.
const (
	DefaultPhase  = "Discovery"
	DefaultStatus = "Waiting for mission brief..."
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateAttached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateAttached:
		return "attached"
	default:
		return "unknown"
	}
}

// View is what the console renders for the board.
type View struct {
	State    State
	ThreadID model.ThreadID
	Phase    string
	Status   string
	Tasks    []string
	// Exists is false while no board document has been written for the thread.
	Exists   bool
	Revision int64
}

// Loading reports whether the board has not yet received its first delivery.
func (v View) Loading() bool {
	return v.State == StateLoading
}

func defaultView(state State, thread model.ThreadID) View {
	return View{
		State:    state,
		ThreadID: thread,
		Phase:    DefaultPhase,
		Status:   DefaultStatus,
		Tasks:    []string{},
	}
}

// viewOf maps a delivered document onto the rendered view. Each field falls
// back to its default on its own.
func viewOf(thread model.ThreadID, doc model.BoardDocument) View {
	v := defaultView(StateAttached, thread)
	v.Revision = doc.Revision
	if !doc.Exists() {
		return v
	}
	v.Exists = true
	if doc.Snapshot.Phase != "" {
		v.Phase = doc.Snapshot.Phase
	}
	if doc.Snapshot.Status != "" {
		v.Status = doc.Snapshot.Status
	}
	if doc.Snapshot.Tasks != nil {
		v.Tasks = append([]string{}, doc.Snapshot.Tasks...)
	}
	return v
}
