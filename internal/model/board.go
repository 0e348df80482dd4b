package model

// BoardSnapshot is the project board document the agent maintains for a
// thread. Every push replaces the previous snapshot wholesale.
type BoardSnapshot struct {
	Phase  string   `json:"phase,omitempty"`
	Status string   `json:"status,omitempty"`
	Tasks  []string `json:"tasks,omitempty"`
}

// BoardDocument is one delivery from a board source.
// A nil Snapshot means no board exists yet for the thread.
type BoardDocument struct {
	Revision int64
	Snapshot *BoardSnapshot
}

func (d BoardDocument) Exists() bool {
	return d.Snapshot != nil
}

// AbsentBoard is the document delivered for a thread that has no board.
func AbsentBoard(revision int64) BoardDocument {
	return BoardDocument{Revision: revision}
}

// Clone returns a deep copy so callers never share the task slice.
func (s BoardSnapshot) Clone() BoardSnapshot {
	out := s
	if s.Tasks != nil {
		out.Tasks = append([]string(nil), s.Tasks...)
	}
	return out
}
