package dto

import "vibecoder.app/console/internal/model"

type PutBoardRequest struct {
	Phase  string   `json:"phase"`
	Status string   `json:"status"`
	Tasks  []string `json:"tasks" binding:"omitempty,dive,required"`
}

func (r PutBoardRequest) Snapshot() model.BoardSnapshot {
	return model.BoardSnapshot{
		Phase:  r.Phase,
		Status: r.Status,
		Tasks:  r.Tasks,
	}
}

type BoardResponse struct {
	ThreadID string   `json:"thread_id"`
	Revision int64    `json:"revision"`
	Exists   bool     `json:"exists"`
	Phase    string   `json:"phase,omitempty"`
	Status   string   `json:"status,omitempty"`
	Tasks    []string `json:"tasks"`
}

func ToBoardResponse(thread model.ThreadID, doc model.BoardDocument) BoardResponse {
	resp := BoardResponse{
		ThreadID: thread.String(),
		Revision: doc.Revision,
		Exists:   doc.Exists(),
		Tasks:    []string{},
	}
	if doc.Snapshot != nil {
		resp.Phase = doc.Snapshot.Phase
		resp.Status = doc.Snapshot.Status
		if doc.Snapshot.Tasks != nil {
			resp.Tasks = doc.Snapshot.Tasks
		}
	}
	return resp
}

type WriteBoardResponse struct {
	ThreadID string `json:"thread_id"`
	Revision int64  `json:"revision"`
}
