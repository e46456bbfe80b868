package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/tasklist/internal/tasks"
)

type taskTextRequest struct {
	Text *string `json:"text" validate:"required"`
}

type taskResponse struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type taskMessageResponse struct {
	Message string        `json:"message"`
	Task    *taskResponse `json:"task,omitempty"`
}

func newTaskResponse(t tasks.Task) taskResponse {
	return taskResponse{ID: t.ID, Text: t.Text}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tasks.List(r.Context())
	if err != nil {
		s.respondTaskError(w, r, "list", err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, newTaskResponse(t))
	}
	s.observeTaskOp("list", "ok")
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	text, err := decodeTaskText(r, "Missing or empty 'text' field")
	if err != nil {
		s.respondTaskError(w, r, "add", err)
		return
	}
	task, err := s.tasks.Add(r.Context(), text)
	if err != nil {
		s.respondTaskError(w, r, "add", err)
		return
	}
	s.observeTaskOp("add", "ok")
	resp := newTaskResponse(task)
	respondJSON(w, http.StatusCreated, taskMessageResponse{Message: "Task added", Task: &resp})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(r)
	if !ok {
		s.respondTaskError(w, r, "update", tasks.ErrTaskNotFound)
		return
	}
	text, err := decodeTaskText(r, "Missing 'text' field")
	if err != nil {
		s.respondTaskError(w, r, "update", err)
		return
	}
	task, err := s.tasks.Update(r.Context(), id, text)
	if err != nil {
		s.respondTaskError(w, r, "update", err)
		return
	}
	s.observeTaskOp("update", "ok")
	resp := newTaskResponse(task)
	respondJSON(w, http.StatusOK, taskMessageResponse{Message: "Task updated", Task: &resp})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(r)
	if !ok {
		s.respondTaskError(w, r, "delete", tasks.ErrTaskNotFound)
		return
	}
	if err := s.tasks.Delete(r.Context(), id); err != nil {
		s.respondTaskError(w, r, "delete", err)
		return
	}
	s.observeTaskOp("delete", "ok")
	respondJSON(w, http.StatusOK, taskMessageResponse{Message: "Task deleted"})
}

// decodeTaskText requires a JSON object carrying a string "text" field.
func decodeTaskText(r *http.Request, message string) (string, error) {
	var req taskTextRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", tasks.NewValidationError("text", message)
	}
	if err := validate.Struct(req); err != nil {
		return "", tasks.NewValidationError("text", message)
	}
	return *req.Text, nil
}

// taskIDParam parses the {id} path segment. A non-integer id names no task.
func taskIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) respondTaskError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *tasks.ValidationError
	switch {
	case errors.As(err, &verr):
		s.observeTaskOp(op, "invalid")
		respondError(w, http.StatusBadRequest, "invalid_request", verr.Message)
	case errors.Is(err, tasks.ErrTaskNotFound):
		s.observeTaskOp(op, "not_found")
		respondError(w, http.StatusNotFound, "task_not_found", "Task not found")
	default:
		s.observeTaskOp(op, "error")
		s.logger.ErrorContext(r.Context(), "task operation failed", "op", op, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (s *Server) observeTaskOp(op, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTaskOp(op, outcome)
	}
}
