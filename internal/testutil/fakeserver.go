package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"todoctl/internal/service"
)

// FakeServer serves a FakeService over the store's HTTP+JSON API.
type FakeServer struct {
	*httptest.Server
	Svc *FakeService

	// Token, when set, is the bearer token every request must carry.
	Token string

	mu         sync.Mutex
	requestIDs []string
}

// NewFakeServer starts an HTTP store backed by svc. Close it when done.
func NewFakeServer(svc *FakeService) *FakeServer {
	fs := &FakeServer{Svc: svc}

	r := chi.NewRouter()
	r.Use(fs.recordRequest)
	r.Route("/v1/tasks", func(r chi.Router) {
		r.Get("/", fs.handleList)
		r.Post("/", fs.handleCreate)
		r.Patch("/{id}", fs.handleUpdate)
		r.Patch("/{id}/toggle", fs.handleToggle)
		r.Delete("/{id}", fs.handleDelete)
	})

	fs.Server = httptest.NewServer(r)
	return fs
}

// RequestIDs returns the X-Request-ID header of every request received.
func (fs *FakeServer) RequestIDs() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.requestIDs...)
}

func (fs *FakeServer) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requestIDs = append(fs.requestIDs, r.Header.Get("X-Request-ID"))
		fs.mu.Unlock()

		if fs.Token != "" && r.Header.Get("Authorization") != "Bearer "+fs.Token {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fs *FakeServer) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := service.ParseFilter(q.Get("status"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, offset := 100, 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > 200 {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid limit")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid offset")
			return
		}
	}

	res, err := fs.Svc.List(r.Context(), service.ListParams{
		Filter: filter,
		Search: q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Items == nil {
		res.Items = []service.Task{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (fs *FakeServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var p service.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	t, err := fs.Svc.Create(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (fs *FakeServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	p, err := decodeUpdate(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	t, err := fs.Svc.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (fs *FakeServer) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := fs.Svc.ToggleDone(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (fs *FakeServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := fs.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeUpdate decodes a partial update. Like the real store, a null
// description is ignored; an empty string clears it.
func decodeUpdate(r *http.Request) (service.UpdateParams, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return service.UpdateParams{}, err
	}
	var p service.UpdateParams
	if v, ok := raw["title"]; ok {
		if err := json.Unmarshal(v, &p.Title); err != nil {
			return p, err
		}
	}
	if v, ok := raw["description"]; ok && string(v) != "null" {
		var desc string
		if err := json.Unmarshal(v, &desc); err != nil {
			return p, err
		}
		p.Description = &desc
	}
	if v, ok := raw["is_done"]; ok {
		if err := json.Unmarshal(v, &p.IsDone); err != nil {
			return p, err
		}
	}
	return p, nil
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid task id")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, service.ErrValidation):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
