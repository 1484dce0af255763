package storage

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Inspector exposes a backing's contents over HTTP for debugging and
// operational tooling. Values travel in their encoded form by default;
// pass ?decode=1 on reads to get the decoded value as JSON.
//
// Routes:
//
//	GET    /keys            list all keys (backing must implement Lister)
//	GET    /keys/{key}      read one value
//	PUT    /keys/{key}      write the raw encoded body
//	DELETE /keys/{key}      remove one key
//
// Mount it under an authenticated subtree; it has no access control of its
// own.
type Inspector struct {
	backing Backing
}

// NewInspector creates an inspector over b.
func NewInspector(b Backing) *Inspector {
	return &Inspector{backing: b}
}

// Routes returns the chi router serving the inspector endpoints.
func (i *Inspector) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/keys", i.handleList)
	r.Get("/keys/{key}", i.handleGet)
	r.Put("/keys/{key}", i.handlePut)
	r.Delete("/keys/{key}", i.handleDelete)
	return r
}

// ServeHTTP makes the inspector mountable as a plain http.Handler.
func (i *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i.Routes().ServeHTTP(w, r)
}

func (i *Inspector) handleList(w http.ResponseWriter, r *http.Request) {
	l, ok := i.backing.(Lister)
	if !ok {
		httpError(w, http.StatusNotImplemented, "backing cannot enumerate keys")
		return
	}
	keys, err := l.Keys()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backing": backingName(i.backing),
		"keys":    keys,
	})
}

func (i *Inspector) handleGet(w http.ResponseWriter, r *http.Request) {
	key := routeKey(r)
	encoded, ok, err := i.backing.Load(key)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		httpError(w, http.StatusNotFound, "key not found")
		return
	}

	if r.URL.Query().Get("decode") == "1" {
		var decoded any
		if err := i.backing.Encoder().Decode(encoded, &decoded); err != nil {
			var derr *DecodeError
			if errors.As(err, &derr) {
				httpError(w, http.StatusUnprocessableEntity, derr.Error())
				return
			}
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": decoded})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "encoded": encoded})
}

func (i *Inspector) handlePut(w http.ResponseWriter, r *http.Request) {
	key := routeKey(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := i.backing.Store(key, string(body)); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, ok := i.backing.(notifier); ok {
		n.notify(key)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (i *Inspector) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := routeKey(r)
	if err := i.backing.Remove(key); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, ok := i.backing.(notifier); ok {
		n.notify(key)
	}
	w.WriteHeader(http.StatusNoContent)
}

// routeKey extracts the key path parameter, undoing URL escaping so keys
// with slashes or colons round-trip.
func routeKey(r *http.Request) string {
	key := chi.URLParam(r, "key")
	if unescaped, err := url.PathUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("inspector response write failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
