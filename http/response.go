package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"miniFeed/domain"
	"miniFeed/errs"
)

// DefaultPrefix is the path the api is mounted under unless configured otherwise.
const DefaultPrefix = "/api/v1"

// maxBodyBytes limits the size of json request bodies.
const maxBodyBytes = 1 << 20

// Response is the json body sent to the client when a request succeeds.
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Metadata describes the api. It's returned at the root of the api.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// respond writes a success response with the given status. A 204 response has no body.
func respond(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	if status == http.StatusNoContent {
		w.Header().Del("Content-Type")
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Message: message, Data: data}); err != nil {
		errs.LogError(r, err)
	}
}

// decodeJSON parses the request's json body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Errorf(errs.EINVALID, "The request body must not be empty.")
		}
		return errs.Errorf(errs.EINVALID, "Invalid json body.")
	}
	return nil
}

// uuidVar parses the route variable name as a UUID.
func uuidVar(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errs.Errorf(errs.EINVALID, "Invalid %s format.", name)
	}
	return id, nil
}

// parsePage reads offset, limit, sort and order from the query string.
// Missing values fall back to the defaults, limits above domain.MaxLimit are capped.
func parsePage(r *http.Request) (domain.Page, error) {
	query := r.URL.Query()
	page := domain.Page{
		Limit: domain.DefaultLimit,
		Sort:  strings.TrimSpace(query.Get("sort")),
		Order: strings.ToLower(strings.TrimSpace(query.Get("order"))),
	}

	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return page, errs.Errorf(errs.EINVALID, "Offset must be a number of at least 0.")
		}
		page.Offset = offset
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return page, errs.Errorf(errs.EINVALID, "Limit must be a number of at least 1.")
		}
		if limit > domain.MaxLimit {
			limit = domain.MaxLimit
		}
		page.Limit = limit
	}
	switch page.Order {
	case "", domain.OrderAsc, domain.OrderDesc:
	default:
		return page, errs.Errorf(errs.EINVALID, "Order must be %q or %q.", domain.OrderAsc, domain.OrderDesc)
	}
	return page, nil
}

// handleRoot handles the route "GET /". It describes the api.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, "Welcome to the "+s.cfg.Title, Metadata{
		Title:       s.cfg.Title,
		Description: s.cfg.Description,
		Version:     s.cfg.Version,
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.ENOTFOUND, "No route matches %s %s.", r.Method, r.URL.Path))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.ENOTALLOWED, "Method %s is not allowed on %s.", r.Method, r.URL.Path))
}
