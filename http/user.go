package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"miniFeed/domain"
	"miniFeed/errs"
)

// registerUserRoutes is a helper for registering all user routes.
func (s *Server) registerUserRoutes(r *mux.Router) {
	// List users, or search them by username if there is a "q" parameter.
	r.HandleFunc("/users", s.handleGetUsers).Methods("GET")

	// Get a user by ID or by username.
	r.HandleFunc("/users/{ref}", s.handleGetUser).Methods("GET")

	// Get the posts a user has liked.
	r.HandleFunc("/users/{user_id}/likes", s.handleGetUserLikes).Methods("GET")

	// Sign up a new user.
	r.HandleFunc("/users", s.handleCreateUser).Methods("POST")

	// Update a user's data, or just their password.
	r.HandleFunc("/users/{user_id}", s.handleUpdateUser).Methods("PATCH")
	r.HandleFunc("/users/{user_id}/password", s.handleChangePassword).Methods("PATCH")

	// Delete a user along with their posts and likes.
	r.HandleFunc("/users/{user_id}", s.handleDeleteUser).Methods("DELETE")
}

// userCreate is the json body of a sign up request. domain.User never
// decodes a password, so it has its own type.
type userCreate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleGetUsers handles the route "GET /users".
// Without a search term it returns a page of users in the requested order.
// With one, it returns the users whose username is most similar to it.
func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	var users []domain.User
	if q := r.URL.Query().Get("q"); q != "" {
		users, err = s.us.Search(r.Context(), q, page)
	} else {
		users, err = s.us.Users(r.Context(), page)
	}
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Users retrieved successfully", users)
}

// handleGetUser handles the route "GET /users/{ref}".
// ref is looked up as a user ID if it is a UUID, and as a username otherwise.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	var user *domain.User
	var err error
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		user, err = s.us.ByID(r.Context(), id)
	} else {
		user, err = s.us.ByUsername(r.Context(), ref)
	}
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "User retrieved successfully", user)
}

// handleGetUserLikes handles the route "GET /users/{user_id}/likes".
func (s *Server) handleGetUserLikes(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	posts, err := s.us.LikedPosts(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Liked posts retrieved successfully", posts)
}

// handleCreateUser handles the route "POST /users".
// It returns the created user, without the password.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body userCreate
	if err := decodeJSON(w, r, &body); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := &domain.User{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	}
	if err := s.us.Create(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, "User created successfully", user)
}

// handleUpdateUser handles the route "PATCH /users/{user_id}".
// Only the fields present in the body are changed.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var upd domain.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user, err := s.us.Update(r.Context(), id, upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "User updated successfully", user)
}

// handleChangePassword handles the route "PATCH /users/{user_id}/password".
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var upd domain.PasswordUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	if err := s.us.ChangePassword(r.Context(), id, upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Password updated successfully", nil)
}

// handleDeleteUser handles the route "DELETE /users/{user_id}".
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.us.Delete(r.Context(), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusNoContent, "User deleted successfully", nil)
}
