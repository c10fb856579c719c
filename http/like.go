package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"miniFeed/errs"
)

// registerLikeRoutes is a helper for registering all Like routes.
func (s *Server) registerLikeRoutes(r *mux.Router) {
	// Create a new like for a post (Like a post).
	r.HandleFunc("/posts/{post_id}/like", s.handleCreateLike).Methods("POST")

	// Delete an existing like of a post (Unlike a post).
	r.HandleFunc("/posts/{post_id}/unlike/{user_id}", s.handleDeleteLike).Methods("DELETE")
}

// likeCreate is the json body of a like request.
type likeCreate struct {
	UserID uuid.UUID `json:"user_id"`
}

// handleCreateLike handles the route "POST /posts/{post_id}/like".
// Liking a post again returns the existing like.
func (s *Server) handleCreateLike(w http.ResponseWriter, r *http.Request) {
	postID, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var body likeCreate
	if err := decodeJSON(w, r, &body); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if body.UserID == uuid.Nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A user_id is required."))
		return
	}

	like, err := s.ls.Like(r.Context(), postID, body.UserID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, "Post liked successfully", like)
}

// handleDeleteLike handles the route "DELETE /posts/{post_id}/unlike/{user_id}".
func (s *Server) handleDeleteLike(w http.ResponseWriter, r *http.Request) {
	postID, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	userID, err := uuidVar(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ls.Unlike(r.Context(), postID, userID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusNoContent, "Post unliked successfully", nil)
}
