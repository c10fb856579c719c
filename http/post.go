package http

import (
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"miniFeed/domain"
	"miniFeed/errs"
)

// uploadField is the multipart form field images are uploaded in.
const uploadField = "post_images"

// registerPostRoutes is a helper for registering all post and post image routes.
// Static paths come first, so that "feed" and "search" are never taken for a post ID.
func (s *Server) registerPostRoutes(r *mux.Router) {
	// Read posts: the feed, full-text search results, or a single post.
	r.HandleFunc("/posts/feed", s.handleGetFeed).Methods("GET")
	r.HandleFunc("/posts/search", s.handleSearchPosts).Methods("GET")
	r.HandleFunc("/posts/{post_id}", s.handleGetPost).Methods("GET")

	// Create a post. Its images have to be uploaded beforehand.
	r.HandleFunc("/posts", s.handleCreatePost).Methods("POST")
	r.HandleFunc("/posts/images/upload", s.handleUploadImages).Methods("POST")

	// Update or delete a post.
	r.HandleFunc("/posts/{post_id}", s.handleUpdatePost).Methods("PATCH")
	r.HandleFunc("/posts/{post_id}", s.handleDeletePost).Methods("DELETE")

	// Load or delete one of a post's images.
	r.HandleFunc("/posts/{post_id}/images/{image_url}/load", s.handleLoadImage).Methods("GET")
	r.HandleFunc("/posts/{post_id}/images/{image_name}", s.handleDeleteImage).Methods("DELETE")
}

// handleGetFeed handles the route "GET /posts/feed".
func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	posts, err := s.ps.Feed(r.Context(), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Feed loaded successfully", posts)
}

// handleSearchPosts handles the route "GET /posts/search".
// Results are ranked by relevance unless a sort column is requested.
func (s *Server) handleSearchPosts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	posts, err := s.ps.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Posts retrieved successfully", posts)
}

// handleGetPost handles the route "GET /posts/{post_id}".
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	post, err := s.ps.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Post retrieved successfully", post)
}

// handleCreatePost handles the route "POST /posts".
// The post is created for the user named in the body.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var create domain.PostCreate
	if err := decodeJSON(w, r, &create); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	post, err := s.ps.Create(r.Context(), create)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, "Post created successfully", post)
}

// handleUploadImages handles the route "POST /posts/images/upload".
// It stores the uploaded images and returns their names, which can then
// be passed along when creating a post.
func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	// Parse the data to be uploaded.
	if err := r.ParseMultipartForm(domain.MaxUploadSize); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid multipart form."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	uploads := make([]*domain.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			errs.ReturnError(w, r, errs.Internal(err))
			return
		}
		defer file.Close()
		uploads = append(uploads, newUpload(file, header))
	}

	names, err := s.ps.UploadImages(uploads)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, "Images uploaded successfully", names)
}

func newUpload(file multipart.File, header *multipart.FileHeader) *domain.Upload {
	return &domain.Upload{
		File:     file,
		Filename: header.Filename,
	}
}

// handleUpdatePost handles the route "PATCH /posts/{post_id}".
// Only the fields present in the body are changed.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var upd domain.PostUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	post, err := s.ps.Update(r.Context(), id, upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, "Post updated successfully", post)
}

// handleDeletePost handles the route "DELETE /posts/{post_id}".
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ps.Delete(r.Context(), id); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusNoContent, "Post deleted successfully", nil)
}

// handleLoadImage handles the route "GET /posts/{post_id}/images/{image_url}/load".
// It responds with the image file itself rather than json.
func (s *Server) handleLoadImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	path, err := s.ps.LoadImage(r.Context(), id, mux.Vars(r)["image_url"])
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	// Let ServeFile pick the content type from the file.
	w.Header().Del("Content-Type")
	http.ServeFile(w, r, path)
}

// handleDeleteImage handles the route "DELETE /posts/{post_id}/images/{image_name}".
func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidVar(r, "post_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ps.DeleteImage(r.Context(), id, mux.Vars(r)["image_name"]); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	respond(w, r, http.StatusNoContent, "Image deleted successfully", nil)
}
