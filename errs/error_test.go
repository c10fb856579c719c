package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	wrapped := Wrap(UserNotFound, io.EOF)
	assert.True(t, errors.Is(wrapped, UserNotFound))
	assert.True(t, errors.Is(wrapped, io.EOF))
	assert.False(t, errors.Is(wrapped, PostNotFound))

	chained := fmt.Errorf("loading likes: %w", PostsNotFound)
	assert.True(t, errors.Is(chained, PostsNotFound))
	assert.False(t, errors.Is(chained, PostNotFound))
}

func TestInternal(t *testing.T) {
	assert.Nil(t, Internal(nil))

	err := Internal(io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(err, ServerError))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	// Application errors pass through.
	assert.Same(t, UserExists, Internal(UserExists))
}

func TestErrorCodeAndMessage(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, EINTERNAL, ErrorCode(io.EOF))
	assert.Equal(t, ENOTFOUND, ErrorCode(PostNotFound))
	assert.Equal(t, EINVALID, ErrorCode(Errorf(EINVALID, "bad %s", "thing")))

	assert.Equal(t, "bad thing", ErrorMessage(Errorf(EINVALID, "bad %s", "thing")))
	assert.Equal(t, ServerError.Message, ErrorMessage(io.EOF))
}

func TestReturnError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		want       Response
	}{
		{"server", Wrap(ServerError, io.EOF), http.StatusInternalServerError, Response{ErrorCode: "Server error", Message: ServerError.Message}},
		{"plain error", io.EOF, http.StatusInternalServerError, Response{ErrorCode: "Server error", Message: ServerError.Message}},
		{"password", PasswordError, http.StatusBadRequest, Response{ErrorCode: PasswordError.Title, Message: PasswordError.Message}},
		{"user exists", UserExists, http.StatusBadRequest, Response{ErrorCode: UserExists.Title, Message: UserExists.Message, Resolution: UserExists.Resolution}},
		{"users not found", UsersNotFound, http.StatusNotFound, Response{ErrorCode: UsersNotFound.Title, Message: UsersNotFound.Message}},
		{"user not found", UserNotFound, http.StatusNotFound, Response{ErrorCode: UserNotFound.Title, Message: UserNotFound.Message, Resolution: UserNotFound.Resolution}},
		{"not signed up", UserNotSignedUp, http.StatusNotFound, Response{ErrorCode: UserNotSignedUp.Title, Message: UserNotSignedUp.Message, Resolution: UserNotSignedUp.Resolution}},
		{"posts not found", PostsNotFound, http.StatusNotFound, Response{ErrorCode: PostsNotFound.Title, Message: PostsNotFound.Message}},
		{"post not found", PostNotFound, http.StatusNotFound, Response{ErrorCode: PostNotFound.Title, Message: PostNotFound.Message, Resolution: PostNotFound.Resolution}},
		{"invalid image", InvalidImageUrl, http.StatusBadRequest, Response{ErrorCode: InvalidImageUrl.Title, Message: InvalidImageUrl.Message, Resolution: InvalidImageUrl.Resolution}},
		{"invalid input", Errorf(EINVALID, "Invalid id format."), http.StatusBadRequest, Response{ErrorCode: "Invalid input", Message: "Invalid id format."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/posts/", nil)
			ReturnError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var got Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReturnErrorOmitsEmptyResolution(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ReturnError(w, r, PostsNotFound)
	assert.NotContains(t, w.Body.String(), "resolution")
}
