package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpa-backend/internal/domains/archive/parser"
	archiverepo "elpa-backend/internal/domains/archive/repository"
	archivesvc "elpa-backend/internal/domains/archive/service"
	"elpa-backend/internal/domains/user"
	userrepo "elpa-backend/internal/domains/user/repository"
	usersvc "elpa-backend/internal/domains/user/service"
	"elpa-backend/internal/infrastructure/database"
	"elpa-backend/internal/infrastructure/storage"
	"elpa-backend/internal/infrastructure/unpack"
	"elpa-backend/internal/shared/middleware"
)

const fooSource = ";;; foo.el --- A test package\n\n" +
	";; Version: 1.2.3\n" +
	";; Package-Requires: ((bar \"0.1\"))\n\n" +
	";;; Commentary:\n\n;; Hello world.\n\n" +
	"(provide 'foo)\n;;; foo.el ends here\n"

type testEnv struct {
	router *gin.Engine
	tokens map[string]string
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, archiverepo.MigrateSQLite(db))
	require.NoError(t, userrepo.MigrateSQLite(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	blobs, err := storage.NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	users := userrepo.NewSQLiteRepository(db)
	userService := usersvc.NewUserService(users, nil, nil)
	archiveService := archivesvc.NewService(
		archiverepo.NewSQLiteRepository(db),
		blobs,
		users,
		parser.NewExtractor(unpack.NewTarUnpacker(1<<20), t.TempDir()),
		nil,
	)

	env := &testEnv{tokens: map[string]string{}}
	for _, name := range []string{"alice", "bob"} {
		u, err := userService.Register(ctx, user.RegisterRequest{Name: name, Email: name + "@example.com", Password: "secret1"})
		require.NoError(t, err)
		env.tokens[name] = u.Token
	}

	r := gin.New()
	NewArchiveHandler(archiveService, 1<<20).RegisterRoutes(r.Group("/v1"), &r.RouterGroup, middleware.TokenAuth(userService))
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, as string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if as != "" {
		req.Header.Set(middleware.HeaderUser, as)
		req.Header.Set(middleware.HeaderToken, e.tokens[as])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, as, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("package", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return e.do(t, http.MethodPost, "/v1/packages", as, buf.Bytes(), mw.FormDataContentType())
}

func TestUploadAndDownload(t *testing.T) {
	env := setup(t)

	w := env.upload(t, "alice", "foo.el", fooSource)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"uploaded"`)

	w = env.upload(t, "alice", "foo.el", fooSource)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "version already exists")

	w = env.upload(t, "bob", "foo.el", fooSource)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.upload(t, "", "foo.el", fooSource)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload(t, "alice", "foo.zip", fooSource)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/packages/foo-1.2.3.el", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fooSource, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "foo-1.2.3.el")

	w = env.do(t, http.MethodGet, "/packages/foo-1.2.3.tar", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "KIND_MISMATCH")

	w = env.do(t, http.MethodGet, "/packages/foo-9.0.el", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "1.2.3")
}

func TestArchiveContentsAndQueries(t *testing.T) {
	env := setup(t)
	require.Equal(t, http.StatusCreated, env.upload(t, "alice", "foo.el", fooSource).Code)

	w := env.do(t, http.MethodGet, "/packages/archive-contents", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `(1 (foo . [(1 2 3) ((bar (0 1))) "A test package" single]))`, w.Body.String())

	w = env.do(t, http.MethodGet, "/v1/packages?q=fo", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = env.do(t, http.MethodGet, "/v1/packages/foo?format=elisp", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/x-script.elisp")
	assert.Contains(t, w.Body.String(), `(name . "foo")`)

	w = env.do(t, http.MethodGet, "/v1/packages/foo/1.2.3", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello world.")

	w = env.do(t, http.MethodGet, "/v1/packages/foo/1.x", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/packages/missing", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PACKAGE_NOT_FOUND")
}

func TestOwnersAndDelete(t *testing.T) {
	env := setup(t)
	require.Equal(t, http.StatusCreated, env.upload(t, "alice", "foo.el", fooSource).Code)

	w := env.do(t, http.MethodDelete, "/v1/packages/foo", "bob", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/packages/foo/owners/bob", "alice", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "bob@example.com")

	w = env.do(t, http.MethodDelete, "/v1/packages/foo/owners/alice", "bob", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/packages/foo/1.2.3", "alice", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/packages/foo/1.2.3", "bob", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/v1/packages/foo", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
