package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"regexp"

	"github.com/gin-gonic/gin"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/apperror"
	"elpa-backend/internal/shared/middleware"
	"elpa-backend/internal/shared/response"
)

// <name>-<version>.<el|tar>
var packageFilePattern = regexp.MustCompile(`^(.+)-([0-9]+(?:\.[0-9]+)*)\.(el|tar)$`)

type ArchiveHandler struct {
	service       archive.Service
	maxUploadSize int64
}

func NewArchiveHandler(svc archive.Service, maxUploadSize int64) *ArchiveHandler {
	return &ArchiveHandler{service: svc, maxUploadSize: maxUploadSize}
}

// ════════════════════════════════════════════════════════════════
// UPLOAD: POST /v1/packages (multipart field "package")
// ════════════════════════════════════════════════════════════════

func (h *ArchiveHandler) Upload(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	fh, err := c.FormFile("package")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.HandleError(c, apperror.NewInputError("Package exceeds the maximum upload size"))
			return
		}
		response.BadRequest(c, "multipart field \"package\" is required")
		return
	}
	if fh.Size > h.maxUploadSize {
		response.HandleError(c, apperror.NewInputError("Package exceeds the maximum upload size"))
		return
	}

	kind, err := archive.KindFromExtension(filepath.Ext(fh.Filename))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	pkg, err := h.service.Upload(c.Request.Context(), data, kind, u)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Negotiate(c, http.StatusCreated, pkg)
}

// ════════════════════════════════════════════════════════════════
// READ: GET /v1/packages?q=, /v1/packages/:name, /v1/packages/:name/:version
// ════════════════════════════════════════════════════════════════

func (h *ArchiveHandler) Search(c *gin.Context) {
	packages := []*archive.Package{}
	for pkg, err := range h.service.SearchPackages(c.Request.Context(), c.Query("q")) {
		if err != nil {
			response.HandleError(c, err)
			return
		}
		packages = append(packages, pkg)
	}
	if response.WantsElisp(c) {
		response.Negotiate(c, http.StatusOK, packages)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, packages, &response.Meta{Total: len(packages)})
}

func (h *ArchiveHandler) GetPackage(c *gin.Context) {
	pkg, err := h.service.LoadPackage(c.Request.Context(), archive.NameToKey(c.Param("name")))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Negotiate(c, http.StatusOK, pkg)
}

func (h *ArchiveHandler) GetVersion(c *gin.Context) {
	version, err := archive.ParseVersion(c.Param("version"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	_, pv, err := h.service.LoadPackageVersion(c.Request.Context(), archive.NameToKey(c.Param("name")), version)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Negotiate(c, http.StatusOK, pv)
}

// ════════════════════════════════════════════════════════════════
// DELETE: /v1/packages/:name, /v1/packages/:name/:version
// ════════════════════════════════════════════════════════════════

func (h *ArchiveHandler) DeletePackage(c *gin.Context) {
	key, ok := h.authorize(c)
	if !ok {
		return
	}
	if err := h.service.RemovePackage(c.Request.Context(), key); err != nil {
		response.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ArchiveHandler) DeleteVersion(c *gin.Context) {
	version, err := archive.ParseVersion(c.Param("version"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	key, ok := h.authorize(c)
	if !ok {
		return
	}
	if err := h.service.RemovePackageVersion(c.Request.Context(), key, version); err != nil {
		response.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// authorize kiểm tra current user sở hữu :name
func (h *ArchiveHandler) authorize(c *gin.Context) (string, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return "", false
	}
	key := archive.NameToKey(c.Param("name"))
	if _, err := h.service.AuthorizeOwner(c.Request.Context(), key, u); err != nil {
		response.HandleError(c, err)
		return "", false
	}
	return key, true
}

// ════════════════════════════════════════════════════════════════
// OWNERS: POST|DELETE /v1/packages/:name/owners/:owner
// ════════════════════════════════════════════════════════════════

func (h *ArchiveHandler) AddOwner(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	req := archive.OwnerRequest{Package: c.Param("name"), Owner: c.Param("owner")}
	if err := req.Validate(); err != nil {
		response.HandleError(c, err)
		return
	}
	pkg, err := h.service.AddPackageOwner(c.Request.Context(), req.PackageKey(), u, req.Owner)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Negotiate(c, http.StatusOK, pkg)
}

func (h *ArchiveHandler) RemoveOwner(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	req := archive.OwnerRequest{Package: c.Param("name"), Owner: c.Param("owner")}
	if err := req.Validate(); err != nil {
		response.HandleError(c, err)
		return
	}
	pkg, err := h.service.RemovePackageOwner(c.Request.Context(), req.PackageKey(), u, req.Owner)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Negotiate(c, http.StatusOK, pkg)
}

// ════════════════════════════════════════════════════════════════
// PACKAGE MANAGER: /packages/archive-contents, /packages/:file
// ════════════════════════════════════════════════════════════════

func (h *ArchiveHandler) ArchiveContents(c *gin.Context) {
	contents, err := h.service.ArchiveContents(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Elisp(c, http.StatusOK, contents)
}

func (h *ArchiveHandler) Download(c *gin.Context) {
	m := packageFilePattern.FindStringSubmatch(c.Param("file"))
	if m == nil {
		response.NotFound(c, "Unknown package file "+c.Param("file"))
		return
	}
	version, err := archive.ParseVersion(m[2])
	if err != nil {
		response.HandleError(c, err)
		return
	}
	kind, err := archive.KindFromExtension(m[3])
	if err != nil {
		response.HandleError(c, err)
		return
	}

	data, pv, err := h.service.LoadPackageData(c.Request.Context(), m[1], version, kind)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	contentType := "application/x-tar"
	if kind == archive.KindSingle {
		contentType = "text/plain; charset=utf-8"
	}
	c.Header("Content-Disposition", `attachment; filename="`+pv.Filename()+`"`)
	c.Data(http.StatusOK, contentType, data)
}
