package handler

import (
	"github.com/gin-gonic/gin"

	"elpa-backend/internal/shared/middleware"
)

// multipart overhead ngoài kích thước file
const multipartOverhead = 1 << 20

// RegisterRoutes: auth là middleware xác thực token cho write routes
func (h *ArchiveHandler) RegisterRoutes(v1, root *gin.RouterGroup, auth gin.HandlerFunc) {
	packages := v1.Group("/packages")
	{
		packages.GET("", h.Search)
		packages.GET("/:name", h.GetPackage)
		packages.GET("/:name/:version", h.GetVersion)

		packages.POST("", middleware.BodyLimit(h.maxUploadSize+multipartOverhead), auth, h.Upload)
		packages.DELETE("/:name", auth, h.DeletePackage)
		packages.DELETE("/:name/:version", auth, h.DeleteVersion)
		packages.POST("/:name/owners/:owner", auth, h.AddOwner)
		packages.DELETE("/:name/owners/:owner", auth, h.RemoveOwner)
	}

	files := root.Group("/packages")
	{
		files.GET("/archive-contents", h.ArchiveContents)
		files.GET("/:file", h.Download)
	}
}
