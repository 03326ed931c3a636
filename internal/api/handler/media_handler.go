package handler

import (
	"Inkwell/internal/api/dto"
	"Inkwell/internal/pkg/minio"
	"Inkwell/internal/pkg/response"
	"Inkwell/internal/service"
	log "log/slog"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 仅允许常见图片类型作为封面或插图
var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type MediaHandler struct{}

func NewMediaHandler() *MediaHandler {
	return &MediaHandler{}
}

func (s *MediaHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if _, ok := allowedContentTypes[contentType]; !ok {
		response.Error(c, service.ErrFileNotSupported)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, service.UnExpectedError)
		return
	}
	defer file.Close()

	objectName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	key, err := minio.UploadFile(c.Request.Context(), objectName, file, fileHeader.Size, contentType)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "上传文件失败", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}

	response.Success(c, dto.MediaUploadDTO{
		ObjectName: key,
		URL:        minio.GetPublicURL(key),
	})
}
