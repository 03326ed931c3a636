package dto

// MediaUploadDTO 上传成功后返回的文件信息
type MediaUploadDTO struct {
	ObjectName string `json:"object_name"`
	URL        string `json:"url"`
}
