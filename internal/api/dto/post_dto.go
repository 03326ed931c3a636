package dto

// PostCreateDTO 创建文章请求
type PostCreateDTO struct {
	Title     string   `json:"title" binding:"required,max=200"`
	Content   string   `json:"content" binding:"required"`
	Summary   *string  `json:"summary"`
	Published bool     `json:"published"`
	CoverURL  *string  `json:"cover_url"`
	Tags      []string `json:"tags"`
}

// PostUpdateDTO 部分更新请求，nil 字段保持不变；Tags 非 nil 时整体替换
type PostUpdateDTO struct {
	Title     *string   `json:"title" binding:"omitempty,max=200"`
	Content   *string   `json:"content"`
	Summary   *string   `json:"summary"`
	Published *bool     `json:"published"`
	CoverURL  *string   `json:"cover_url"`
	Tags      *[]string `json:"tags"`
}

type PostDTO struct {
	ID        uint64   `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Content   string   `json:"content"`
	Summary   *string  `json:"summary"`
	Published bool     `json:"published"`
	CoverURL  *string  `json:"cover_url"`
	ViewCount int64    `json:"view_count"`
	UserID    uint64   `json:"user_id"`
	Username  string   `json:"username"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type TagDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// PostQueryDTO 文章列表过滤参数
type PostQueryDTO struct {
	PageDTO
	TagID uint64 `form:"tag_id,default=0" binding:"gte=0"`
}

// SearchDTO 搜索参数
type SearchDTO struct {
	PageDTO
	Keyword string `form:"q" binding:"required,min=1,max=100"`
}
