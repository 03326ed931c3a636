package dto

// CommentCreateDTO 创建/更新评论请求
type CommentCreateDTO struct {
	Content string `json:"content" binding:"required,max=1000"`
}

type CommentDTO struct {
	ID        uint64 `json:"id"`
	PostID    uint64 `json:"post_id"`
	UserID    uint64 `json:"user_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
