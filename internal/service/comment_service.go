package service

import (
	"Inkwell/internal/api/dto"
	"Inkwell/internal/model"
	"Inkwell/internal/pkg/kafka"
	"Inkwell/internal/repository"
	"context"
	log "log/slog"

	"github.com/jinzhu/copier"
)

type CommentService interface {
	CreateComment(ctx context.Context, userID uint64, postID uint64, in *dto.CommentCreateDTO) (*dto.CommentDTO, error)
	UpdateComment(ctx context.Context, userID uint64, isAdmin bool, commentID uint64, in *dto.CommentCreateDTO) (*dto.CommentDTO, error)
	DeleteComment(ctx context.Context, userID uint64, isAdmin bool, commentID uint64) error
	ListComments(ctx context.Context, viewerID uint64, postID uint64, skip, limit int) ([]*dto.CommentDTO, error)
}

type commentServiceImpl struct {
	commentRepo repository.CommentRepo
	postRepo    repository.PostRepo
	publisher   kafka.Publisher
}

func NewCommentService(commentRepo repository.CommentRepo, postRepo repository.PostRepo, publisher kafka.Publisher) CommentService {
	return &commentServiceImpl{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisher,
	}
}

// visiblePost 评论挂在可见文章下，草稿只有作者本人可评论
func (s *commentServiceImpl) visiblePost(ctx context.Context, viewerID uint64, postID uint64) (*model.Post, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		log.ErrorContext(ctx, "查询文章失败", "post_id", postID, "err", err)
		return nil, UnExpectedError
	}
	if post == nil || (!post.Published && post.UserID != viewerID) {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *commentServiceImpl) CreateComment(ctx context.Context, userID uint64, postID uint64, in *dto.CommentCreateDTO) (*dto.CommentDTO, error) {
	if _, err := s.visiblePost(ctx, userID, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: in.Content,
	}
	if err := s.commentRepo.CreateComment(ctx, comment); err != nil {
		log.ErrorContext(ctx, "创建评论失败", "post_id", postID, "err", err)
		return nil, UnExpectedError
	}

	s.publisher.Publish(kafka.NewEvent(kafka.EventCommentCreated, map[string]any{
		"comment_id": comment.ID,
		"post_id":    comment.PostID,
		"user_id":    comment.UserID,
	}))

	created, err := s.commentRepo.GetComment(ctx, comment.ID)
	if err != nil || created == nil {
		log.ErrorContext(ctx, "回读评论失败", "comment_id", comment.ID, "err", err)
		return nil, UnExpectedError
	}
	return s.toCommentDTO(created), nil
}

func (s *commentServiceImpl) UpdateComment(ctx context.Context, userID uint64, isAdmin bool, commentID uint64, in *dto.CommentCreateDTO) (*dto.CommentDTO, error) {
	comment, err := s.commentRepo.GetComment(ctx, commentID)
	if err != nil {
		log.ErrorContext(ctx, "查询评论失败", "comment_id", commentID, "err", err)
		return nil, UnExpectedError
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if comment.UserID != userID && !isAdmin {
		return nil, ForbiddenError
	}

	comment.Content = in.Content
	if err := s.commentRepo.UpdateComment(ctx, comment); err != nil {
		log.ErrorContext(ctx, "更新评论失败", "comment_id", commentID, "err", err)
		return nil, UnExpectedError
	}

	updated, err := s.commentRepo.GetComment(ctx, commentID)
	if err != nil || updated == nil {
		log.ErrorContext(ctx, "回读评论失败", "comment_id", commentID, "err", err)
		return nil, UnExpectedError
	}
	return s.toCommentDTO(updated), nil
}

func (s *commentServiceImpl) DeleteComment(ctx context.Context, userID uint64, isAdmin bool, commentID uint64) error {
	comment, err := s.commentRepo.GetComment(ctx, commentID)
	if err != nil {
		log.ErrorContext(ctx, "查询评论失败", "comment_id", commentID, "err", err)
		return UnExpectedError
	}
	if comment == nil {
		return ErrCommentNotFound
	}
	if comment.UserID != userID && !isAdmin {
		return ForbiddenError
	}

	rows, err := s.commentRepo.SoftDeleteComment(ctx, commentID)
	if err != nil {
		log.ErrorContext(ctx, "删除评论失败", "comment_id", commentID, "err", err)
		return UnExpectedError
	}
	if rows == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *commentServiceImpl) ListComments(ctx context.Context, viewerID uint64, postID uint64, skip, limit int) ([]*dto.CommentDTO, error) {
	if _, err := s.visiblePost(ctx, viewerID, postID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID, skip, limit)
	if err != nil {
		log.ErrorContext(ctx, "查询评论列表失败", "post_id", postID, "err", err)
		return nil, UnExpectedError
	}

	result := make([]*dto.CommentDTO, 0, len(comments))
	for _, comment := range comments {
		result = append(result, s.toCommentDTO(comment))
	}
	return result, nil
}

func (s *commentServiceImpl) toCommentDTO(comment *model.Comment) *dto.CommentDTO {
	result := &dto.CommentDTO{}
	_ = copier.Copy(result, comment)
	result.Username = comment.User.Username
	result.CreatedAt = comment.CreatedAt.Format(timeLayout)
	result.UpdatedAt = comment.UpdatedAt.Format(timeLayout)
	return result
}
