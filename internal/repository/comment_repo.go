package repository

import (
	"Inkwell/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type CommentRepo interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id uint64) (*model.Comment, error)
	UpdateComment(ctx context.Context, comment *model.Comment) error
	SoftDeleteComment(ctx context.Context, id uint64) (int64, error)
	ListByPost(ctx context.Context, postID uint64, skip, limit int) ([]*model.Comment, error)
}

type CommentRepoImpl struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) CommentRepo {
	return &CommentRepoImpl{db: db}
}

func (s *CommentRepoImpl) CreateComment(ctx context.Context, comment *model.Comment) error {
	return s.db.WithContext(ctx).Create(comment).Error
}

// GetComment 仅返回未软删除的评论
func (s *CommentRepoImpl) GetComment(ctx context.Context, id uint64) (*model.Comment, error) {
	comment := &model.Comment{}
	result := s.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND deleted_at IS NULL", id).
		First(comment)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return comment, nil
}

func (s *CommentRepoImpl) UpdateComment(ctx context.Context, comment *model.Comment) error {
	return s.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id = ?", comment.ID).
		Update("content", comment.Content).Error
}

// SoftDeleteComment 仅命中存活行，返回受影响行数供调用方区分重复删除
func (s *CommentRepoImpl) SoftDeleteComment(ctx context.Context, id uint64) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	return result.RowsAffected, result.Error
}

func (s *CommentRepoImpl) ListByPost(ctx context.Context, postID uint64, skip, limit int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ? AND deleted_at IS NULL", postID).
		Order("created_at ASC").
		Offset(skip).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
