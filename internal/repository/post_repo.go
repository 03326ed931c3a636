package repository

import (
	"Inkwell/internal/model"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type PostRepo interface {
	CreatePost(ctx context.Context, post *model.Post, tags []*model.Tag) error
	GetPost(ctx context.Context, id uint64) (*model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	SlugExists(ctx context.Context, slug string, excludeID uint64) (bool, error)
	UpdatePost(ctx context.Context, post *model.Post, tags []*model.Tag, replaceTags bool) error
	SoftDeletePost(ctx context.Context, id uint64) (int64, error)
	GetViewCount(ctx context.Context, id uint64) (int64, error)
	UpdateViewCount(ctx context.Context, id uint64, count int64) error
	SearchPosts(ctx context.Context, keyword string, skip, limit int) ([]*model.Post, error)
	ListPosts(ctx context.Context, skip, limit int, publishedOnly bool, tagID uint64) ([]*model.Post, error)
	GetPostsByUserId(ctx context.Context, userID uint64, skip, limit int) ([]*model.Post, error)
}

type PostRepoImpl struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepo {
	return &PostRepoImpl{
		db: db,
	}
}

func (s *PostRepoImpl) CreatePost(ctx context.Context, post *model.Post, tags []*model.Tag) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags").Create(post).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(post).Association("Tags").Append(tags); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPost 仅返回未软删除的文章
func (s *PostRepoImpl) GetPost(ctx context.Context, id uint64) (*model.Post, error) {
	post := &model.Post{}
	result := s.db.WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Where("id = ? AND deleted_at IS NULL", id).
		First(post)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return post, nil
}

func (s *PostRepoImpl) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post := &model.Post{}
	result := s.db.WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Where("slug = ? AND deleted_at IS NULL", slug).
		First(post)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return post, nil
}

// SlugExists 检查 slug 是否被任何行占用，软删除的行同样计入
func (s *PostRepoImpl) SlugExists(ctx context.Context, slug string, excludeID uint64) (bool, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("slug = ?", slug)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdatePost 全字段写回已加载并修改过的文章；replaceTags 为真时整体替换标签集合
func (s *PostRepoImpl) UpdatePost(ctx context.Context, post *model.Post, tags []*model.Tag, replaceTags bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := []string{"title", "slug", "content", "summary", "published", "cover_url"}
		result := tx.Model(&model.Post{ID: post.ID}).
			Select(fields).
			Updates(post)
		if result.Error != nil {
			return result.Error
		}

		if replaceTags {
			if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDeletePost 仅命中存活行，返回受影响行数供调用方区分重复删除
func (s *PostRepoImpl) SoftDeletePost(ctx context.Context, id uint64) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	return result.RowsAffected, result.Error
}

func (s *PostRepoImpl) GetViewCount(ctx context.Context, id uint64) (int64, error) {
	post := &model.Post{}
	result := s.db.WithContext(ctx).
		Select("view_count").
		Where("id = ?", id).
		First(post)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return post.ViewCount, nil
}

// UpdateViewCount 只允许快照单调递增
func (s *PostRepoImpl) UpdateViewCount(ctx context.Context, id uint64, count int64) error {
	return s.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ? AND view_count < ?", id, count).
		Update("view_count", count).Error
}

// SearchPosts 大小写不敏感的子串匹配，只命中存活且已发布的文章
func (s *PostRepoImpl) SearchPosts(ctx context.Context, keyword string, skip, limit int) ([]*model.Post, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"

	var posts []*model.Post
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Tags").
		Where("deleted_at IS NULL AND published = ?", true).
		Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostRepoImpl) ListPosts(ctx context.Context, skip, limit int, publishedOnly bool, tagID uint64) ([]*model.Post, error) {
	query := s.db.WithContext(ctx).
		Model(&model.Post{}).
		Preload("User").
		Preload("Tags").
		Where("posts.deleted_at IS NULL")

	if publishedOnly {
		query = query.Where("posts.published = ?", true)
	}
	if tagID > 0 {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Where("post_tags.tag_id = ?", tagID)
	}

	var posts []*model.Post
	err := query.
		Order("posts.created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostRepoImpl) GetPostsByUserId(ctx context.Context, userID uint64, skip, limit int) ([]*model.Post, error) {
	var posts []*model.Post
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}
