package repository

import (
	"Inkwell/internal/model"
	"context"
	"strings"

	"gorm.io/gorm"
)

type TagRepo interface {
	GetOrCreateByNames(ctx context.Context, names []string) ([]*model.Tag, error)
	ListTags(ctx context.Context) ([]*model.Tag, error)
}

type TagRepoImpl struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) TagRepo {
	return &TagRepoImpl{db: db}
}

// GetOrCreateByNames 按名称去重后逐个 FirstOrCreate，空白名称直接丢弃
func (s *TagRepoImpl) GetOrCreateByNames(ctx context.Context, names []string) ([]*model.Tag, error) {
	seen := make(map[string]struct{}, len(names))
	tags := make([]*model.Tag, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		tag := &model.Tag{}
		err := s.db.WithContext(ctx).
			Where("name = ?", name).
			FirstOrCreate(tag, &model.Tag{Name: name}).Error
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	return tags, nil
}

func (s *TagRepoImpl) ListTags(ctx context.Context) ([]*model.Tag, error) {
	var tags []*model.Tag
	err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}
