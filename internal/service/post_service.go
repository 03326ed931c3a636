package service

import (
	"Inkwell/internal/api/dto"
	"Inkwell/internal/model"
	"Inkwell/internal/pkg/kafka"
	"Inkwell/internal/repository"
	"Inkwell/internal/pkg/util"
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"gorm.io/gorm"
)

const (
	// 浏览数回写策略：增量达到阈值或命中整百时落库
	viewFlushDelta    = 10
	viewFlushInterval = 100

	timeLayout = "2006-01-02 15:04:05"
)

type PostService interface {
	CreatePost(ctx context.Context, userID uint64, in *dto.PostCreateDTO) (*dto.PostDTO, error)
	UpdatePost(ctx context.Context, userID uint64, isAdmin bool, postID uint64, in *dto.PostUpdateDTO) (*dto.PostDTO, error)
	DeletePost(ctx context.Context, userID uint64, isAdmin bool, postID uint64) error
	GetPost(ctx context.Context, viewerID uint64, postID uint64) (*dto.PostDTO, error)
	GetPostBySlug(ctx context.Context, viewerID uint64, slug string) (*dto.PostDTO, error)
	SearchPosts(ctx context.Context, keyword string, skip, limit int) ([]*dto.PostDTO, error)
	ListPosts(ctx context.Context, skip, limit int, tagID uint64) ([]*dto.PostDTO, error)
	GetPostsByUser(ctx context.Context, userID uint64, skip, limit int) ([]*dto.PostDTO, error)
	ListTags(ctx context.Context) ([]*dto.TagDTO, error)
}

type postServiceImpl struct {
	postRepo    repository.PostRepo
	tagRepo     repository.TagRepo
	counterRepo repository.CounterRepo
	publisher   kafka.Publisher
}

func NewPostService(postRepo repository.PostRepo, tagRepo repository.TagRepo, counterRepo repository.CounterRepo, publisher kafka.Publisher) PostService {
	return &postServiceImpl{
		postRepo:    postRepo,
		tagRepo:     tagRepo,
		counterRepo: counterRepo,
		publisher:   publisher,
	}
}

// allocateSlug 从标题派生基础 slug，被占用时追加递增后缀探测
// 探测与落库之间存在竞争窗口，由唯一索引兜底
func (s *postServiceImpl) allocateSlug(ctx context.Context, title string, excludeID uint64) (string, error) {
	base := util.Slugify(title)
	if base == "" {
		return "", ErrTitleInvalid
	}

	candidate := base
	for i := 1; ; i++ {
		exists, err := s.postRepo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", UnExpectedError
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *postServiceImpl) CreatePost(ctx context.Context, userID uint64, in *dto.PostCreateDTO) (*dto.PostDTO, error) {
	tags, err := s.tagRepo.GetOrCreateByNames(ctx, in.Tags)
	if err != nil {
		log.ErrorContext(ctx, "创建标签失败", "err", err)
		return nil, UnExpectedError
	}

	post := &model.Post{
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		Summary:   in.Summary,
		Published: in.Published,
		CoverURL:  in.CoverURL,
	}

	// 唯一索引冲突说明探测后被并发占用，重新分配一次
	for attempt := 0; attempt < 2; attempt++ {
		post.Slug, err = s.allocateSlug(ctx, in.Title, 0)
		if err != nil {
			return nil, err
		}

		err = s.postRepo.CreatePost(ctx, post, tags)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.ErrorContext(ctx, "创建文章失败", "err", err)
			return nil, UnExpectedError
		}
	}
	if err != nil {
		return nil, ErrSlugConflict
	}

	if post.Published {
		s.publisher.Publish(kafka.NewEvent(kafka.EventPostPublished, map[string]any{
			"post_id":   post.ID,
			"title":     post.Title,
			"author_id": post.UserID,
			"slug":      post.Slug,
		}))
	}

	created, err := s.postRepo.GetPost(ctx, post.ID)
	if err != nil || created == nil {
		log.ErrorContext(ctx, "回读文章失败", "post_id", post.ID, "err", err)
		return nil, UnExpectedError
	}
	return s.toPostDTO(created), nil
}

func (s *postServiceImpl) UpdatePost(ctx context.Context, userID uint64, isAdmin bool, postID uint64, in *dto.PostUpdateDTO) (*dto.PostDTO, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		log.ErrorContext(ctx, "查询文章失败", "post_id", postID, "err", err)
		return nil, UnExpectedError
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID && !isAdmin {
		return nil, ForbiddenError
	}

	titleChanged := in.Title != nil && *in.Title != post.Title
	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Summary != nil {
		post.Summary = in.Summary
	}
	if in.Published != nil {
		post.Published = *in.Published
	}
	if in.CoverURL != nil {
		post.CoverURL = in.CoverURL
	}

	var tags []*model.Tag
	replaceTags := in.Tags != nil
	if replaceTags {
		tags, err = s.tagRepo.GetOrCreateByNames(ctx, *in.Tags)
		if err != nil {
			log.ErrorContext(ctx, "创建标签失败", "err", err)
			return nil, UnExpectedError
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		if titleChanged {
			post.Slug, err = s.allocateSlug(ctx, post.Title, post.ID)
			if err != nil {
				return nil, err
			}
		}

		err = s.postRepo.UpdatePost(ctx, post, tags, replaceTags)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || !titleChanged {
			log.ErrorContext(ctx, "更新文章失败", "post_id", postID, "err", err)
			return nil, UnExpectedError
		}
	}
	if err != nil {
		return nil, ErrSlugConflict
	}

	// 仅当本次请求显式携带 published 且文章处于发布态时通知
	if in.Published != nil && post.Published {
		s.publisher.Publish(kafka.NewEvent(kafka.EventPostUpdated, map[string]any{
			"post_id":   post.ID,
			"title":     post.Title,
			"author_id": post.UserID,
			"slug":      post.Slug,
		}))
	}

	updated, err := s.postRepo.GetPost(ctx, post.ID)
	if err != nil || updated == nil {
		log.ErrorContext(ctx, "回读文章失败", "post_id", post.ID, "err", err)
		return nil, UnExpectedError
	}
	return s.toPostDTO(updated), nil
}

func (s *postServiceImpl) DeletePost(ctx context.Context, userID uint64, isAdmin bool, postID uint64) error {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		log.ErrorContext(ctx, "查询文章失败", "post_id", postID, "err", err)
		return UnExpectedError
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.UserID != userID && !isAdmin {
		return ForbiddenError
	}

	rows, err := s.postRepo.SoftDeletePost(ctx, postID)
	if err != nil {
		log.ErrorContext(ctx, "删除文章失败", "post_id", postID, "err", err)
		return UnExpectedError
	}
	// 并发下可能已被别的请求删掉，删除不幂等
	if rows == 0 {
		return ErrPostNotFound
	}

	s.publisher.Publish(kafka.NewEvent(kafka.EventPostDeleted, map[string]any{
		"post_id":   post.ID,
		"title":     post.Title,
		"author_id": post.UserID,
		"slug":      post.Slug,
	}))
	return nil
}

func (s *postServiceImpl) GetPost(ctx context.Context, viewerID uint64, postID uint64) (*dto.PostDTO, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		log.ErrorContext(ctx, "查询文章失败", "post_id", postID, "err", err)
		return nil, UnExpectedError
	}
	return s.viewPost(ctx, viewerID, post)
}

func (s *postServiceImpl) GetPostBySlug(ctx context.Context, viewerID uint64, slug string) (*dto.PostDTO, error) {
	post, err := s.postRepo.GetPostBySlug(ctx, slug)
	if err != nil {
		log.ErrorContext(ctx, "查询文章失败", "slug", slug, "err", err)
		return nil, UnExpectedError
	}
	return s.viewPost(ctx, viewerID, post)
}

// viewPost 草稿仅作者可见，其余访问者一律视为不存在；已发布文章的读取计入浏览数
func (s *postServiceImpl) viewPost(ctx context.Context, viewerID uint64, post *model.Post) (*dto.PostDTO, error) {
	if post == nil {
		return nil, ErrPostNotFound
	}
	if !post.Published && post.UserID != viewerID {
		return nil, ErrPostNotFound
	}

	result := s.toPostDTO(post)
	if post.Published {
		if count := s.recordView(ctx, post); count > result.ViewCount {
			result.ViewCount = count
		}
	}
	return result, nil
}

// recordView 热路径只写 Redis，按策略把快照落回 MySQL
// 计数属于尽力而为，任何一步失败都只记日志不影响读取
func (s *postServiceImpl) recordView(ctx context.Context, post *model.Post) int64 {
	newCount, err := s.counterRepo.IncrPostView(ctx, post.ID)
	if err != nil {
		log.WarnContext(ctx, "浏览数自增失败", "post_id", post.ID, "err", err)
		return 0
	}

	if newCount-post.ViewCount >= viewFlushDelta || newCount%viewFlushInterval == 0 {
		if err := s.postRepo.UpdateViewCount(ctx, post.ID, newCount); err != nil {
			log.WarnContext(ctx, "浏览数落库失败", "post_id", post.ID, "count", newCount, "err", err)
		}
	}
	return newCount
}

func (s *postServiceImpl) SearchPosts(ctx context.Context, keyword string, skip, limit int) ([]*dto.PostDTO, error) {
	posts, err := s.postRepo.SearchPosts(ctx, keyword, skip, limit)
	if err != nil {
		log.ErrorContext(ctx, "搜索文章失败", "keyword", keyword, "err", err)
		return nil, UnExpectedError
	}
	return s.toPostDTOs(posts), nil
}

func (s *postServiceImpl) ListPosts(ctx context.Context, skip, limit int, tagID uint64) ([]*dto.PostDTO, error) {
	posts, err := s.postRepo.ListPosts(ctx, skip, limit, true, tagID)
	if err != nil {
		log.ErrorContext(ctx, "查询文章列表失败", "err", err)
		return nil, UnExpectedError
	}
	return s.toPostDTOs(posts), nil
}

func (s *postServiceImpl) GetPostsByUser(ctx context.Context, userID uint64, skip, limit int) ([]*dto.PostDTO, error) {
	posts, err := s.postRepo.GetPostsByUserId(ctx, userID, skip, limit)
	if err != nil {
		log.ErrorContext(ctx, "查询用户文章失败", "user_id", userID, "err", err)
		return nil, UnExpectedError
	}
	return s.toPostDTOs(posts), nil
}

func (s *postServiceImpl) ListTags(ctx context.Context) ([]*dto.TagDTO, error) {
	tags, err := s.tagRepo.ListTags(ctx)
	if err != nil {
		log.ErrorContext(ctx, "查询标签列表失败", "err", err)
		return nil, UnExpectedError
	}

	result := make([]*dto.TagDTO, 0, len(tags))
	for _, tag := range tags {
		result = append(result, &dto.TagDTO{ID: tag.ID, Name: tag.Name})
	}
	return result, nil
}

// toPostDTO 标签和时间戳的形状与模型不一致，手工转换
func (s *postServiceImpl) toPostDTO(post *model.Post) *dto.PostDTO {
	tagNames := make([]string, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tagNames = append(tagNames, tag.Name)
	}

	return &dto.PostDTO{
		ID:        post.ID,
		Title:     post.Title,
		Slug:      post.Slug,
		Content:   post.Content,
		Summary:   post.Summary,
		Published: post.Published,
		CoverURL:  post.CoverURL,
		ViewCount: post.ViewCount,
		UserID:    post.UserID,
		Username:  post.User.Username,
		Tags:      tagNames,
		CreatedAt: post.CreatedAt.Format(timeLayout),
		UpdatedAt: post.UpdatedAt.Format(timeLayout),
	}
}

func (s *postServiceImpl) toPostDTOs(posts []*model.Post) []*dto.PostDTO {
	result := make([]*dto.PostDTO, 0, len(posts))
	for _, post := range posts {
		result = append(result, s.toPostDTO(post))
	}
	return result
}
