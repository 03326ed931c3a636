package service

import (
	"Inkwell/internal/api/dto"
	"Inkwell/internal/model"
	"Inkwell/internal/pkg/kafka"
	"Inkwell/internal/pkg/util"
	"Inkwell/internal/repository"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&model.User{}, &model.Tag{}, &model.Post{}, &model.Comment{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

type fakeCounterRepo struct {
	counts  map[uint64]int64
	failing bool
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counts: make(map[uint64]int64)}
}

func (f *fakeCounterRepo) IncrPostView(_ context.Context, postID uint64) (int64, error) {
	if f.failing {
		return 0, errors.New("redis down")
	}
	f.counts[postID]++
	return f.counts[postID], nil
}

func (f *fakeCounterRepo) GetPostView(_ context.Context, postID uint64) (int64, error) {
	if f.failing {
		return 0, errors.New("redis down")
	}
	return f.counts[postID], nil
}

func (f *fakeCounterRepo) CollectDirty(_ context.Context) ([]uint64, error) {
	if f.failing {
		return nil, errors.New("redis down")
	}
	ids := make([]uint64, 0, len(f.counts))
	for id := range f.counts {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakePublisher struct {
	events []*kafka.Event
}

func (f *fakePublisher) Publish(event *kafka.Event) {
	f.events = append(f.events, event)
}

func (f *fakePublisher) lastByType(eventType string) *kafka.Event {
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Type == eventType {
			return f.events[i]
		}
	}
	return nil
}

func (f *fakePublisher) countByType(eventType string) int {
	n := 0
	for _, e := range f.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type postTestEnv struct {
	gdb      *gorm.DB
	svc      PostService
	postRepo repository.PostRepo
	counter  *fakeCounterRepo
	pub      *fakePublisher
	user     *model.User
}

func setupPostTestEnv(t *testing.T) *postTestEnv {
	t.Helper()
	gdb := setupServiceTestDB(t)

	user := &model.User{Username: "author", Email: "author@example.com", Password: "x", IsActive: true}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	postRepo := repository.NewPostRepository(gdb)
	tagRepo := repository.NewTagRepo(gdb)
	counter := newFakeCounterRepo()
	pub := &fakePublisher{}

	return &postTestEnv{
		gdb:      gdb,
		svc:      NewPostService(postRepo, tagRepo, counter, pub),
		postRepo: postRepo,
		counter:  counter,
		pub:      pub,
		user:     user,
	}
}

func TestPostService_SlugSequence(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	wants := []string{"hello-world", "hello-world-1", "hello-world-2"}
	for i, want := range wants {
		post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{
			Title:   "Hello World",
			Content: fmt.Sprintf("正文 %d", i),
		})
		if err != nil {
			t.Fatalf("create post %d: %v", i, err)
		}
		if post.Slug != want {
			t.Fatalf("post %d slug = %q, want %q", i, post.Slug, want)
		}
	}
}

func TestPostService_SlugNotRecycledAfterDelete(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Hello World", Content: "正文"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := env.svc.DeletePost(ctx, env.user.ID, false, first.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	second, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Hello World", Content: "正文"})
	if err != nil {
		t.Fatalf("recreate post: %v", err)
	}
	if second.Slug != "hello-world-1" {
		t.Fatalf("slug after delete = %q, want %q", second.Slug, "hello-world-1")
	}
}

func TestPostService_CreateRejectsUnsluggableTitle(t *testing.T) {
	env := setupPostTestEnv(t)

	_, err := env.svc.CreatePost(context.Background(), env.user.ID, &dto.PostCreateDTO{Title: "???", Content: "正文"})
	if !errors.Is(err, ErrTitleInvalid) {
		t.Fatalf("err = %v, want ErrTitleInvalid", err)
	}
}

func TestPostService_PartialUpdate(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{
		Title:     "Original Title",
		Content:   "原始正文",
		Published: true,
		Tags:      []string{"go", "web"},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	updated, err := env.svc.UpdatePost(ctx, env.user.ID, false, post.ID, &dto.PostUpdateDTO{
		Summary: util.PtrString("新摘要"),
	})
	if err != nil {
		t.Fatalf("update post: %v", err)
	}

	if updated.Title != "Original Title" || updated.Content != "原始正文" {
		t.Fatalf("untouched fields changed: title=%q content=%q", updated.Title, updated.Content)
	}
	if updated.Slug != post.Slug {
		t.Fatalf("slug changed without title change: %q -> %q", post.Slug, updated.Slug)
	}
	if updated.Summary == nil || *updated.Summary != "新摘要" {
		t.Fatalf("summary not updated: %v", updated.Summary)
	}
	if !updated.Published {
		t.Fatal("published flag lost on partial update")
	}
	if len(updated.Tags) != 2 {
		t.Fatalf("tags changed without tags field: %v", updated.Tags)
	}
}

func TestPostService_UpdateReplacesTags(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{
		Title:   "Tagged Post",
		Content: "正文",
		Tags:    []string{"go", "web"},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	newTags := []string{"go", "redis"}
	updated, err := env.svc.UpdatePost(ctx, env.user.ID, false, post.ID, &dto.PostUpdateDTO{Tags: &newTags})
	if err != nil {
		t.Fatalf("update post: %v", err)
	}

	got := make(map[string]struct{}, len(updated.Tags))
	for _, name := range updated.Tags {
		got[name] = struct{}{}
	}
	if len(got) != 2 {
		t.Fatalf("tag count = %d, want 2: %v", len(got), updated.Tags)
	}
	for _, want := range newTags {
		if _, ok := got[want]; !ok {
			t.Fatalf("tag %q missing after replace: %v", want, updated.Tags)
		}
	}
}

func TestPostService_UpdateForbiddenForNonOwner(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	other := &model.User{Username: "intruder", Email: "intruder@example.com", Password: "x", IsActive: true}
	if err := env.gdb.Create(other).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Mine", Content: "原始正文", Published: true})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	_, err = env.svc.UpdatePost(ctx, other.ID, false, post.ID, &dto.PostUpdateDTO{Content: util.PtrString("篡改")})
	if !errors.Is(err, ForbiddenError) {
		t.Fatalf("err = %v, want ForbiddenError", err)
	}

	reloaded, err := env.svc.GetPost(ctx, env.user.ID, post.ID)
	if err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.Content != "原始正文" {
		t.Fatalf("content mutated by forbidden update: %q", reloaded.Content)
	}

	if err = env.svc.DeletePost(ctx, other.ID, false, post.ID); !errors.Is(err, ForbiddenError) {
		t.Fatalf("delete err = %v, want ForbiddenError", err)
	}
}

func TestPostService_AdminCanModifyAnyPost(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Mine", Content: "正文"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if _, err = env.svc.UpdatePost(ctx, 999, true, post.ID, &dto.PostUpdateDTO{Content: util.PtrString("管理员修订")}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if err = env.svc.DeletePost(ctx, 999, true, post.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestPostService_DeleteTwice(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Doomed", Content: "正文", Published: true})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err = env.svc.DeletePost(ctx, env.user.ID, false, post.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err = env.svc.DeletePost(ctx, env.user.ID, false, post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("second delete err = %v, want ErrPostNotFound", err)
	}
	if env.pub.countByType(kafka.EventPostDeleted) != 1 {
		t.Fatalf("post_deleted events = %d, want 1", env.pub.countByType(kafka.EventPostDeleted))
	}
}

func TestPostService_PublishEventOnlyForPublishedCreate(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Draft", Content: "正文"}); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if got := env.pub.countByType(kafka.EventPostPublished); got != 0 {
		t.Fatalf("post_published events after draft = %d, want 0", got)
	}

	if _, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Live", Content: "正文", Published: true}); err != nil {
		t.Fatalf("create published: %v", err)
	}
	if got := env.pub.countByType(kafka.EventPostPublished); got != 1 {
		t.Fatalf("post_published events = %d, want 1", got)
	}
}

func TestPostService_EventPayloads(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Event Rich", Content: "正文", Published: true})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	published := env.pub.lastByType(kafka.EventPostPublished)
	if published == nil {
		t.Fatal("post_published event missing")
	}
	if published.Payload["post_id"] != post.ID {
		t.Fatalf("post_published post_id = %v, want %d", published.Payload["post_id"], post.ID)
	}
	if published.Payload["title"] != "Event Rich" {
		t.Fatalf("post_published title = %v, want %q", published.Payload["title"], "Event Rich")
	}
	if published.Payload["author_id"] != env.user.ID {
		t.Fatalf("post_published author_id = %v, want %d", published.Payload["author_id"], env.user.ID)
	}

	if err = env.svc.DeletePost(ctx, env.user.ID, false, post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	deleted := env.pub.lastByType(kafka.EventPostDeleted)
	if deleted == nil {
		t.Fatal("post_deleted event missing")
	}
	if deleted.Payload["post_id"] != post.ID {
		t.Fatalf("post_deleted post_id = %v, want %d", deleted.Payload["post_id"], post.ID)
	}
	if deleted.Payload["title"] != "Event Rich" {
		t.Fatalf("post_deleted title = %v, want %q", deleted.Payload["title"], "Event Rich")
	}
	if deleted.Payload["author_id"] != env.user.ID {
		t.Fatalf("post_deleted author_id = %v, want %d", deleted.Payload["author_id"], env.user.ID)
	}
}

func TestPostService_UpdateNotifyPolicy(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Live", Content: "正文", Published: true})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	// 未显式携带 published 的内容修订不通知
	if _, err = env.svc.UpdatePost(ctx, env.user.ID, false, post.ID, &dto.PostUpdateDTO{Content: util.PtrString("修订")}); err != nil {
		t.Fatalf("content update: %v", err)
	}
	if got := env.pub.countByType(kafka.EventPostUpdated); got != 0 {
		t.Fatalf("post_updated events after content-only update = %d, want 0", got)
	}

	// 显式携带 published=true 且文章处于发布态才通知
	if _, err = env.svc.UpdatePost(ctx, env.user.ID, false, post.ID, &dto.PostUpdateDTO{Published: util.PtrBool(true)}); err != nil {
		t.Fatalf("publish update: %v", err)
	}
	if got := env.pub.countByType(kafka.EventPostUpdated); got != 1 {
		t.Fatalf("post_updated events = %d, want 1", got)
	}

	// 撤回发布不通知
	if _, err = env.svc.UpdatePost(ctx, env.user.ID, false, post.ID, &dto.PostUpdateDTO{Published: util.PtrBool(false)}); err != nil {
		t.Fatalf("unpublish update: %v", err)
	}
	if got := env.pub.countByType(kafka.EventPostUpdated); got != 1 {
		t.Fatalf("post_updated events after unpublish = %d, want 1", got)
	}
}

func TestPostService_DraftVisibleToOwnerOnly(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	draft, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Secret Draft", Content: "正文"})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	if _, err = env.svc.GetPost(ctx, env.user.ID, draft.ID); err != nil {
		t.Fatalf("owner read draft: %v", err)
	}
	if _, err = env.svc.GetPost(ctx, 0, draft.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("anonymous read draft err = %v, want ErrPostNotFound", err)
	}
	if _, err = env.svc.GetPostBySlug(ctx, 0, draft.Slug); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("anonymous read draft by slug err = %v, want ErrPostNotFound", err)
	}

	// 草稿的读取不计入浏览数
	if len(env.counter.counts) != 0 {
		t.Fatalf("draft reads recorded views: %v", env.counter.counts)
	}
}

func TestPostService_ViewFlushBoundary(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Hot Post", Content: "正文", Published: true})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err = env.gdb.Model(&model.Post{}).Where("id = ?", post.ID).Update("view_count", 90).Error; err != nil {
		t.Fatalf("seed view count: %v", err)
	}
	env.counter.counts[post.ID] = 90

	// 91..99：增量不足且未到整百，不落库
	for i := 0; i < 9; i++ {
		if _, err = env.svc.GetPost(ctx, 0, post.ID); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	count, err := env.postRepo.GetViewCount(ctx, post.ID)
	if err != nil {
		t.Fatalf("get view count: %v", err)
	}
	if count != 90 {
		t.Fatalf("view count flushed early: %d, want 90", count)
	}

	// 第 100 次：增量到达阈值且命中整百，落库
	result, err := env.svc.GetPost(ctx, 0, post.ID)
	if err != nil {
		t.Fatalf("boundary read: %v", err)
	}
	count, err = env.postRepo.GetViewCount(ctx, post.ID)
	if err != nil {
		t.Fatalf("get view count: %v", err)
	}
	if count != 100 {
		t.Fatalf("view count after boundary = %d, want 100", count)
	}
	if result.ViewCount != 100 {
		t.Fatalf("returned view count = %d, want 100", result.ViewCount)
	}
}

func TestPostService_CounterFailureTolerated(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{Title: "Resilient", Content: "正文", Published: true})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	env.counter.failing = true
	result, err := env.svc.GetPost(ctx, 0, post.ID)
	if err != nil {
		t.Fatalf("read with failing counter: %v", err)
	}
	if result.ViewCount != 0 {
		t.Fatalf("view count with failing counter = %d, want 0", result.ViewCount)
	}
}

func TestPostService_SearchAndList(t *testing.T) {
	env := setupPostTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{
		Title: "Gopher Diaries", Content: "关于 Concurrency 的笔记", Published: true, Tags: []string{"go"},
	}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := env.svc.CreatePost(ctx, env.user.ID, &dto.PostCreateDTO{
		Title: "Hidden Draft", Content: "concurrency 草稿",
	}); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	// 搜索大小写不敏感，且草稿不可见
	results, err := env.svc.SearchPosts(ctx, "CONCURRENCY", 0, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Gopher Diaries" {
		t.Fatalf("unexpected search results: %+v", results)
	}

	// 列表仅含已发布文章
	posts, err := env.svc.ListPosts(ctx, 0, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("list size = %d, want 1", len(posts))
	}

	// 作者可在自己的列表里看到草稿
	own, err := env.svc.GetPostsByUser(ctx, env.user.ID, 0, 10)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("own list size = %d, want 2", len(own))
	}
}
