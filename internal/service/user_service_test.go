package service

import (
	"Inkwell/internal/api/dto"
	"Inkwell/internal/pkg/kafka"
	"Inkwell/internal/pkg/util"
	"Inkwell/internal/repository"
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func setupUserTestEnv(t *testing.T) (UserService, *fakePublisher, *gorm.DB) {
	t.Helper()
	gdb := setupServiceTestDB(t)
	pub := &fakePublisher{}
	return NewUserService(repository.NewUserRepo(gdb), pub), pub, gdb
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc, pub, _ := setupUserTestEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &dto.RegisterDTO{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}
	if got := pub.countByType(kafka.EventUserRegistered); got != 1 {
		t.Fatalf("user_registered events = %d, want 1", got)
	}

	token, err := svc.Login(ctx, &dto.CredentialDTO{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token.Token == "" {
		t.Fatal("empty token on successful login")
	}
}

func TestUserService_RegisterDuplicates(t *testing.T) {
	svc, _, _ := setupUserTestEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterDTO{Username: "alice", Email: "alice@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(ctx, &dto.RegisterDTO{Username: "alice", Email: "other@example.com", Password: "secret123"}); !errors.Is(err, ErrUsernameExist) {
		t.Fatalf("duplicate username err = %v, want ErrUsernameExist", err)
	}
	if _, err := svc.Register(ctx, &dto.RegisterDTO{Username: "bob", Email: "alice@example.com", Password: "secret123"}); !errors.Is(err, ErrEmailExist) {
		t.Fatalf("duplicate email err = %v, want ErrEmailExist", err)
	}
}

func TestUserService_LoginFailures(t *testing.T) {
	svc, _, gdb := setupUserTestEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &dto.RegisterDTO{Username: "alice", Email: "alice@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, &dto.CredentialDTO{Username: "nobody", Password: "secret123"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v, want ErrUserNotFound", err)
	}
	if _, err := svc.Login(ctx, &dto.CredentialDTO{Username: "alice", Password: "wrong"}); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("wrong password err = %v, want ErrPasswordIncorrect", err)
	}

	if err := gdb.Table("users").Where("username = ?", "alice").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.CredentialDTO{Username: "alice", Password: "secret123"}); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("inactive user err = %v, want ErrUserInactive", err)
	}
}

func TestUserService_UpdateUserInfo(t *testing.T) {
	svc, _, _ := setupUserTestEnv(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &dto.RegisterDTO{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err = svc.Register(ctx, &dto.RegisterDTO{Username: "bob", Email: "bob@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 部分更新：只改邮箱
	updated, err := svc.UpdateUserInfo(ctx, user.ID, &dto.UserUpdateDTO{Email: util.PtrString("alice@new.example.com")})
	if err != nil {
		t.Fatalf("update email: %v", err)
	}
	if updated.Email != "alice@new.example.com" || updated.Username != "alice" {
		t.Fatalf("unexpected user after update: %+v", updated)
	}

	// 占用他人邮箱被拒绝
	if _, err = svc.UpdateUserInfo(ctx, user.ID, &dto.UserUpdateDTO{Email: util.PtrString("bob@example.com")}); !errors.Is(err, ErrEmailExist) {
		t.Fatalf("taken email err = %v, want ErrEmailExist", err)
	}

	// 改密码后旧密码失效
	if _, err = svc.UpdateUserInfo(ctx, user.ID, &dto.UserUpdateDTO{Password: util.PtrString("newsecret")}); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err = svc.Login(ctx, &dto.CredentialDTO{Username: "alice", Password: "secret123"}); !errors.Is(err, ErrPasswordIncorrect) {
		t.Fatalf("old password err = %v, want ErrPasswordIncorrect", err)
	}
	if _, err = svc.Login(ctx, &dto.CredentialDTO{Username: "alice", Password: "newsecret"}); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}
