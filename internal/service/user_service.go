package service

import (
	"Inkwell/internal/api/dto"
	"Inkwell/internal/model"
	"Inkwell/internal/pkg/consts"
	"Inkwell/internal/pkg/kafka"
	"Inkwell/internal/pkg/redis"
	"Inkwell/internal/pkg/security"
	"Inkwell/internal/repository"
	"context"
	"errors"
	log "log/slog"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type UserService interface {
	Register(ctx context.Context, in *dto.RegisterDTO) (*dto.UserDTO, error)
	Login(ctx context.Context, in *dto.CredentialDTO) (*dto.TokenDTO, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, userID uint64) (*dto.UserDTO, error)
	UpdateUserInfo(ctx context.Context, userID uint64, in *dto.UserUpdateDTO) (*dto.UserDTO, error)
}

type userServiceImpl struct {
	userRepo  repository.UserRepo
	publisher kafka.Publisher
}

func NewUserService(userRepo repository.UserRepo, publisher kafka.Publisher) UserService {
	return &userServiceImpl{
		userRepo:  userRepo,
		publisher: publisher,
	}
}

func (s *userServiceImpl) Register(ctx context.Context, in *dto.RegisterDTO) (*dto.UserDTO, error) {
	exist, err := s.userRepo.GetUserByUsername(ctx, in.Username)
	if err != nil {
		log.ErrorContext(ctx, "查询用户失败", "err", err)
		return nil, UnExpectedError
	}
	if exist != nil {
		return nil, ErrUsernameExist
	}

	exist, err = s.userRepo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		log.ErrorContext(ctx, "查询用户失败", "err", err)
		return nil, UnExpectedError
	}
	if exist != nil {
		return nil, ErrEmailExist
	}

	hashed, err := security.HashPassword(in.Password)
	if err != nil {
		log.ErrorContext(ctx, "密码加密失败", "err", err)
		return nil, UnExpectedError
	}

	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hashed,
		IsActive: true,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		// 预检查与写入之间可能被并发注册抢先
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameExist
		}
		log.ErrorContext(ctx, "创建用户失败", "err", err)
		return nil, UnExpectedError
	}

	s.publisher.Publish(kafka.NewEvent(kafka.EventUserRegistered, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	}))

	return s.toUserDTO(user), nil
}

func (s *userServiceImpl) Login(ctx context.Context, in *dto.CredentialDTO) (*dto.TokenDTO, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, in.Username)
	if err != nil {
		log.ErrorContext(ctx, "查询用户失败", "err", err)
		return nil, UnExpectedError
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if err := security.CheckPasswordHash(in.Password, user.Password); err != nil {
		return nil, ErrPasswordIncorrect
	}

	token, err := security.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		log.ErrorContext(ctx, "生成token失败", "err", err)
		return nil, UnExpectedError
	}
	return &dto.TokenDTO{Token: token}, nil
}

// Logout 将 token 签名拉黑至过期，认证中间件据此拒绝后续请求
func (s *userServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return UnauthorizedError
	}

	err = redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, "1", security.JWTExpirationTime)
	if err != nil {
		log.ErrorContext(ctx, "拉黑token失败", "err", err)
		return UnExpectedError
	}
	return nil
}

func (s *userServiceImpl) GetUserInfo(ctx context.Context, userID uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "查询用户失败", "user_id", userID, "err", err)
		return nil, UnExpectedError
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toUserDTO(user), nil
}

func (s *userServiceImpl) UpdateUserInfo(ctx context.Context, userID uint64, in *dto.UserUpdateDTO) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "查询用户失败", "user_id", userID, "err", err)
		return nil, UnExpectedError
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	fields := make([]string, 0, 2)
	if in.Email != nil && *in.Email != user.Email {
		exist, err := s.userRepo.GetUserByEmail(ctx, *in.Email)
		if err != nil {
			log.ErrorContext(ctx, "查询用户失败", "err", err)
			return nil, UnExpectedError
		}
		if exist != nil {
			return nil, ErrEmailExist
		}
		user.Email = *in.Email
		fields = append(fields, "email")
	}
	if in.Password != nil {
		hashed, err := security.HashPassword(*in.Password)
		if err != nil {
			log.ErrorContext(ctx, "密码加密失败", "err", err)
			return nil, UnExpectedError
		}
		user.Password = hashed
		fields = append(fields, "password")
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateUser(ctx, user, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrEmailExist
			}
			log.ErrorContext(ctx, "更新用户失败", "user_id", userID, "err", err)
			return nil, UnExpectedError
		}
	}

	return s.toUserDTO(user), nil
}

func (s *userServiceImpl) toUserDTO(user *model.User) *dto.UserDTO {
	result := &dto.UserDTO{}
	_ = copier.Copy(result, user)
	result.CreatedAt = user.CreatedAt.Format(timeLayout)
	return result
}
