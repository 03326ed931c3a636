package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid      = errors.New("参数错误")
	ErrTitleInvalid      = errors.New("标题无法生成有效的slug")
	ErrUserNotFound      = errors.New("用户不存在")
	ErrUserInactive      = errors.New("用户已被停用")
	ErrUsernameExist     = errors.New("用户名已存在")
	ErrEmailExist        = errors.New("邮箱已被注册")
	ErrPasswordIncorrect = errors.New("密码错误")
	ErrPostNotFound      = errors.New("文章不存在")
	ErrCommentNotFound   = errors.New("评论不存在")
	ErrSlugConflict      = errors.New("slug已被占用")
	ErrFileNotSupported  = errors.New("不支持的文件类型")
	UnauthorizedError    = errors.New("未登录或登录已过期")
	ForbiddenError       = errors.New("权限不足")
	UnExpectedError      = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:      BadRequest,
	ErrTitleInvalid:      BadRequest,
	ErrUserNotFound:      NotFound,
	ErrUserInactive:      Unauthorized,
	ErrUsernameExist:     Conflict,
	ErrEmailExist:        Conflict,
	ErrPasswordIncorrect: Unauthorized,
	ErrPostNotFound:      NotFound,
	ErrCommentNotFound:   NotFound,
	ErrSlugConflict:      Conflict,
	ErrFileNotSupported:  BadRequest,
	UnauthorizedError:    Unauthorized,
	ForbiddenError:       Forbidden,
	UnExpectedError:      InternalServerError,
}
