package api

import (
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			userGroup.POST("/register", group.UserHandler.Register)
			userGroup.POST("/login", group.UserHandler.Login)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetUserInfo)
				authGroup.PUT("/info", group.UserHandler.UpdateUserInfo)
			}
		}

		postGroup := apiGroup.Group("/posts")
		{
			// 匿名可读，携带 token 时草稿作者可见自己的内容
			readGroup := postGroup.Group("")
			readGroup.Use(middleware.AuthOptionalMiddleware())
			{
				readGroup.GET("", group.PostHandler.ListPosts)
				readGroup.GET("/search", group.PostHandler.SearchPosts)
				readGroup.GET("/detail/:post_id", group.PostHandler.GetPost)
				readGroup.GET("/slug/:slug", group.PostHandler.GetPostBySlug)
				readGroup.GET("/:post_id/comments", group.CommentHandler.ListComments)
			}

			authGroup := postGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("", group.PostHandler.CreatePost)
				authGroup.PUT("/:post_id", group.PostHandler.UpdatePost)
				authGroup.DELETE("/:post_id", group.PostHandler.DeletePost)
				authGroup.GET("/self", group.PostHandler.GetSelfPosts)
				authGroup.POST("/:post_id/comments", group.CommentHandler.CreateComment)
			}
		}

		apiGroup.GET("/tags", group.PostHandler.ListTags)

		commentGroup := apiGroup.Group("/comments")
		commentGroup.Use(middleware.AuthMiddleware())
		{
			commentGroup.PUT("/:comment_id", group.CommentHandler.UpdateComment)
			commentGroup.DELETE("/:comment_id", group.CommentHandler.DeleteComment)
		}

		mediaGroup := apiGroup.Group("/media")
		mediaGroup.Use(middleware.AuthMiddleware())
		{
			mediaGroup.POST("/upload", group.MediaHandler.Upload)
		}
	}

	return r
}
