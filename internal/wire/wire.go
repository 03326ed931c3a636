package wire

import (
	"Inkwell/internal/api"
	"Inkwell/internal/api/config"
	"Inkwell/internal/api/handler"
	"Inkwell/internal/job"
	"Inkwell/internal/pkg/cron"
	"Inkwell/internal/pkg/kafka"
	"Inkwell/internal/repository"
	"Inkwell/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router   *gin.Engine
	DB       *gorm.DB
	Producer *kafka.Producer
	CronMgr  *cron.Manager
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepo(db)
	postRepo := repository.NewPostRepository(db)
	tagRepo := repository.NewTagRepo(db)
	commentRepo := repository.NewCommentRepo(db)
	counterRepo := repository.NewCounterRepo()

	userService := service.NewUserService(userRepo, producer)
	postService := service.NewPostService(postRepo, tagRepo, counterRepo, producer)
	commentService := service.NewCommentService(commentRepo, postRepo, producer)

	handlers := &api.HandlersGroup{
		UserHandler:    handler.NewUserHandler(userService),
		PostHandler:    handler.NewPostHandler(postService),
		CommentHandler: handler.NewCommentHandler(commentService),
		MediaHandler:   handler.NewMediaHandler(),
	}

	router := api.SetupRouter(handlers)

	viewSyncJob := job.NewViewSyncJob(postRepo, counterRepo)
	cronMgr := cron.NewCronManager(viewSyncJob)

	return &ApplicationContainer{
		Router:   router,
		DB:       db,
		Producer: producer,
		CronMgr:  cronMgr,
	}, nil
}
