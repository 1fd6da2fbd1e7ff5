package router

import (
	"parallel/internal/handlers"
	"parallel/internal/middleware"
	"parallel/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 路由需要的全部依赖，在 main 中组装
type Deps struct {
	DB          *gorm.DB
	Auth        *services.AuthService
	AI          *services.AIService
	Recommender *services.Recommender
}

// New 创建带公共中间件的 engine 并注册全部路由
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.LoadUser(deps.Auth, deps.DB))
	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Auth)
	decisionHandler := handlers.NewDecisionHandler(deps.DB, deps.AI, deps.Recommender)
	voteHandler := handlers.NewVoteHandler(deps.DB)
	commentHandler := handlers.NewCommentHandler(deps.DB)
	userHandler := handlers.NewUserHandler(deps.DB, deps.AI)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.DB)

	r.GET("/", handlers.Root) // 存活检查

	api := r.Group("/api")

	// 认证 (Auth)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)                     // 注册
		auth.POST("/login", authHandler.Login)                           // 登录，返回 access_token
		auth.GET("/me", middleware.AuthRequired(), authHandler.Me)       // 当前用户
		auth.PUT("/me", middleware.AuthRequired(), authHandler.UpdateMe) // 更新简介与头像
	}

	// 决定 (Decisions)
	decisions := api.Group("/decisions")
	{
		decisions.POST("/", decisionHandler.Create)                  // 发布，user_id 缺省为当前用户
		decisions.GET("/", decisionHandler.List)                     // 列表，支持分页与过滤
		decisions.GET("/recommend/:text", decisionHandler.Recommend) // 基于相似决定的共识推荐
		decisions.GET("/:id", decisionHandler.Get)                   // 详情
	}

	// 投票 (Votes)
	api.POST("/votes/", voteHandler.Vote)
	api.GET("/votes/:decision_id", voteHandler.Counts)

	// 评论 (Comments)
	comments := api.Group("/comments")
	{
		comments.POST("/", middleware.AuthRequired(), commentHandler.Create)
		comments.GET("/:decision_id", commentHandler.List)
		comments.DELETE("/:comment_id", middleware.AuthRequired(), commentHandler.Delete) // 只能删除自己的评论
	}

	// 用户 (Users)
	users := api.Group("/users")
	{
		users.POST("/", userHandler.CreateDeprecated) // 已废弃，改用 /api/auth/register
		users.GET("/search", userHandler.Search)
		users.GET("/:id", userHandler.Profile)
		users.POST("/:id/follow/:target_id", userHandler.Follow)
		users.DELETE("/:id/follow/:target_id", userHandler.Unfollow)
		users.GET("/:id/following", userHandler.Following)
		users.GET("/:id/followers", userHandler.Followers)
		users.GET("/:id/decisions", userHandler.Decisions)
		users.GET("/:id/personality", userHandler.Personality)
		users.GET("/:id/life-areas", userHandler.LifeAreas)
	}

	api.GET("/leaderboard/", leaderboardHandler.Top)
	api.GET("/about/", handlers.About)
}
