package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/internal/audit"
	"github.com/permbase/internal/authz"
	"github.com/permbase/internal/button"
	"github.com/permbase/internal/gateway"
	"github.com/permbase/internal/matrix"
	"github.com/permbase/internal/menu"
	"github.com/permbase/internal/model"
	"github.com/permbase/internal/role"
	"github.com/permbase/pkg/auth"
	"github.com/permbase/pkg/config"
	"github.com/permbase/pkg/database"
	"github.com/permbase/pkg/logger"
	"github.com/permbase/pkg/middleware"
	"github.com/permbase/pkg/response"
	"go.uber.org/zap"
)

// adminRoles 可执行写操作的管理角色
var adminRoles = []string{"SUPER_ADMIN", "ADMIN"}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		panic("加载配置失败: " + err.Error())
	}
	if err := logger.Init(config.GetLog()); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer logger.Sync()

	if err := database.Init(config.GetDatabase()); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&model.Role{},
		&model.Menu{},
		&model.ButtonPermission{},
		&model.RoleMenuGrant{},
		&model.RoleButtonGrant{},
		&model.User{},
		&model.AuditLog{},
	); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	if err := database.InitRedis(config.GetRedis()); err != nil {
		logger.Fatal("初始化Redis失败", zap.Error(err))
	}
	defer database.CloseRedis()

	if err := seed(database.Get()); err != nil {
		logger.Fatal("初始化种子数据失败", zap.Error(err))
	}

	app := newApp()

	// 定时清理过期审计日志
	var retention *audit.RetentionJob
	auditCfg := config.GetAudit()
	if auditCfg.PurgeEnabled {
		retention = audit.NewRetentionJob(
			audit.NewRepository(),
			auditCfg.RetentionDays,
			time.Duration(auditCfg.PurgeInterval)*time.Hour,
		)
		retention.Start()
	}

	go func() {
		addr := config.Get().Server.HTTP.Addr()
		logger.Info("HTTP服务启动", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭")
	if retention != nil {
		retention.Stop()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("HTTP服务关闭失败", zap.Error(err))
	}
	logger.Info("服务已退出")
}

// newApp 组装Fiber应用与全部路由
func newApp() *fiber.App {
	cfg := config.Get()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
	})

	app.Use(middleware.Recovery())
	app.Use(middleware.RequestID())
	app.Use(middleware.Cors())

	app.Get("/health", func(c *fiber.Ctx) error {
		return response.Success(c, fiber.Map{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	})

	jwtManager := auth.NewJWTManager(config.GetJWT())
	jwtMw := middleware.JWTAuth(jwtManager)
	adminGuard := middleware.RequireRole(adminRoles...)

	gw := gateway.New(database.Get())
	cache := database.NewCache("authz")

	authzRepo := authz.NewRepository()
	evaluator := authz.NewEvaluator(authzRepo, cache)

	api := app.Group("/api")
	role.NewController(role.NewRepository(), gw).RegisterRoutes(api, jwtMw, adminGuard)
	menu.NewController(menu.NewRepository(), gw).RegisterRoutes(api, jwtMw, adminGuard)
	button.NewController(button.NewRepository(), gw).RegisterRoutes(api, jwtMw, adminGuard)
	matrix.NewController(matrix.NewRepository(), gw, evaluator).RegisterRoutes(api, jwtMw, adminGuard)
	authz.NewController(authzRepo, evaluator).RegisterRoutes(api, jwtMw)
	audit.NewController(audit.NewRepository()).RegisterRoutes(api, jwtMw, adminGuard)

	return app
}
