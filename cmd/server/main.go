package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/buildmart/internal/config"
	"github.com/bitfantasy/buildmart/internal/market/consumer"
	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/handler"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/middleware"
	"github.com/bitfantasy/buildmart/internal/shared/mq"
	"github.com/bitfantasy/buildmart/internal/shared/sms"
	"github.com/bitfantasy/buildmart/internal/shared/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting buildmart service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis：刷新令牌与验证码
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis not reachable", zap.Error(err))
	}

	// MinIO：商品图片
	store, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		zapLogger.Fatal("Failed to init object storage", zap.Error(err))
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		zapLogger.Warn("Failed to ensure bucket", zap.Error(err))
	}

	// 短信
	smsSender := sms.New(cfg.SMS, zapLogger)

	// 业务装配
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, smsSender, store, cfg, zapLogger)

	// RabbitMQ：支付延迟完成
	rmq, err := mq.NewRabbitMQ(cfg.RabbitMQ.URL())
	if err != nil {
		zapLogger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
	}
	defer rmq.Close()
	if err := rmq.SetupQueues(); err != nil {
		zapLogger.Fatal("Failed to declare queues", zap.Error(err))
	}
	services.Payment.SetScheduler(consumer.NewScheduler(rmq))

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	paymentConsumer := consumer.NewPaymentConsumer(rmq, services.Payment, zapLogger)
	if err := paymentConsumer.Start(consumerCtx); err != nil {
		zapLogger.Fatal("Failed to start payment consumer", zap.Error(err))
	}

	handlers := handler.NewHandlers(services, cfg)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Prometheus())

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh-token", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
			auth.POST("/otp/generate", h.Auth.GenerateOTP)
			auth.POST("/otp/verify", h.Auth.VerifyOTP)
		}

		// 需要登录的路由
		authorized := v1.Group("", middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.GET("/auth/me", h.Auth.Me)

			// 用户管理
			users := authorized.Group("/users", middleware.RequirePermission(entity.PermUserManage))
			{
				users.GET("", h.Auth.ListUsers)
				users.PUT("/:id/status", h.Auth.SetUserStatus)
			}

			// 商品与定价
			inventory := authorized.Group("/inventory")
			{
				inventory.GET("", h.Inventory.ListItems)
				inventory.GET("/categories", h.Inventory.Categories)
				inventory.GET("/price/:itemCode", h.Inventory.GetPrice)
				inventory.GET("/shipping/calculate", h.Inventory.CalculateShipping)
				inventory.POST("/promo/calculate", h.Inventory.CalculatePromo)
				inventory.GET("/:id", h.Inventory.GetItem)

				write := inventory.Group("", middleware.RequirePermission(entity.PermInventoryWrite))
				{
					write.POST("", h.Inventory.CreateItem)
					write.PUT("/:id", h.Inventory.UpdateItem)
					write.DELETE("/:id", h.Inventory.DeleteItem)
					write.POST("/:id/image", h.Inventory.UploadItemImage)
				}
				inventory.POST("/price", middleware.RequirePermission(entity.PermPricingWrite), h.Inventory.SetPrice)
				inventory.POST("/shipping", middleware.RequirePermission(entity.PermPricingWrite), h.Inventory.SetShippingTable)
				inventory.POST("/promo", middleware.RequirePermission(entity.PermPromoWrite), h.Inventory.CreatePromo)
			}

			// 客户订单
			customer := authorized.Group("/order", middleware.RequirePermission(entity.PermOrderCustomer))
			{
				customer.POST("/cart/add", h.Order.AddToCart)
				customer.GET("/customer/orders", h.Order.ListOrders)
				customer.GET("/customer/orders/:leadId", h.Order.GetOrder)
				customer.PUT("/customer/orders/:leadId", h.Order.UpdateDeliveryInfo)
				customer.DELETE("/customer/orders/:leadId/items/:itemCode", h.Order.RemoveItem)
				customer.POST("/customer/orders/:leadId/place", h.Order.Place)
				customer.DELETE("/customer/orders/:leadId", h.Order.Cancel)
				customer.POST("/customer/orders/:leadId/payment", h.Order.InitiatePayment)
				customer.GET("/customer/payments/:invcNum", h.Order.GetPaymentStatus)
			}

			// 供应商订单
			vendor := authorized.Group("/order/vendor", middleware.RequirePermission(entity.PermOrderVendor))
			{
				vendor.GET("/orders", h.Vendor.ListOrders)
				vendor.GET("/orders/pending", h.Vendor.ListPendingOrders)
				vendor.GET("/orders/stats", h.Vendor.Stats)
				vendor.POST("/orders/:leadId/accept", h.Vendor.Accept)
				vendor.POST("/orders/:leadId/reject", h.Vendor.Reject)
				vendor.PUT("/orders/:leadId/status", h.Vendor.UpdateStatus)
				vendor.PUT("/orders/:leadId/delivery", h.Vendor.UpdateDelivery)
			}

			// 管理订单
			admin := authorized.Group("/order/admin", middleware.RequirePermission(entity.PermOrderAdmin))
			{
				admin.GET("/orders", h.Admin.ListOrders)
				admin.GET("/orders/stats", h.Admin.Stats)
				admin.GET("/orders/date-range", h.Admin.ListByDateRange)
				admin.GET("/orders/export", middleware.RequirePermission(entity.PermReportExport), h.Admin.ExportOrders)
				admin.POST("/orders/:leadId/cancel", h.Admin.Cancel)
				admin.POST("/orders/:leadId/confirm-payment", middleware.RequirePermission(entity.PermPaymentConfirm), h.Admin.ConfirmPayment)
				admin.POST("/orders/:leadId/confirm", h.Admin.ConfirmOrder)
				admin.PUT("/orders/:leadId/status", middleware.RequireRole(entity.RoleAdmin), h.Admin.ForceSetStatus)
				admin.GET("/orders/:leadId/history", h.Admin.History)
			}
		}
	}
}
