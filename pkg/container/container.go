package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"elpa-backend/internal/config"
	"elpa-backend/internal/domains/archive"
	archiveHandler "elpa-backend/internal/domains/archive/handler"
	"elpa-backend/internal/domains/archive/parser"
	archiveRepo "elpa-backend/internal/domains/archive/repository"
	archiveService "elpa-backend/internal/domains/archive/service"
	"elpa-backend/internal/domains/user"
	userHandler "elpa-backend/internal/domains/user/handler"
	userRepo "elpa-backend/internal/domains/user/repository"
	userService "elpa-backend/internal/domains/user/service"
	"elpa-backend/internal/infrastructure/cache"
	"elpa-backend/internal/infrastructure/database"
	"elpa-backend/internal/infrastructure/email"
	"elpa-backend/internal/infrastructure/queue"
	"elpa-backend/internal/infrastructure/storage"
	"elpa-backend/internal/infrastructure/unpack"
	pkgCache "elpa-backend/pkg/cache"
)

// Container giữ toàn bộ dependencies của application.
// API và worker dùng chung một container.
type Container struct {
	Config *config.Config

	// Infrastructure
	Postgres    *database.PostgresDB // nil khi DB_DRIVER=sqlite
	SQLite      *gorm.DB             // nil khi DB_DRIVER=postgres
	Redis       *cache.RedisClient   // nil khi REDIS_ENABLED=false
	Cache       pkgCache.Cache
	Blobs       archive.BlobStore
	AsynqClient *queue.Client // nil khi JOBS_ENABLED=false
	RedisOpt    asynq.RedisClientOpt

	EmailService email.EmailService

	// Repositories
	UserRepo    user.Repository
	ArchiveRepo archive.Repository

	// Services
	UserService    user.Service
	ArchiveService archive.Service

	// Handlers
	UserHandler    *userHandler.UserHandler
	ArchiveHandler *archiveHandler.ArchiveHandler
}

// NewContainer khởi tạo theo thứ tự: config -> database -> cache -> storage
// -> queue -> repositories -> services -> handlers
func NewContainer() (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c := &Container{}

	// ========================================
	// STEP 1: CONFIG
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	c.RedisOpt = asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	log.Info().Str("env", cfg.App.Environment).Msg("[CONTAINER] Config loaded")

	// ========================================
	// STEP 2: DATABASE
	// ========================================
	if err := c.initDatabase(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}

	// ========================================
	// STEP 3: CACHE
	// ========================================
	c.initCache(ctx)

	// ========================================
	// STEP 4: BLOB STORAGE
	// ========================================
	if err := c.initStorage(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}

	// ========================================
	// STEP 5: EMAIL + QUEUE
	// ========================================
	c.EmailService = email.NewSMTPEmailService(cfg.SMTP)
	if cfg.Jobs.Enabled {
		c.AsynqClient = queue.NewClient(c.RedisOpt)
		log.Info().Msg("[CONTAINER] Asynq client initialized")
	}

	// ========================================
	// STEP 6: LAYERS
	// ========================================
	if err := c.initRepositories(); err != nil {
		c.Cleanup()
		return nil, err
	}
	if err := c.initServices(); err != nil {
		c.Cleanup()
		return nil, err
	}
	c.initHandlers()

	log.Info().Msg("[CONTAINER] Initialized")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initDatabase(ctx context.Context) error {
	switch c.Config.Database.Driver {
	case "sqlite":
		db, err := database.OpenSQLite(c.Config.Database.SQLitePath)
		if err != nil {
			return err
		}
		if err := userRepo.MigrateSQLite(db); err != nil {
			return fmt.Errorf("failed to migrate users: %w", err)
		}
		if err := archiveRepo.MigrateSQLite(db); err != nil {
			return fmt.Errorf("failed to migrate packages: %w", err)
		}
		c.SQLite = db
		log.Info().Str("path", c.Config.Database.SQLitePath).Msg("[CONTAINER] SQLite ready")
		return nil

	default:
		dbConfig, err := config.LoadDatabaseConfig()
		if err != nil {
			return fmt.Errorf("failed to load database config: %w", err)
		}
		db := database.NewPostgresDB(dbConfig)
		if err := db.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		c.Postgres = db
		if err := database.EnsureSchema(ctx, db.Pool); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
		return nil
	}
}

// initCache: Redis lỗi thì chạy tiếp với Noop cache
func (c *Container) initCache(ctx context.Context) {
	c.Cache = pkgCache.Noop{}
	if !c.Config.Redis.Enabled {
		return
	}

	rc := cache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := rc.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("[CONTAINER] Redis unavailable, caching disabled")
		_ = rc.Close()
		return
	}
	c.Redis = rc
	c.Cache = rc
}

func (c *Container) initStorage(ctx context.Context) error {
	switch c.Config.Storage.Driver {
	case "filesystem":
		fs, err := storage.NewFilesystemStorage(c.Config.Storage.Root)
		if err != nil {
			return fmt.Errorf("failed to init filesystem storage: %w", err)
		}
		c.Blobs = fs
	default:
		mc, err := storage.NewMinIOStorage(ctx, c.Config.MinIO)
		if err != nil {
			return fmt.Errorf("failed to init minio storage: %w", err)
		}
		c.Blobs = mc
	}
	log.Info().Str("driver", c.Config.Storage.Driver).Msg("[CONTAINER] Blob storage ready")
	return nil
}

func (c *Container) initRepositories() error {
	switch {
	case c.Postgres != nil:
		c.UserRepo = userRepo.NewPostgresRepository(c.Postgres.Pool)
		c.ArchiveRepo = archiveRepo.NewPostgresRepository(c.Postgres.Pool, c.Cache, c.Config.Redis.CacheTTL)
	case c.SQLite != nil:
		c.UserRepo = userRepo.NewSQLiteRepository(c.SQLite)
		c.ArchiveRepo = archiveRepo.NewSQLiteRepository(c.SQLite)
	default:
		return fmt.Errorf("no database initialized")
	}
	return nil
}

func (c *Container) initServices() error {
	// Có queue thì gửi mail và đếm download qua worker
	var notifier user.Notifier = email.NewNotifier(c.EmailService)
	var tracker archive.DownloadTracker
	if c.AsynqClient != nil {
		notifier = c.AsynqClient
		tracker = c.AsynqClient
	}

	c.UserService = userService.NewUserService(c.UserRepo, notifier, nil)

	unpacker := unpack.NewTarUnpacker(c.Config.Storage.MaxUploadSize * 8)
	extractor := parser.NewExtractor(unpacker, c.Config.Storage.UploadTempDir)

	c.ArchiveService = archiveService.NewService(
		c.ArchiveRepo,
		c.Blobs,
		c.UserRepo,
		extractor,
		tracker,
	)
	return nil
}

func (c *Container) initHandlers() {
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.ArchiveHandler = archiveHandler.NewArchiveHandler(c.ArchiveService, c.Config.Storage.MaxUploadSize)
}

// ========================================
// HELPER METHODS
// ========================================

// HealthCheck kiểm tra database và blob storage
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok", "storage": "ok", "cache": "ok"}

	switch {
	case c.Postgres != nil:
		if err := c.Postgres.HealthCheck(ctx); err != nil {
			status["database"] = err.Error()
		}
	case c.SQLite != nil:
		if sqlDB, err := c.SQLite.DB(); err != nil {
			status["database"] = err.Error()
		} else if err := sqlDB.PingContext(ctx); err != nil {
			status["database"] = err.Error()
		}
	}

	if hc, ok := c.Blobs.(interface{ HealthCheck(context.Context) error }); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			status["storage"] = err.Error()
		}
	}

	if c.Redis == nil {
		status["cache"] = "disabled"
	} else if err := c.Cache.Ping(ctx); err != nil {
		status["cache"] = err.Error()
	}
	return status
}

// Cleanup dọn dẹp resources khi shutdown. Safe khi container init dở.
func (c *Container) Cleanup() {
	log.Info().Msg("[CONTAINER] Cleaning up resources")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Warn().Err(err).Msg("[CONTAINER] Failed to close asynq client")
		}
	}
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
	if c.SQLite != nil {
		if sqlDB, err := c.SQLite.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("[CONTAINER] Failed to close Redis")
		}
	}
}
