// YeJiBan 业绩看板服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yejiban/yejiban/internal/client"
	"github.com/yejiban/yejiban/internal/config"
	"github.com/yejiban/yejiban/internal/database"
	"github.com/yejiban/yejiban/internal/handler"
	"github.com/yejiban/yejiban/internal/metrics"
	"github.com/yejiban/yejiban/internal/repository"
	"github.com/yejiban/yejiban/pkg/analysis"
	"github.com/yejiban/yejiban/pkg/logger"
	"github.com/yejiban/yejiban/pkg/merge"
	"github.com/yejiban/yejiban/pkg/rollup"
	"github.com/yejiban/yejiban/pkg/target"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	// 打印版本信息
	fmt.Printf("YeJiBan 业绩看板 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("连接数据库失败")
	}
	defer db.Close()

	// 仓储
	employeeRepo := repository.NewEmployeeRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)
	statRepo := repository.NewStatRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	dailyRepo := repository.NewDailyRecordRepository(db)
	targetRepo := repository.NewTargetRepository(db)

	// 领域服务
	engine := merge.NewEngine(employeeRepo, orderRepo, dispatchRepo, statRepo).
		WithBatchSize(cfg.Merge.BatchSize)
	rollupSvc := rollup.NewService(statRepo, historyRepo)
	tracker := target.NewTracker(historyRepo, dailyRepo, targetRepo)
	orchestrator := analysis.NewOrchestrator(client.NewAdvisorClient(cfg.Advisor))
	ocrClient := client.NewOCRClient(cfg.OCR)

	// 处理器
	mergeHandler := handler.NewMergeHandler(engine)
	statsHandler := handler.NewStatsHandler(statRepo, rollupSvc)
	importHandler := handler.NewImportHandler(employeeRepo, orderRepo, dispatchRepo, ocrClient)
	analysisHandler := handler.NewAnalysisHandler(orchestrator, rollupSvc, tracker, historyRepo)
	targetHandler := handler.NewTargetHandler(tracker, rollupSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeRepo)

	// 路由
	r := chi.NewRouter()

	// 中间件执行顺序：requestID -> rateLimit -> cors -> logging -> handler
	r.Use(requestIDMiddleware)
	r.Use(rateLimitMiddleware(cfg.API.RateLimit))
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware)

	// 系统端点
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := db.Health(req.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"status":%q,"service":%q}`, status, cfg.App.Name)
	})

	r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// API v1 端点
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/merge/run", mergeHandler.Merge)

		r.Get("/stats/daily", statsHandler.ListDaily)
		r.Post("/stats/aggregate", statsHandler.Aggregate)
		r.Post("/stats/rank", statsHandler.Rank)

		r.Post("/analysis/classify", analysisHandler.Classify)

		r.Post("/import/validate", importHandler.Validate)
		r.Post("/import/orders", importHandler.ImportOrders)
		r.Post("/import/dispatches", importHandler.ImportDispatches)
		r.Post("/import/recognize", importHandler.Recognize)
		r.Post("/import/redistribute", importHandler.Redistribute)

		r.Post("/history/snapshot", targetHandler.Snapshot)

		r.Get("/target/{ym}", targetHandler.GetTarget)
		r.Put("/target/{ym}", targetHandler.SetTarget)
		r.Get("/target/{ym}/required", targetHandler.Required)

		r.Get("/employees", employeeHandler.List)
		r.Post("/employees", employeeHandler.Create)
		r.Get("/employees/{id}", employeeHandler.Get)
		r.Put("/employees/{id}", employeeHandler.Update)
		r.Delete("/employees/{id}", employeeHandler.Delete)
		r.Post("/employees/{id}/aliases", employeeHandler.AddAlias)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(requestsPerSecond int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 100
	}
	limiter := NewRateLimiter(float64(requestsPerSecond))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"code":    "RATE_LIMITED",
					"error":   "请求过于频繁，请稍后重试",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
