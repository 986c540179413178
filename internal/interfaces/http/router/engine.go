package router

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/docs"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/logger"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/handler"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/middleware"
)

// Options configure NewEngine.
type Options struct {
	HTTP    config.HTTPConfig
	Export  config.ExportConfig
	Logger  *zap.Logger
	Metrics *telemetry.Metrics
	Tracing *telemetry.TracerProvider
	// ServiceName names the service in request spans. Default: "cimorm".
	ServiceName string
	// Swagger serves the OpenAPI document and UI under /swagger.
	Swagger bool
	Version string
}

// NewEngine builds the API for ds. The returned function stops background
// work of the middleware and must be called once the server is shut down.
func NewEngine(ds handler.Dataset, opts Options) (*gin.Engine, func()) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	service := opts.ServiceName
	if service == "" {
		service = "cimorm"
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.HTTP.AllowOrigins
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(service, opts.Tracing),
		middleware.TraceAttributes(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(opts.Metrics),
		middleware.Secure(),
		middleware.CORS(cors),
		middleware.Timeout(opts.HTTP.WriteTimeout),
	)

	system := handler.NewSystemHandler(ds, opts.Version)
	metrics := gin.WrapH(opts.Metrics.Handler())
	engine.GET("/health", system.Health)
	engine.HEAD("/health", system.Health)
	engine.GET("/metrics", metrics)
	engine.HEAD("/metrics", metrics)
	if opts.Swagger {
		if opts.Version != "" {
			docs.SwaggerInfo.Version = opts.Version
		}
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	datasets := handler.NewDatasetHandler(ds, opts.Export)
	classes := NewDomainGroup("classes", "/classes").
		GET("", datasets.ListClasses).
		GET("/:name", datasets.DescribeClass).
		GET("/:name/objects", datasets.ListObjects)
	objects := NewDomainGroup("objects", "/objects").
		GET("/:class/:id", datasets.GetObject)
	data := NewDomainGroup("dataset", "").
		GET("/sources", datasets.ListSources).
		GET("/lint", datasets.Lint)
	exports := NewDomainGroup("export", "/export").
		GET("", datasets.Export)
	sys := NewDomainGroup("system", "/system").
		GET("/info", system.Info)

	stop := func() {}
	if opts.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(opts.HTTP.RateLimit, time.Minute)
		exports.Use(middleware.RateLimit(limiter))
		stop = limiter.Stop
		log.Info("Export rate limiting enabled", zap.Int("per_minute", opts.HTTP.RateLimit))
	}

	NewRouter(engine).
		Register(classes).
		Register(objects).
		Register(data).
		Register(exports).
		Register(sys).
		Setup()
	return engine, stop
}
