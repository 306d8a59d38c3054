package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	authHTTPDelivery "github.com/superj80820/url-shortener/auth/delivery/http"
	accountORMRepo "github.com/superj80820/url-shortener/auth/repository/account/orm"
	authJWTRepo "github.com/superj80820/url-shortener/auth/repository/auth/jwt"
	accountUseCaseKit "github.com/superj80820/url-shortener/auth/usecase/account"
	authUseCaseKit "github.com/superj80820/url-shortener/auth/usecase/auth"
	"github.com/superj80820/url-shortener/domain"
	httpKit "github.com/superj80820/url-shortener/kit/http"
	httpMiddlewareKit "github.com/superj80820/url-shortener/kit/http/middleware"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	mqKit "github.com/superj80820/url-shortener/kit/mq"
	kafkaMQKit "github.com/superj80820/url-shortener/kit/mq/kafka"
	memoryMQKit "github.com/superj80820/url-shortener/kit/mq/memory"
	ormKit "github.com/superj80820/url-shortener/kit/orm"
	redisKit "github.com/superj80820/url-shortener/kit/redis"
	testingKafkaKit "github.com/superj80820/url-shortener/kit/testing/kafka/container"
	testingPostgresKit "github.com/superj80820/url-shortener/kit/testing/postgres/container"
	testingRedisKit "github.com/superj80820/url-shortener/kit/testing/redis/container"
	traceKit "github.com/superj80820/url-shortener/kit/trace"
	utilKit "github.com/superj80820/url-shortener/kit/util"
	"github.com/superj80820/url-shortener/link/delivery/background"
	linkHTTPDelivery "github.com/superj80820/url-shortener/link/delivery/http"
	memoryCacheRepo "github.com/superj80820/url-shortener/link/repository/cache/memory"
	redisCacheRepo "github.com/superj80820/url-shortener/link/repository/cache/redis"
	clickMQRepo "github.com/superj80820/url-shortener/link/repository/click/mq"
	clickORMRepo "github.com/superj80820/url-shortener/link/repository/click/orm"
	linkORMRepo "github.com/superj80820/url-shortener/link/repository/link/orm"
	clickUseCaseKit "github.com/superj80820/url-shortener/link/usecase/click"
	"github.com/superj80820/url-shortener/link/usecase/code"
	linkUseCaseKit "github.com/superj80820/url-shortener/link/usecase/link"
	resolverUseCaseKit "github.com/superj80820/url-shortener/link/usecase/resolver"
	statsUseCaseKit "github.com/superj80820/url-shortener/link/usecase/stats"
	"go.opentelemetry.io/otel/trace"
)

const (
	SYSTEM_NAME  = "system"
	SERVICE_NAME = "url_shortener"
)

func main() {
	var (
		httpAddr               = utilKit.GetEnvString("HTTP_ADDR", ":8000")
		env                    = utilKit.GetEnvString("ENV", "development")
		logPath                = utilKit.GetEnvString("LOG_PATH", "./go.log")
		dbDriver               = utilKit.GetEnvString("DB_DRIVER", "sqlite")
		dbURI                  = utilKit.GetEnvString("DB_URI", "")
		redisURI               = utilKit.GetEnvString("REDIS_URI", "")
		redisPassword          = utilKit.GetEnvString("REDIS_PASSWORD", "")
		redisDB                = utilKit.GetEnvInt("REDIS_DB", 0)
		redisTimeoutMS         = utilKit.GetEnvInt("REDIS_TIMEOUT_MS", 5000)
		redisPoolSize          = utilKit.GetEnvInt("REDIS_POOL_SIZE", 20)
		dbMaxOpenConns         = utilKit.GetEnvInt("DB_MAX_OPEN_CONNS", 20)
		dbMaxIdleConns         = utilKit.GetEnvInt("DB_MAX_IDLE_CONNS", 10)
		dbConnMaxLifetime      = utilKit.GetEnvSeconds("DB_CONN_MAX_LIFETIME_SECONDS", 300*time.Second)
		linkCacheTTL           = utilKit.GetEnvSeconds("LINK_CACHE_TTL_SECONDS", 3600*time.Second)
		codeLength             = utilKit.GetEnvInt("CODE_LENGTH", 6)
		codeMaxAttempts        = utilKit.GetEnvInt("CODE_MAX_ATTEMPTS", 3)
		statsFreshness         = utilKit.GetEnvSeconds("STATS_FRESHNESS_SECONDS", 300*time.Second)
		mqDriver               = utilKit.GetEnvString("MQ_DRIVER", "memory")
		kafkaURI               = utilKit.GetEnvString("KAFKA_URI", "")
		clickTopicName         = utilKit.GetEnvString("CLICK_TOPIC_NAME", "click-topic")
		clickQueueBuffer       = utilKit.GetEnvInt("CLICK_QUEUE_BUFFER", 10000)
		accessTokenKeyPath     = utilKit.GetEnvString("ACCESS_TOKEN_KEY_PATH", "")
		accessTokenTTLMinutes  = utilKit.GetEnvInt("ACCESS_TOKEN_TTL_MINUTES", 30)
		enableTracer           = utilKit.GetEnvBool("ENABLE_TRACER", false)
		enableMetric           = utilKit.GetEnvBool("ENABLE_METRIC", false)
		enableRateLimit        = utilKit.GetEnvBool("ENABLE_RATE_LIMIT", false)
		rateLimitMaxRequests   = utilKit.GetEnvInt("RATE_LIMIT_MAX_REQUESTS", 100)
		rateLimitExpirySeconds = utilKit.GetEnvInt("RATE_LIMIT_EXPIRY_SECONDS", 60)
		enableCORS             = utilKit.GetEnvBool("ENABLE_CORS", true)
		enableContainers       = utilKit.GetEnvBool("ENABLE_CONTAINERS", false)
		trustProxyHeaders      = utilKit.GetEnvBool("TRUST_PROXY_HEADERS", false)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logLevel := loggerKit.InfoLevel
	if env == "development" {
		logLevel = loggerKit.DebugLevel
	}
	logger, err := loggerKit.NewLogger(logPath, logLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if enableContainers && dbURI == "" && dbDriver == "postgres" {
		postgresContainer, err := testingPostgresKit.CreatePostgres(ctx, "", testingPostgresKit.SetZone("UTC"))
		if err != nil {
			panic(err)
		}
		defer postgresContainer.Terminate(context.Background())
		dbURI = postgresContainer.GetURI()
		fmt.Println("testcontainers postgres uri: ", dbURI)
	}
	if enableContainers && redisURI == "" {
		redisContainer, err := testingRedisKit.CreateRedis(ctx, testingRedisKit.SetImage(utilKit.GetEnvString("REDIS_CONTAINER_IMAGE", "docker.io/redis:7")))
		if err != nil {
			panic(err)
		}
		defer redisContainer.Terminate(context.Background())
		redisURI = redisContainer.GetURI()
		fmt.Println("testcontainers redis uri: ", redisURI)
	}
	if enableContainers && kafkaURI == "" && mqDriver == "kafka" {
		kafkaContainer, err := testingKafkaKit.CreateKafka(ctx)
		if err != nil {
			panic(err)
		}
		defer kafkaContainer.Terminate(context.Background())
		kafkaURI = kafkaContainer.GetURI()
		fmt.Println("testcontainers kafka uri: ", kafkaURI)
	}

	var useDB ormKit.Option
	switch dbDriver {
	case "postgres":
		if dbURI == "" {
			dbURI = utilKit.GetRequireEnvString("DB_URI")
		}
		useDB = ormKit.UsePostgres(dbURI)
	case "mysql":
		if dbURI == "" {
			dbURI = utilKit.GetRequireEnvString("DB_URI")
		}
		useDB = ormKit.UseMySQL(dbURI)
	case "sqlite":
		if dbURI == "" {
			dbURI = "shortener.db"
		}
		useDB = ormKit.UseSQLite(dbURI)
	default:
		panic(fmt.Sprintf("unknown db driver: %s", dbDriver))
	}
	singletonDB, err := ormKit.CreateDB(
		useDB,
		ormKit.UseConnectionPool(dbMaxOpenConns, dbMaxIdleConns, dbConnMaxLifetime),
	)
	if err != nil {
		panic(err)
	}
	defer singletonDB.Close()
	for _, migrate := range []func(*ormKit.DB) error{
		linkORMRepo.Migrate,
		clickORMRepo.Migrate,
		accountORMRepo.Migrate,
	} {
		if err := migrate(singletonDB); err != nil {
			panic(err)
		}
	}

	clock := domain.Clock(time.Now)

	var (
		singletonCache *redisKit.Cache
		linkCacheRepo  domain.LinkCacheRepo
		statsCacheRepo domain.StatsCacheRepo
	)
	if redisURI != "" {
		singletonCache, err = redisKit.CreateCache(
			redisURI,
			redisPassword,
			redisDB,
			redisKit.UseTimeout(time.Duration(redisTimeoutMS)*time.Millisecond),
			redisKit.UsePoolSize(redisPoolSize),
		)
		if err != nil {
			panic(err)
		}
		defer singletonCache.Close()
		linkCacheRepo = redisCacheRepo.CreateLinkCacheRepo(singletonCache, linkCacheTTL)
		statsCacheRepo = redisCacheRepo.CreateStatsCacheRepo(singletonCache)
	} else {
		logger.Warn("redis uri not set, use in-process cache")
		memoryCache := memoryCacheRepo.CreateCacheRepo(linkCacheTTL, clock)
		linkCacheRepo = memoryCache
		statsCacheRepo = memoryCache
	}

	mqErrorHandler := func(err error) {
		logger.Error(fmt.Sprintf("click queue get error, error: %+v", err))
	}
	var clickMQTopic mqKit.MQTopic
	switch mqDriver {
	case "kafka":
		clickMQTopic, err = kafkaMQKit.CreateMQTopic(
			ctx,
			kafkaURI,
			clickTopicName,
			kafkaMQKit.CreateTopic(1, 1),
			kafkaMQKit.ProduceWay(&kafkaMQKit.Hash{}),
			kafkaMQKit.ConsumeByGroupID(SERVICE_NAME+":click_writer", kafkaMQKit.FirstOffset),
			kafkaMQKit.ConsumeBatch(100, 100*time.Millisecond),
			kafkaMQKit.AddErrorHandler(mqErrorHandler),
		)
		if err != nil {
			panic(err)
		}
	case "memory":
		clickMQTopic = memoryMQKit.CreateMemoryMQ(ctx, clickQueueBuffer, 100*time.Millisecond)
	default:
		panic(fmt.Sprintf("unknown mq driver: %s", mqDriver))
	}

	var tracer trace.Tracer
	if enableTracer {
		var shutdownTracer traceKit.ShutdownFunc
		tracer, shutdownTracer, err = traceKit.CreateTracer(ctx, SERVICE_NAME)
		if err != nil {
			panic(err)
		}
		defer shutdownTracer(context.Background())
	} else {
		tracer = traceKit.CreateNoOpTracer()
	}

	accessTokenKey, err := authJWTRepo.LoadOrGenerateKey(accessTokenKeyPath)
	if err != nil {
		panic(err)
	}
	if accessTokenKeyPath == "" {
		logger.Warn("access token key path not set, tokens do not survive a restart")
	}

	linkRepo := linkORMRepo.CreateLinkRepo(singletonDB)
	clickRepo := clickORMRepo.CreateClickRepo(singletonDB)
	clickQueueRepo := clickMQRepo.CreateClickQueueRepo(clickMQTopic)
	accountRepo := accountORMRepo.CreateAccountRepo(singletonDB)
	authRepo, err := authJWTRepo.CreateAuthRepo(accessTokenKey)
	if err != nil {
		panic(err)
	}

	linkUseCase, err := linkUseCaseKit.CreateLinkUseCase(
		linkRepo,
		linkCacheRepo,
		code.CreateCodeGenerator(),
		clock,
		logger,
		linkUseCaseKit.SetCodeLength(codeLength),
		linkUseCaseKit.SetMaxAttempts(codeMaxAttempts),
	)
	if err != nil {
		panic(err)
	}
	clickUseCase, err := clickUseCaseKit.CreateClickUseCase(linkRepo, clickRepo, clickQueueRepo, clock, logger)
	if err != nil {
		panic(err)
	}
	resolverUseCase, err := resolverUseCaseKit.CreateResolverUseCase(linkRepo, linkCacheRepo, clickUseCase, clock, logger)
	if err != nil {
		panic(err)
	}
	statsUseCase, err := statsUseCaseKit.CreateStatsUseCase(
		clickRepo,
		statsCacheRepo,
		clock,
		logger,
		statsUseCaseKit.SetFreshness(statsFreshness),
	)
	if err != nil {
		panic(err)
	}
	accountUseCase, err := accountUseCaseKit.CreateAccountUseCase(accountRepo, logger)
	if err != nil {
		panic(err)
	}
	authUseCase, err := authUseCaseKit.CreateAuthUseCase(
		authRepo,
		accountRepo,
		clock,
		logger,
		authUseCaseKit.SetAccessTokenTTL(time.Duration(accessTokenTTLMinutes)*time.Minute),
	)
	if err != nil {
		panic(err)
	}

	var metrics func(method string) endpoint.Middleware
	if enableMetric {
		metrics = httpMiddlewareKit.CreateMetrics(SYSTEM_NAME, SERVICE_NAME)
	}
	var rateLimit endpoint.Middleware
	if enableRateLimit {
		if singletonCache == nil {
			logger.Warn("rate limit needs redis, disabled")
		} else {
			rateLimit = httpMiddlewareKit.CreateRateLimitMiddlewareWithSpecKey(
				true,
				false,
				false,
				utilKit.CreateCacheRateLimit(singletonCache, rateLimitMaxRequests, rateLimitExpirySeconds).Pass,
			)
		}
	}
	loggingMiddleware := httpMiddlewareKit.CreateLoggingMiddleware(logger)
	endpointMiddleware := func(name string) endpoint.Middleware {
		middlewares := []endpoint.Middleware{loggingMiddleware}
		if metrics != nil {
			middlewares = append(middlewares, metrics(name))
		}
		if rateLimit != nil {
			middlewares = append(middlewares, rateLimit)
		}
		return endpoint.Chain(middlewares[0], middlewares[1:]...)
	}

	options := []httptransport.ServerOption{
		httptransport.ServerBefore(httpKit.CustomBeforeCtx(tracer, httpKit.TrustProxyHeaders(trustProxyHeaders))),
		httptransport.ServerErrorEncoder(httpKit.EncodeHTTPErrorResponse()),
		httptransport.ServerFinalizer(httpKit.CustomFinalizer),
	}

	r := mux.NewRouter()
	if enableMetric {
		r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())
	}
	authHTTPDelivery.RegisterRoutes(r, accountUseCase, authUseCase, endpointMiddleware, options...)
	linkHTTPDelivery.RegisterRoutes(
		r,
		&linkHTTPDelivery.UseCases{
			Link:     linkUseCase,
			Resolver: resolverUseCase,
			Click:    clickUseCase,
			Stats:    statsUseCase,
		},
		authHTTPDelivery.CreateAuthMiddleware(authUseCase),
		endpointMiddleware,
		options...,
	)

	var handler http.Handler = r
	if enableCORS {
		handler = cors.AllowAll().Handler(r)
	}
	httpSrv := &http.Server{
		Addr:    httpAddr,
		Handler: handler,
	}

	var g run.Group
	{
		g.Add(func() error {
			logger.Info("http server start", loggerKit.String("addr", httpAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "http server get error")
			}
			return nil
		}, func(error) {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error(fmt.Sprintf("http server shutdown failed, error: %+v", err))
			}
		})
	}
	{
		recorderCtx, recorderCancel := context.WithCancel(ctx)
		g.Add(func() error {
			return background.RunAsyncClickRecorder(recorderCtx, clickUseCase)
		}, func(error) {
			clickMQTopic.Shutdown()
			recorderCancel()
		})
	}
	{
		quit := make(chan os.Signal, 1)
		g.Add(func() error {
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-quit:
				return errors.Errorf("received signal %s", sig)
			case <-ctx.Done():
				return nil
			}
		}, func(error) {
			signal.Stop(quit)
			cancel()
		})
	}

	logger.Info(fmt.Sprintf("server exit, reason: %v", g.Run()))
}
