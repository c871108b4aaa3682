package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/storefront/internal/address"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/coupon"
	"github.com/MikeMC777/storefront/internal/db"
	_ "github.com/MikeMC777/storefront/internal/docs"
	"github.com/MikeMC777/storefront/internal/events"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/logging"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/pricing"
	"github.com/MikeMC777/storefront/internal/stock"
)

// @title Storefront API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg := config.Load()
	logging.Setup(cfg.AppEnv, cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("[main] postgres")
	}
	defer pool.Close()
	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("[main] migrations")
	}

	carts, closeCarts := cartRepo(ctx, cfg)
	defer closeCarts()

	cache, closeCache := couponCache(ctx, cfg)
	defer closeCache()

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafka(cfg.KafkaBrokers)
	} else {
		log.Warn().Msg("[main] KAFKA_BROKERS empty, events are dropped")
	}
	defer pub.Close()

	rules := pricing.Rules{
		FreeShippingAbove: cfg.FreeShippingAbove,
		ShippingFee:       cfg.ShippingFee,
		TaxRate:           cfg.TaxRate,
	}

	catalogRepo := catalog.NewPGRepo(pool)
	cartSvc := cart.NewService(carts, catalogRepo)
	couponSvc := coupon.NewService(coupon.NewPGRepo(pool), cache)
	addressSvc := address.NewService(address.NewPGRepo(pool))
	orderRepo := order.NewPGRepo(pool)
	orderSvc := order.NewService(orderRepo, pub)
	validator := stock.NewValidator(catalogRepo)
	paymentSvc := payment.NewService(payment.Deps{
		DB:        pool,
		Gateway:   payment.NewRazorpay(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		Attempts:  payment.NewPGRepo(pool),
		Orders:    orderRepo,
		Carts:     cartSvc,
		Addresses: addressSvc,
		Coupons:   couponSvc,
		Stock:     validator,
		Events:    pub,
		Rules:     rules,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Currency:  cfg.Currency,
	})

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.CORS(cfg.OriginURL))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authed := r.Group("/", httpx.NewAuthenticator(cfg.JWTSecret).Middleware())
	admin := authed.Group("/admin", httpx.AdminOnly())
	catalog.Register(r, admin, catalogRepo)
	cart.Register(authed, cartSvc)
	stock.Register(authed, cartSvc, validator)
	coupon.Register(authed, admin, couponSvc)
	address.Register(authed, addressSvc)
	payment.Register(authed, paymentSvc)
	order.Register(authed, admin, orderSvc)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Error().Err(err).Msg("[main] grpc listen")
			return
		}
		log.Info().Str("addr", cfg.GRPCAddr).Msg("[main] grpc health listening")
		if err := gs.Serve(lis); err != nil {
			log.Error().Err(err).Msg("[main] grpc serve")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("[main] storefront-api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("[main] http serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("[main] shutting down")
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[main] http shutdown")
	}
	gs.GracefulStop()
}

// cartRepo connects to Mongo; MONGO_URI=memory keeps carts in process.
func cartRepo(ctx context.Context, cfg config.Config) (cart.Repository, func()) {
	if cfg.MongoURI == "memory" {
		log.Warn().Msg("[main] carts kept in memory")
		return cart.NewMemRepo(), func() {}
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("[main] mongo connect")
	}
	if err := client.Ping(cctx, nil); err != nil {
		log.Fatal().Err(err).Msg("[main] mongo ping")
	}
	log.Info().Str("db", cfg.MongoDB).Msg("[main] mongo connected")
	return cart.NewMongoRepo(client.Database(cfg.MongoDB)), func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}
}

// couponCache falls back to no caching when Redis is not configured or down.
func couponCache(ctx context.Context, cfg config.Config) (coupon.Cache, func()) {
	if cfg.RedisURL == "" {
		return coupon.NopCache{}, func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("[main] invalid REDIS_URL, running without cache")
		return coupon.NopCache{}, func() {}
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		log.Warn().Err(err).Msg("[main] redis unreachable, running without cache")
		_ = client.Close()
		return coupon.NopCache{}, func() {}
	}
	return coupon.NewRedisCache(client, "storefront:coupon", 5*time.Minute), func() { _ = client.Close() }
}
