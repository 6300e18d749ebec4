package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/unispace/internal/config"
	"github.com/iliyamo/unispace/internal/database"
	"github.com/iliyamo/unispace/internal/handler"
	"github.com/iliyamo/unispace/internal/jobs"
	"github.com/iliyamo/unispace/internal/live"
	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/middleware"
	"github.com/iliyamo/unispace/internal/queue"
	"github.com/iliyamo/unispace/internal/repository"
	"github.com/iliyamo/unispace/internal/router"
	"github.com/iliyamo/unispace/internal/service"
	"github.com/iliyamo/unispace/internal/utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	utils.InitLogger("unispace")
	log := utils.Logger

	cfg := config.Load()
	jobsCfg := config.LoadJobsConfig()
	brokerCfg := config.LoadBrokerConfig()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("migrate schema")
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: local rate limiting, no response cache, single-instance live push")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	classrooms := repository.NewClassroomRepo(db)
	reservations := repository.NewReservationRepo(db)
	occupancies := repository.NewOccupancyRepo(db)
	notifications := repository.NewNotificationRepo(db)
	profiles := repository.NewProfileRepo(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	hub := live.NewHub(m)
	var pusher live.Pusher = hub
	if rdb != nil {
		bridge := live.NewRedisBridge(rdb, hub)
		pusher = bridge
		g.Go(func() error {
			if err := bridge.Run(gctx); err != nil {
				log.WithError(err).Error("live bridge stopped; pushes now delivered to local sessions only")
			}
			return nil
		})
	}

	var events jobs.EventPublisher
	if brokerCfg.Enabled {
		events = queue.NewPublisher(brokerCfg.URL, brokerCfg.Queue)
		consumer := queue.NewAuditConsumer(brokerCfg.URL, brokerCfg.Queue, brokerCfg.LogDir)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	opts := jobs.Options{BatchSize: jobsCfg.BatchSize, Pause: jobsCfg.BatchPause}
	promotion := jobs.NewPromotionJob(reservations, events, m, opts)
	dispatcher := jobs.NewDispatcher(occupancies, notifications, pusher, m, opts)

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		BcryptCost: cfg.BcryptCost,
	}, users, tokens)

	e := router.New(m, cfg.CORSOrigins)
	router.RegisterRoutes(e, router.Deps{
		Auth:          handler.NewAuthHandler(authSvc),
		Reservations:  handler.NewReservationHandler(service.NewReservationService(reservations, users, classrooms, promotion)),
		Occupancy:     handler.NewOccupancyHandler(service.NewOccupancyService(occupancies, classrooms)),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notifications, users, pusher)),
		Classrooms:    handler.NewClassroomHandler(service.NewClassroomService(classrooms)),
		Profiles:      handler.NewProfileHandler(service.NewProfileService(profiles, users)),
		Health:        handler.NewHealthHandler(db, rdb),
		Live:          live.NewHandler(hub, authSvc, cfg.CORSOrigins),
		Identifier:    authSvc,
		MetricsPage:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:         middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	if jobsCfg.Enabled {
		sched := jobs.NewScheduler(gctx)
		if err := sched.Add("promotion", jobsCfg.PromotionCron, func(ctx context.Context) error {
			_, err := promotion.Run(ctx)
			return err
		}); err != nil {
			log.WithError(err).Fatal("schedule promotion job")
		}
		if err := sched.Add("notify", jobsCfg.NotifyCron, func(ctx context.Context) error {
			_, err := dispatcher.Run(ctx)
			return err
		}); err != nil {
			log.WithError(err).Fatal("schedule notification job")
		}
		sched.Start()
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(sctx)
			return nil
		})
		if jobsCfg.RunOnStartup {
			g.Go(func() error {
				if _, err := promotion.Run(gctx); err != nil {
					log.WithError(err).Error("startup promotion run")
				}
				if _, err := dispatcher.Run(gctx); err != nil {
					log.WithError(err).Error("startup notification run")
				}
				return nil
			})
		}
	}

	addr := ":" + cfg.Port
	g.Go(func() error {
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
		return
	}
	log.Info("server stopped")
}
