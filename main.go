package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ElderCare360/authprovider"
	"ElderCare360/cache"
	"ElderCare360/config"
	"ElderCare360/controllers"
	"ElderCare360/events"
	"ElderCare360/jobs"
	"ElderCare360/localstore"
	"ElderCare360/logger"
	"ElderCare360/metrics"
	"ElderCare360/migrations"
	"ElderCare360/repository"
	"ElderCare360/routes"
	"ElderCare360/services"
	"ElderCare360/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	startServer = serve
	isTest      = false
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

/*
* Load config and build the logger
* Open the device store, Mongo, the optional cache, photo storage and event sink
* Run migrations, resolve the session, start the jobs
* Serve the local API until the process is signalled
 */
func run() error {
	cfg, err := config.Load(os.Getenv("ELDERCARE_CONFIG"))
	if err != nil {
		return err
	}
	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Service)
	if err != nil {
		return err
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var sinks []events.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl))
	}
	bus := events.NewBus(zl, sinks...)
	defer bus.Close()

	local, err := localstore.Open(cfg.Local.Dir, cfg.Local.InMemory)
	if err != nil {
		zl.Error("Error from opening the local store", zap.Error(err))
		return err
	}
	defer local.Close()

	db, err := repository.Connect(ctx, cfg.Mongo)
	if err != nil {
		zl.Error("Error from Mongo connect", zap.Error(err))
		return err
	}
	defer db.Close(context.Background())
	// Migrations repair legacy documents the unique indexes would reject.
	if cfg.Migrations.Enabled && !isTest {
		if err := migrations.Run(ctx, db.DB, zl); err != nil {
			return err
		}
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		zl.Error("Error from EnsureIndexes", zap.Error(err))
		return err
	}

	var patientCache services.PatientCache
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedis(cache.Dial(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			zl.Warn("Patient cache disabled", zap.Error(err))
		} else {
			patientCache = rc
			defer rc.Close()
		}
	}

	var photos services.PhotoStore
	if cfg.Storage.Bucket != "" {
		s3, err := storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			zl.Warn("Photo storage disabled", zap.Error(err))
		} else {
			photos = s3
		}
	}

	auth := authprovider.New(repository.NewCredentials(db), local, authprovider.Options{
		Secret:            cfg.Auth.SessionSecret,
		SessionTTL:        cfg.Auth.SessionTTL,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	}, zl)
	patients := repository.NewPatients(db)
	session := services.NewSessionManager(auth, repository.NewUsers(db), patients, local, zl, m)
	defer session.Close()

	care := services.NewCareStore(services.CareDeps{
		Identity:      session,
		Patients:      patients,
		Medications:   repository.NewMedications(db),
		HealthRecords: repository.NewHealthRecords(db),
		Appointments:  repository.NewAppointments(db),
		Photos:        photos,
		Cache:         patientCache,
		Bus:           bus,
		Log:           zl,
		Metrics:       m,
		WatchWindow:   cfg.Care.WatchWindow,
		PollInterval:  cfg.Care.PollInterval,
	})
	defer care.Attach()()
	games := services.NewGameService(session, care, zl, m)
	defer games.Attach()()

	if err := session.Start(ctx); err != nil {
		return err
	}

	if cfg.Jobs.Enabled && !isTest {
		scheduler, err := jobs.StartDailyScheduler(cfg.Jobs.FinishCoursesSpec, care, zl)
		if err != nil {
			zl.Error("Error from StartDailyScheduler", zap.Error(err))
			return err
		}
		defer scheduler.Stop()
	}

	ctl := &controllers.Controller{
		Session: session,
		Care:    care,
		Games:   games,
		Lookup:  services.NewMedicationLookup(cfg.RxNav, zl, m),
		Log:     zl,
	}
	return startServer(ctx, cfg.ListenAddr(), newRouter(ctl, m, cfg.Server.AllowOrigins), zl)
}

func newRouter(ctl *controllers.Controller, m *metrics.Metrics, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	routes.Routes(r, ctl, m, allowOrigins)
	return r
}

func serve(ctx context.Context, addr string, handler http.Handler, zl *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("Server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
