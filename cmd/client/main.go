package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/worklog/internal/client/cli"
	"github.com/dmitrijs2005/worklog/internal/client/config"
	"github.com/dmitrijs2005/worklog/internal/client/connectivity"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/worklog/internal/client/services"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/filex"
	"github.com/dmitrijs2005/worklog/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.LogFile != "" {
		if err := filex.EnsureParentDir(cfg.LogFile); err != nil {
			return err
		}
	}
	logger := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})

	if err := filex.EnsureParentDir(cfg.LocalDBPath); err != nil {
		return err
	}
	db, err := repomanager.Open(ctx, cfg.LocalDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	pg, err := remote.OpenPostgres(cfg.RemoteDSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	gw := remote.NewPostgresGateway(pg, cfg.RemoteTimeout)

	files, err := remote.NewS3Attachments(ctx, remote.S3Config{
		AccessKey:     cfg.S3RootUser,
		SecretKey:     cfg.S3RootPassword,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		BaseEndpoint:  cfg.S3BaseEndpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return err
	}

	prober := connectivity.MultiProber{connectivity.PingProber{Pinger: gw}}
	if cfg.HealthEndpoint != "" {
		hp, err := connectivity.NewHealthProber(cfg.HealthEndpoint, "")
		if err != nil {
			return err
		}
		defer hp.Close()
		prober = append(prober, hp)
	}
	monitor := connectivity.NewMonitor(prober, cfg.OnlineCheckInterval, logger)

	store := services.NewStore(db, repomanager.NewSQLiteRepositoryManager(), logger)
	session := services.NewSessionService(store, []byte(cfg.JWTSecret), logger)
	repo := services.NewRepository(store, gw, files, monitor, session, logger)
	defer repo.Close()

	drainer := services.NewDrainer(store, gw, files, monitor, session, cfg.MaxReplayAttempts, logger)
	defer drainer.Wait()
	defer drainer.WatchConnectivity(monitor)()

	seeder := services.NewBootstrapper(store, gw, monitor, session, logger)
	defer seeder.Wait()
	defer seeder.Watch(session, monitor)()

	app := cli.NewApp(repo, session, drainer, monitor, seeder, logger)
	defer monitor.OnChange(app.SetMode)()

	if id, err := session.Restore(ctx); err == nil {
		fmt.Printf("Signed in as %s\n", id)
	} else if !errors.Is(err, common.ErrNotAuthenticated) {
		logger.Warn(ctx, "stored session not restored", "err", err)
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go monitor.Run(monitorCtx)

	app.Run(ctx)
	return nil
}
