package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/reservasabores/internal/auth"
	"github.com/uma-arai/reservasabores/internal/common/database"
	"github.com/uma-arai/reservasabores/internal/config"
	"github.com/uma-arai/reservasabores/internal/handler"
	"github.com/uma-arai/reservasabores/internal/menu"
	"github.com/uma-arai/reservasabores/internal/messaging"
	"github.com/uma-arai/reservasabores/internal/repository"
	"github.com/uma-arai/reservasabores/internal/service/notification"
	"github.com/uma-arai/reservasabores/internal/service/reservation"
	"github.com/uma-arai/reservasabores/internal/service/user"
)

const (
	projectName = "reservasabores-api"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\nStack trace:\n%s", err, debug.Stack())
	}

	// X-Ray設定
	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000",
			ServiceVersion: "1.0.0",
		}); err != nil {
			log.Printf("Failed to configure X-Ray: %v", err)
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	db, err := database.NewDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	repoDb := repository.NewDB(db.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repository.Migrate(ctx, repoDb); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// メッセージブローカーに接続できない場合はイベントを発行せずに起動する
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.MQ.URL != "" {
		p, err := messaging.NewRabbitPublisher(ctx, cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.MaxRetries)
		if err != nil {
			log.Printf("Failed to connect to RabbitMQ, events will not be published: %v", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	m, err := menu.Default()
	if err != nil {
		log.Fatalf("Failed to load menu: %v", err)
	}

	userRepo := repository.NewUserRepository(repoDb)
	reservationRepo := repository.NewReservationRepository(repoDb)
	notificationRepo := repository.NewNotificationRepository(repoDb)

	userService := user.NewService(userRepo, reservationRepo, auth.NewBcryptHasher(), tokens)
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		if _, err := userService.EnsureAdmin(ctx, config.AdminName(), email, os.Getenv("ADMIN_PASSWORD")); err != nil {
			log.Fatalf("Failed to ensure admin user: %v", err)
		}
	}

	h := handler.NewHandler(
		reservation.NewService(reservationRepo, publisher, cfg.Location),
		userService,
		notification.NewService(notificationRepo),
		m,
		repoDb,
	)
	e := handler.NewServer(h, tokens, userRepo, handler.ServerOptions{
		ServiceName:   projectName,
		EnableTracing: cfg.EnableTracing,
		CORSOrigins:   cfg.CORSOrigins,
	})

	go func() {
		log.Printf("Starting %s on %s", projectName, cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shut down server gracefully: %v", err)
	}
}
