package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/uma-arai/reservasabores/internal/common/config"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
	"github.com/uma-arai/reservasabores/internal/service/batch"
)

const (
	projectName = "reservasabores-notification-batch"
)

func main() {
	// コマンドライン引数のパース
	timeout := flag.Duration("timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")
	flag.Parse()

	// 最後の引数として完了バッチの出力（通知のJSON）を受け取る
	// ENV=LOCALで引数がない場合は空の通知として扱う
	payload := `{"notifications":[]}`
	if flag.NArg() > 0 {
		payload = flag.Arg(flag.NArg() - 1)
	} else if os.Getenv("ENV") != "LOCAL" {
		log.Fatalf("Task token is required")
	}

	cfg, err := config.LoadConfig(payload)
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
			if configErr := xray.Configure(xray.Config{}); configErr != nil {
				log.Fatalf("Failed to configure default X-Ray settings: %v", configErr)
			}
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	notifications, err := parseNotifications(payload)
	if err != nil {
		log.Fatalf("Failed to parse notifications: %v", err)
	}

	service, err := batch.NewNotificationBatchService(cfg)
	if err != nil {
		log.Fatalf("Failed to create notification batch service: %v", err)
	}
	defer service.Close()
	service.SetArgs(notifications)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnableTracing {
		var seg *xray.Segment
		ctx, seg = xray.BeginSegment(ctx, projectName)
		defer seg.Close(nil)

		if err := seg.AddMetadata("timeout", timeout.String()); err != nil {
			log.Printf("Failed to add timeout metadata: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, service.Run)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Printf("Batch process failed: %v\nStack trace:\n%s", err, debug.Stack())
			service.Close()
			os.Exit(1)
		}
		log.Println("Batch process completed successfully")
	}
}

// parseNotifications は完了バッチが出力したJSONから通知を取り出します
func parseNotifications(payload string) ([]model.Notification, error) {
	var input struct {
		Notifications []model.Notification `json:"notifications"`
	}
	if err := json.Unmarshal([]byte(payload), &input); err != nil {
		return nil, fmt.Errorf("failed to parse task input: %w", err)
	}

	notifications := make([]model.Notification, 0, len(input.Notifications))
	for i, n := range input.Notifications {
		if n.Type == "" {
			n.Type = model.NotificationTypeReservation
		}
		if n.Type == model.NotificationTypeReservation && n.Event == nil {
			return nil, fmt.Errorf("notification %d has no event", i)
		}
		if n.CreatedAt.IsZero() && n.Event != nil {
			n.CreatedAt = n.Event.CreatedAt
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
