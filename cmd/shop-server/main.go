package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/app"
)

// logLevelFromEnv парсит уровень логирования, по умолчанию info.
func logLevelFromEnv(raw string) log.Level {
	level, err := log.ParseLevel(raw)
	if raw == "" || err != nil {
		return log.InfoLevel
	}
	return level
}

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(logLevelFromEnv(os.Getenv("SHOP_LOG_LEVEL")))
}

// run блокируется до сигнала остановки или фатальной ошибки приложения.
func run() error {
	cfg := app.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем shop-server")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	setupLogger()

	if err := run(); err != nil {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}
	log.Info("shop-server остановлен")
}
