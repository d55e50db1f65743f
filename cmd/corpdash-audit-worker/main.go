package main

import (
	"os"

	"corpdash/internal/amqp"
	"corpdash/internal/cli"
	"corpdash/internal/config"
	"corpdash/internal/log"
	"corpdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting corpdash-audit-worker", log.FieldOperation, log.OpStartup)
	cli.MustValidate(logger, cfg.ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	consumer, err := amqp.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP consumer", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	w := worker.NewAuditWorker(repo, logger)
	if err := consumer.Consume(ctx, w.HandleUploadProcessed); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
