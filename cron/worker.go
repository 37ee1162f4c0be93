package cron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slotline/config"
	"slotline/models"
	"slotline/services/booking"
	"slotline/services/tasks"
	"slotline/utils"
)

// InitSyncWorker runs the asynq worker that drains the booking sync queue in
// the background. Every task carries one booking id and one operation; the
// sync service itself never fails a task for integration errors, so retries
// here cover only transient store and queue trouble.
func InitSyncWorker(syncSvc *booking.SyncService) {
	logger := utils.GetLogger()

	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingSync, handleSyncTask(syncSvc))

	go func() {
		logger.Info("sync worker starting")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("sync worker failed to start",
					zap.Int("attempt", attempts), zap.Error(err))
				if attempts == maxAttempts {
					logger.Fatal("sync worker gave up starting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleSyncTask(syncSvc *booking.SyncService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()

		var p models.SyncTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("sync task has invalid payload", zap.Error(err))
			return err
		}

		logger.Debug("processing booking sync",
			zap.String("bookingId", p.BookingID), zap.String("operation", p.Operation))

		return syncSvc.Run(ctx, p.BookingID, p.Operation)
	}
}
