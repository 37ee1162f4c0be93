package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"slotline/models"
)

const TypeBookingSync = "booking:sync"

// NewBookingSyncTask wraps a sync payload for the outbox queue. Retries are
// bounded; a task that exhausts them is picked up later by the manual-sync
// sweep.
func NewBookingSyncTask(payload models.SyncTaskPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingSync, b)
	opts := []asynq.Option{asynq.MaxRetry(3)}

	return task, opts, nil
}

// AsynqDispatcher enqueues booking sync tasks onto redis. It implements the
// booking service's Dispatcher.
type AsynqDispatcher struct {
	Client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{Client: client}
}

func (d *AsynqDispatcher) DispatchSync(bookingID, operation string) error {
	task, opts, err := NewBookingSyncTask(models.SyncTaskPayload{
		BookingID: bookingID,
		Operation: operation,
	})
	if err != nil {
		return err
	}
	_, err = d.Client.Enqueue(task, opts...)
	return err
}
