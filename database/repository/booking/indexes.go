package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the bookings collection.
func (repo *MongoBookingRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		// Unique index on booking ID
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// Interval range scans (overlap query)
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "start_time", Value: 1}, {Key: "end_time", Value: 1}},
			Options: options.Index().SetName("status_interval_idx"),
		},
		// Frequency window and identification lookups
		{
			Keys:    bson.D{{Key: "requester_email", Value: 1}, {Key: "start_time", Value: 1}},
			Options: options.Index().SetName("email_start_idx"),
		},
		// Manual reconciliation sweep
		{
			Keys:    bson.D{{Key: "requires_manual_cal_sync", Value: 1}, {Key: "requires_manual_crm_sync", Value: 1}},
			Options: options.Index().SetName("manual_sync_idx"),
		},
	}

	_, err := repo.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
