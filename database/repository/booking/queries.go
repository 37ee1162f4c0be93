package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"slotline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoBookingRepo) FindActiveOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]models.Booking, error) {
	cursor, err := repo.coll.Find(ctx, overlapFilter(start, end, excludeID),
		options.Find().SetSort(bson.M{"start_time": 1}))
	if err != nil {
		return nil, fmt.Errorf("overlap query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode overlapping bookings: %w", err)
	}
	return bookings, nil
}

func (repo *MongoBookingRepo) FindActiveByEmailInWindow(ctx context.Context, email string, windowStart, windowEnd time.Time, excludeID string) ([]models.Booking, error) {
	filter := activeFilter()
	filter["requester_email"] = email
	filter["start_time"] = bson.M{"$gte": windowStart, "$lt": windowEnd}
	if excludeID != "" {
		filter["id"] = bson.M{"$ne": excludeID}
	}

	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("email window query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode window bookings: %w", err)
	}
	return bookings, nil
}

func (repo *MongoBookingRepo) FindActiveByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	filter := activeFilter()
	filter["requester_email"] = email
	filter["start_time"] = bson.M{"$gte": time.Now().UTC()}

	cursor, err := repo.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"start_time": 1}))
	if err != nil {
		return nil, fmt.Errorf("email lookup failed: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings for %s: %w", email, err)
	}
	return bookings, nil
}

func (repo *MongoBookingRepo) FindNeedingManualSync(ctx context.Context) ([]models.Booking, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"requires_manual_cal_sync": true},
		bson.M{"requires_manual_crm_sync": true},
	}}

	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("manual sync query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode manual sync bookings: %w", err)
	}
	return bookings, nil
}
