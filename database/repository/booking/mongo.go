package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"slotline/database"
	"slotline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository on MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{
		coll: database.MongoClient.Database("slotline").Collection("bookings"),
	}
}

// activeFilter matches every booking that still occupies its interval.
func activeFilter() bson.M {
	return bson.M{"status": bson.M{"$ne": models.BookingStatusCancelled}}
}

// overlapFilter matches active bookings whose [start_time, end_time) interval
// intersects [start, end). end_time is materialized on write so the overlap
// test stays a plain range query.
func overlapFilter(start, end time.Time, excludeID string) bson.M {
	filter := bson.M{
		"status":     bson.M{"$ne": models.BookingStatusCancelled},
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
	if excludeID != "" {
		filter["id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

// bookingDoc wraps a Booking with the denormalized end_time used by the
// overlap queries.
type bookingDoc struct {
	models.Booking `bson:",inline"`
	EndTime        time.Time `bson:"end_time"`
}

func (repo *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	client := repo.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		count, err := repo.coll.CountDocuments(sc, overlapFilter(booking.StartTime, booking.EndTime(), ""))
		if err != nil {
			return fmt.Errorf("overlap re-validation failed: %w", err)
		}
		if count > 0 {
			return ErrConflict
		}
		doc := bookingDoc{Booking: *booking, EndTime: booking.EndTime()}
		if _, err := repo.coll.InsertOne(sc, doc); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return err
	}

	return nil
}

func (repo *MongoBookingRepo) Reschedule(ctx context.Context, bookingID string, newStart time.Time, durationMinutes int) error {
	client := repo.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	newEnd := newStart.Add(time.Duration(durationMinutes) * time.Minute)

	txnFn := func(sc mongo.SessionContext) error {
		count, err := repo.coll.CountDocuments(sc, overlapFilter(newStart, newEnd, bookingID))
		if err != nil {
			return fmt.Errorf("overlap re-validation failed: %w", err)
		}
		if count > 0 {
			return ErrConflict
		}
		update := bson.M{"$set": bson.M{
			"start_time":       newStart,
			"end_time":         newEnd,
			"duration_minutes": durationMinutes,
			"updated_at":       time.Now().UTC(),
		}}
		res, err := repo.coll.UpdateOne(sc, bson.M{"id": bookingID}, update)
		if err != nil {
			return fmt.Errorf("reschedule update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return err
	}

	return nil
}

func (repo *MongoBookingRepo) UpdateStatus(ctx context.Context, bookingID string, status string) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": bookingID}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *MongoBookingRepo) UpdateSyncState(ctx context.Context, bookingID string, su SyncStateUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if su.CalendarEventID != nil {
		set["calendar_event_id"] = *su.CalendarEventID
	}
	if su.CRMContactID != nil {
		set["crm_contact_id"] = *su.CRMContactID
	}
	if su.CalendarSynced != nil {
		set["calendar_synced"] = *su.CalendarSynced
	}
	if su.CRMSynced != nil {
		set["crm_synced"] = *su.CRMSynced
	}
	if su.RequiresManualCalSync != nil {
		set["requires_manual_cal_sync"] = *su.RequiresManualCalSync
	}
	if su.RequiresManualCRMSync != nil {
		set["requires_manual_crm_sync"] = *su.RequiresManualCRMSync
	}

	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": bookingID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *MongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := repo.coll.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking %s: %w", bookingID, err)
	}
	return &booking, nil
}
