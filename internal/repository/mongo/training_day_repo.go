package mongo

import (
	"context"
	"errors"
	"fmt"
	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trainingDayCollectionName = "training_days"

var attachableStatuses = []domain.DayStatus{
	domain.DayStatusActive,
	domain.DayStatusPartiallyCompleted,
	domain.DayStatusCompleted,
}

type mongoTrainingDayRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingDayRepository creates a new TrainingDay repository.
func NewMongoTrainingDayRepository(db *mongo.Database) repository.TrainingDayRepository {
	return &mongoTrainingDayRepository{
		collection: db.Collection(trainingDayCollectionName),
	}
}

// prepare fills ids and timestamps. Records must never be stored as null,
// otherwise $push fails on the document.
func prepare(day *domain.TrainingDay, now time.Time) {
	if day.ID.IsZero() {
		day.ID = primitive.NewObjectID()
	}
	if day.Session.ID.IsZero() {
		day.Session.ID = primitive.NewObjectID()
	}
	if day.Records == nil {
		day.Records = []domain.AttachedRecord{}
	}
	day.CreatedAt = now
	day.UpdatedAt = now
}

func (r *mongoTrainingDayRepository) CreateMany(ctx context.Context, days []*domain.TrainingDay) error {
	if len(days) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(days))
	for _, d := range days {
		prepare(d, now)
		docs = append(docs, d)
	}
	_, err := r.collection.InsertMany(ctx, docs)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// CreateIfAbsent keys the upsert on (planId, week, dayOfWeek), which maps 1:1
// to the calendar date of the day.
func (r *mongoTrainingDayRepository) CreateIfAbsent(ctx context.Context, day *domain.TrainingDay) (bool, error) {
	prepare(day, time.Now().UTC())
	filter := bson.M{"planId": day.PlanID, "week": day.Week, "dayOfWeek": day.DayOfWeek}
	update := bson.M{"$setOnInsert": day}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost an upsert race; the other writer created it
			return false, nil
		}
		return false, err
	}
	return result.UpsertedCount == 1, nil
}

func (r *mongoTrainingDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoTrainingDayRepository) GetByPlanAndDate(ctx context.Context, planID primitive.ObjectID, dayStart time.Time) (*domain.TrainingDay, error) {
	filter := bson.M{
		"planId":   planID,
		"dateTime": bson.M{"$gte": dayStart, "$lt": dayStart.Add(24 * time.Hour)},
	}
	return r.findOne(ctx, filter)
}

func (r *mongoTrainingDayRepository) findOne(ctx context.Context, filter bson.M) (*domain.TrainingDay, error) {
	var day domain.TrainingDay
	err := r.collection.FindOne(ctx, filter).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

func (r *mongoTrainingDayRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.TrainingDay, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dateTime", Value: 1}})
	return r.find(ctx, bson.M{"planId": planID}, opts)
}

func (r *mongoTrainingDayRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.TrainingDay, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	days := []domain.TrainingDay{}
	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// missedFilter matches days that are past, untouched and still ACTIVE.
func missedFilter(planID primitive.ObjectID, before time.Time) bson.M {
	return bson.M{
		"planId":    planID,
		"status":    domain.DayStatusActive,
		"dateTime":  bson.M{"$lt": before},
		"feedback":  bson.M{"$exists": false},
		"records.0": bson.M{"$exists": false},
	}
}

// MarkMissedBefore re-checks the condition per day so a record attached
// between the read and the write keeps the day out of MISSED.
func (r *mongoTrainingDayRepository) MarkMissedBefore(ctx context.Context, planID primitive.ObjectID, t time.Time) ([]domain.TrainingDay, error) {
	candidates, err := r.find(ctx, missedFilter(planID, t), options.Find().SetSort(bson.D{{Key: "dateTime", Value: 1}}))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	missed := make([]domain.TrainingDay, 0, len(candidates))
	for _, day := range candidates {
		filter := missedFilter(planID, t)
		filter["_id"] = day.ID
		update := bson.M{"$set": bson.M{"status": domain.DayStatusMissed, "updatedAt": now}}
		result, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return missed, err
		}
		if result.ModifiedCount == 1 {
			day.Status = domain.DayStatusMissed
			day.UpdatedAt = now
			missed = append(missed, day)
		}
	}
	return missed, nil
}

// attachFilter matches the day while it accepts records and still holds
// exactly seen of them. A concurrent attach or sweep makes it miss.
func attachFilter(dayID primitive.ObjectID, seen int) bson.M {
	filter := bson.M{
		"_id":    dayID,
		"status": bson.M{"$in": attachableStatuses},
	}
	// positional checks also match a null or missing records field when seen is 0
	if seen > 0 {
		filter[fmt.Sprintf("records.%d", seen-1)] = bson.M{"$exists": true}
	}
	filter[fmt.Sprintf("records.%d", seen)] = bson.M{"$exists": false}
	return filter
}

func (r *mongoTrainingDayRepository) AttachRecord(ctx context.Context, dayID primitive.ObjectID, seen int, rec domain.AttachedRecord, completion float64, status domain.DayStatus) (*domain.TrainingDay, error) {
	filter := attachFilter(dayID, seen)
	update := bson.M{
		"$push": bson.M{"records": rec},
		"$set": bson.M{
			"completionPercentage": completion,
			"status":               status,
			"updatedAt":            time.Now().UTC(),
		},
	}
	return r.findOneAndUpdate(ctx, filter, update, repository.ErrUpdateFailed)
}

func (r *mongoTrainingDayRepository) ListByRecordIDs(ctx context.Context, recordIDs []primitive.ObjectID) ([]domain.TrainingDay, error) {
	if len(recordIDs) == 0 {
		return []domain.TrainingDay{}, nil
	}
	return r.find(ctx, bson.M{"records.recordId": bson.M{"$in": recordIDs}}, options.Find())
}

func (r *mongoTrainingDayRepository) ReplaceRecords(ctx context.Context, dayID primitive.ObjectID, records []domain.AttachedRecord, completion float64, status domain.DayStatus) (*domain.TrainingDay, error) {
	if records == nil {
		records = []domain.AttachedRecord{}
	}
	update := bson.M{"$set": bson.M{
		"records":              records,
		"completionPercentage": completion,
		"status":               status,
		"updatedAt":            time.Now().UTC(),
	}}
	return r.findOneAndUpdate(ctx, bson.M{"_id": dayID}, update, repository.ErrNotFound)
}

func (r *mongoTrainingDayRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, notMatched error) (*domain.TrainingDay, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var day domain.TrainingDay
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notMatched
		}
		return nil, err
	}
	return &day, nil
}

// UpsertFeedback overwrites the embedded feedback of the day.
func (r *mongoTrainingDayRepository) UpsertFeedback(ctx context.Context, dayID primitive.ObjectID, fb *domain.TrainingFeedback) (*domain.TrainingFeedback, error) {
	if fb.ID.IsZero() {
		fb.ID = primitive.NewObjectID()
	}
	fb.TrainingDayID = dayID
	fb.UpdatedAt = time.Now().UTC()

	update := bson.M{"$set": bson.M{"feedback": fb, "updatedAt": fb.UpdatedAt}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": dayID}, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, repository.ErrNotFound
	}
	return fb, nil
}

// EnsureTrainingDayIndexes creates necessary indexes. Call during startup.
func EnsureTrainingDayIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "week", Value: 1}, {Key: "dayOfWeek", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "dateTime", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "records.recordId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
