package mongo

import (
	"context"
	"errors"
	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordCollectionName = "records"

type mongoRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoRecordRepository creates a new Record repository.
func NewMongoRecordRepository(db *mongo.Database) repository.RecordRepository {
	return &mongoRecordRepository{
		collection: db.Collection(recordCollectionName),
	}
}

func (r *mongoRecordRepository) Create(ctx context.Context, record *domain.Record) (primitive.ObjectID, error) {
	if record.UserID.IsZero() {
		return primitive.NilObjectID, errors.New("record requires userId")
	}
	record.ID = primitive.NewObjectID()
	if record.Approval != nil && record.Approval.ID.IsZero() {
		record.Approval.ID = primitive.NewObjectID()
	}
	record.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted record ID")
	}
	return insertedID, nil
}

func (r *mongoRecordRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Record, error) {
	var record domain.Record
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindOverlapCandidates uses the open-interval overlap test directly in the query.
func (r *mongoRecordRepository) FindOverlapCandidates(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]domain.Record, error) {
	filter := bson.M{
		"userId":    userID,
		"startTime": bson.M{"$lt": end},
		"endTime":   bson.M{"$gt": start},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}}))
}

func (r *mongoRecordRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Record, error) {
	filter := bson.M{
		"userId":    userID,
		"startTime": bson.M{"$gte": from, "$lt": to},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}}))
}

func (r *mongoRecordRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Record, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []domain.Record{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *mongoRecordRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *mongoRecordRepository) ListByApprovalStatus(ctx context.Context, status domain.ApprovalStatus, limit int) ([]domain.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"approval.approvalStatus": status}, opts)
}

func (r *mongoRecordRepository) UpdateApproval(ctx context.Context, id primitive.ObjectID, approval domain.RecordApproval) (*domain.Record, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var record domain.Record
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"approval": approval}}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// RunningStats aggregates the user's approved records: longest distance in km
// and overall pace in min/km.
func (r *mongoRecordRepository) RunningStats(ctx context.Context, userID primitive.ObjectID) (*domain.RunningStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId":                  userID,
			"approval.approvalStatus": domain.ApprovalApproved,
			"distance":                bson.M{"$gt": 0},
			"timeTaken":               bson.M{"$gt": 0},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"maxDistance":  bson.M{"$max": "$distance"},
			"totalMetres":  bson.M{"$sum": "$distance"},
			"totalSeconds": bson.M{"$sum": "$timeTaken"},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		MaxDistance  float64 `bson:"maxDistance"`
		TotalMetres  float64 `bson:"totalMetres"`
		TotalSeconds float64 `bson:"totalSeconds"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	stats := &domain.RunningStats{}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	stats.MaxDistance = row.MaxDistance / 1000
	if row.TotalMetres > 0 {
		stats.AveragePace = (row.TotalSeconds / 60) / (row.TotalMetres / 1000)
	}
	return stats, nil
}

// EnsureRecordIndexes creates necessary indexes. Call during startup.
func EnsureRecordIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startTime", Value: 1}, {Key: "endTime", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "approval.approvalStatus", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
