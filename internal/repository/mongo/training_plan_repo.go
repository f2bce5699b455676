// internal/repository/mongo/training_plan_repo.go
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

const trainingPlanCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new TrainingPlan repository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
	}
}

// Create inserts a new training plan.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	if plan.UserID == primitive.NilObjectID || plan.Name == "" {
		return primitive.NilObjectID, errors.New("plan requires userId and name")
	}
	if plan.ID.IsZero() {
		// days are generated before the plan is stored and reference its ID
		plan.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// the partial unique index allows one ACTIVE plan per user
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single training plan by its ID.
func (r *mongoTrainingPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetActiveByUser retrieves the user's ACTIVE plan, newest start first.
func (r *mongoTrainingPlanRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	filter := bson.M{"userId": userID, "status": domain.PlanStatusActive}
	opts := options.FindOne().SetSort(bson.D{{Key: "startDate", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

func (r *mongoTrainingPlanRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.TrainingPlan, error) {
	var plan domain.TrainingPlan
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByUser returns one page of the user's plans plus the total match count.
func (r *mongoTrainingPlanRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, f repository.PlanFilter) ([]domain.TrainingPlan, int64, error) {
	filter := bson.M{"userId": userID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.StartFrom != nil || f.StartTo != nil {
		window := bson.M{}
		if f.StartFrom != nil {
			window["$gte"] = *f.StartFrom
		}
		if f.StartTo != nil {
			window["$lte"] = *f.StartTo
		}
		filter["startDate"] = window
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	size := f.Size
	if size <= 0 {
		size = 20
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Page * size)).
		SetLimit(int64(size))

	plans, err := r.find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

// ListActiveAt returns ACTIVE plans whose window contains at.
func (r *mongoTrainingPlanRepository) ListActiveAt(ctx context.Context, at time.Time) ([]domain.TrainingPlan, error) {
	filter := bson.M{
		"status":    domain.PlanStatusActive,
		"startDate": bson.M{"$lte": at},
		"endDate":   bson.M{"$gte": at},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// ListActiveEndedBefore returns ACTIVE plans that should already be over.
func (r *mongoTrainingPlanRepository) ListActiveEndedBefore(ctx context.Context, t time.Time) ([]domain.TrainingPlan, error) {
	filter := bson.M{
		"status":  domain.PlanStatusActive,
		"endDate": bson.M{"$lt": t},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *mongoTrainingPlanRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.TrainingPlan, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.TrainingPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// UpdateStatus sets the plan status.
func (r *mongoTrainingPlanRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ArchiveActiveForUser archives every ACTIVE plan of the user.
func (r *mongoTrainingPlanRepository) ArchiveActiveForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{"userId": userID, "status": domain.PlanStatusActive}
	update := bson.M{"$set": bson.M{"status": domain.PlanStatusArchived, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureTrainingPlanIndexes creates necessary indexes. Call during startup.
func EnsureTrainingPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// At most one ACTIVE plan per user.
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetName("one_active_plan_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.PlanStatusActive}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Scheduler scan.
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "startDate", Value: 1}, {Key: "endDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
