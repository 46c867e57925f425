// Package mongo provides the MongoDB-backed settlement journal.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anchor-settlement-engine/internal/domain/journal"
)

const (
	// JournalCollectionName is the name of the settlement attempts collection in MongoDB
	JournalCollectionName = "settlement_attempts"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) journal.Repository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the lookup index used by ListByTransactionID
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(JournalCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "transaction_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create journal index: %w", err)
	}
	return nil
}

// Append stores one settlement attempt
func (r *JournalRepository) Append(ctx context.Context, entry *journal.Entry) error {
	_, err := r.db.Collection(JournalCollectionName).InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append journal entry",
			"transaction_id", entry.TransactionID.String(),
			"operation", entry.Operation,
			"error", err)
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

// ListByTransactionID returns the attempts for a transaction, newest first
func (r *JournalRepository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// CountByTransactionID counts the attempts recorded for a transaction
func (r *JournalRepository) CountByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	count, err := r.db.Collection(JournalCollectionName).CountDocuments(ctx, bson.M{"transaction_id": transactionID})
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"transaction_id", transactionID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return count, nil
}
