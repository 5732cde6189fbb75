package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ErrLockHeld is returned when another owner holds the lock
var ErrLockHeld = errors.New("lock already held")

// DistributedLock provides locking via DynamoDB conditional writes. The
// outbox relay uses it so only one instance drains a table at a time.
// Expired rows are reclaimed by the acquire condition; the TTL attribute
// lets DynamoDB sweep abandoned rows eventually.
type DistributedLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDistributedLock creates a new DistributedLock
func NewDistributedLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Acquire attempts to take the lock for resource. It returns ErrLockHeld
// when another owner holds an unexpired lock.
func (dl *DistributedLock) Acquire(ctx context.Context, resource, owner string, duration time.Duration) (*Lock, error) {
	now := time.Now()
	expiresAt := now.Add(duration)
	lockID := fmt.Sprintf("%s_%d", owner, now.UnixNano())

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", resource)},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: owner},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(dl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			dl.logger.Debug("lock held by another owner",
				zap.String("resource", resource),
				zap.String("owner", owner))
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	dl.logger.Debug("lock acquired",
		zap.String("resource", resource),
		zap.String("lock_id", lockID),
		zap.Duration("duration", duration))

	return &Lock{
		dl:        dl,
		resource:  resource,
		lockID:    lockID,
		owner:     owner,
		expiresAt: expiresAt,
	}, nil
}

// Lock is an acquired distributed lock
type Lock struct {
	dl        *DistributedLock
	resource  string
	lockID    string
	owner     string
	expiresAt time.Time
}

// Release deletes the lock row if this instance still owns it. Losing the
// row to another owner is not an error; the lock is gone either way.
func (l *Lock) Release(ctx context.Context) error {
	_, err := l.dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.dl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#%s", l.resource)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: l.lockID},
			":owner":  &types.AttributeValueMemberS{Value: l.owner},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			l.dl.logger.Warn("lock already released or taken over",
				zap.String("resource", l.resource),
				zap.String("lock_id", l.lockID))
			return nil
		}
		return fmt.Errorf("release lock: %w", err)
	}

	l.dl.logger.Debug("lock released",
		zap.String("resource", l.resource),
		zap.String("lock_id", l.lockID))
	return nil
}

// IsExpired reports whether the lease has run out
func (l *Lock) IsExpired() bool {
	return time.Now().After(l.expiresAt)
}
