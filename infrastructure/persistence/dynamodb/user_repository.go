package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// UserRepository implements ports.UserRepository on DynamoDB
type UserRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// userItem is the DynamoDB item structure for a user
type userItem struct {
	PK           string `dynamodbav:"PK"` // USER#<id>
	SK           string `dynamodbav:"SK"` // METADATA
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	Email        string `dynamodbav:"Email"`
	DisplayName  string `dynamodbav:"DisplayName"`
	Timezone     string `dynamodbav:"Timezone,omitempty"`
	Role         string `dynamodbav:"Role"`
	Status       string `dynamodbav:"Status"`
	FailedLogins int    `dynamodbav:"FailedLogins"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
	Version      int    `dynamodbav:"Version"`
}

// emailClaim reserves an email address for exactly one user
type emailClaim struct {
	PK     string `dynamodbav:"PK"` // EMAIL#<email>
	SK     string `dynamodbav:"SK"` // CLAIM
	UserID string `dynamodbav:"UserID"`
}

// Save persists a user. The user item and its email claim are written in
// one transaction so a taken address rejects the whole save.
func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	item := userItem{
		PK:           userPK(user.ID().String()),
		SK:           skMetadata,
		EntityType:   entityUser,
		UserID:       user.ID().String(),
		Email:        user.Email().String(),
		DisplayName:  user.DisplayName(),
		Timezone:     user.Timezone(),
		Role:         user.Role().String(),
		Status:       string(user.Status()),
		FailedLogins: user.FailedLogins(),
		CreatedAt:    user.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:    user.UpdatedAt().Format(time.RFC3339Nano),
		Version:      user.Version(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal user")
	}

	claim, err := attributevalue.MarshalMap(emailClaim{
		PK:     emailClaimPK(user.Email().String()),
		SK:     skClaim,
		UserID: user.ID().String(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "marshal email claim")
	}

	previousEmail, err := r.currentEmail(ctx, user.ID().String())
	if err != nil {
		return err
	}

	writes := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      av,
		}},
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                claim,
			ConditionExpression: aws.String("attribute_not_exists(PK) OR UserID = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: user.ID().String()},
			},
		}},
	}

	// An email change frees the previous claim in the same transaction
	if previousEmail != "" && previousEmail != user.Email().String() {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: emailClaimPK(previousEmail)},
					"SK": &types.AttributeValueMemberS{Value: skClaim},
				},
			},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		return mapConditionFailure(err,
			fmt.Sprintf("email %s is already registered", user.Email()))
	}

	r.logger.Debug("user saved",
		zap.String("user_id", user.ID().String()),
		zap.Int("version", user.Version()))
	return nil
}

// FindByID retrieves a user by ID, (nil, nil) on miss
func (r *UserRepository) FindByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal user")
	}
	return item.materialize()
}

// FindByEmail retrieves a user via its email claim, (nil, nil) on miss
func (r *UserRepository) FindByEmail(ctx context.Context, email valueobjects.Email) (*entities.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: emailClaimPK(email.String())},
			"SK": &types.AttributeValueMemberS{Value: skClaim},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get email claim", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var claim emailClaim
	if err := attributevalue.UnmarshalMap(result.Item, &claim); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal email claim")
	}

	id, err := valueobjects.NewUserIDFromString(claim.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "claim user ID")
	}
	return r.FindByID(ctx, id)
}

// FindAll retrieves one page of users ordered by creation time. The scan
// collects all user metadata rows so the total stays stable across pages.
func (r *UserRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.User], error) {
	var empty ports.PagedResult[*entities.User]

	items, err := r.scanEntity(ctx, entityUser)
	if err != nil {
		return empty, err
	}

	records := make([]userItem, 0, len(items))
	for _, raw := range items {
		var item userItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return empty, pkgerrors.Wrap(err, "unmarshal user")
		}
		records = append(records, item)
	}

	sort.Slice(records, func(i, j int) bool {
		if page.Desc {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].CreatedAt < records[j].CreatedAt
	})

	total := len(records)
	records = pageSlice(records, page)

	users := make([]*entities.User, 0, len(records))
	for _, record := range records {
		user, err := record.materialize()
		if err != nil {
			return empty, err
		}
		users = append(users, user)
	}
	return ports.PagedResult[*entities.User]{Items: users, Total: total}, nil
}

// Delete removes a user and its email claim
func (r *UserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	email, err := r.currentEmail(ctx, id.String())
	if err != nil {
		return err
	}
	if email == "" {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("user %s", id))
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: userPK(id.String())},
					"SK": &types.AttributeValueMemberS{Value: skMetadata},
				},
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: emailClaimPK(email)},
					"SK": &types.AttributeValueMemberS{Value: skClaim},
				},
			}},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete user", err)
	}
	return nil
}

// currentEmail reads the stored email for a user, "" when the user does not
// exist yet
func (r *UserRepository) currentEmail(ctx context.Context, id string) (string, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(id)},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		ProjectionExpression: aws.String("Email"),
	})
	if err != nil {
		return "", pkgerrors.NewDatabaseError("get user", err)
	}
	if result.Item == nil {
		return "", nil
	}

	var item struct {
		Email string `dynamodbav:"Email"`
	}
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return "", pkgerrors.Wrap(err, "unmarshal user email")
	}
	return item.Email, nil
}

// scanEntity collects every metadata row of one entity type
func (r *UserRepository) scanEntity(ctx context.Context, entityType string) ([]map[string]types.AttributeValue, error) {
	return scanEntity(ctx, r.client, r.tableName, entityType)
}

func (item userItem) materialize() (*entities.User, error) {
	id, err := valueobjects.NewUserIDFromString(item.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored user ID")
	}
	email, err := valueobjects.NewEmail(item.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored email")
	}
	role, err := valueobjects.ParseRole(item.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored role")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored created_at")
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored updated_at")
	}

	return entities.ReconstructUser(
		id, email, item.DisplayName, item.Timezone, role,
		entities.UserStatus(item.Status), item.FailedLogins,
		createdAt, updatedAt, item.Version,
	), nil
}

// scanEntity pages through a filtered table scan until exhaustion
func scanEntity(ctx context.Context, client *dynamodb.Client, tableName, entityType string) ([]map[string]types.AttributeValue, error) {
	filter := expression.Equal(expression.Name("EntityType"), expression.Value(entityType))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build scan expression")
	}

	var (
		items    []map[string]types.AttributeValue
		startKey map[string]types.AttributeValue
	)
	for {
		result, err := client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan", err)
		}

		items = append(items, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	return items, nil
}

// pageSlice cuts one page out of a sorted slice
func pageSlice[T any](items []T, page ports.Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return nil
	}
	end := offset + page.Size
	if page.Size <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
