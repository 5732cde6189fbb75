package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// MatchingRequestRepository implements ports.MatchingRequestRepository on
// DynamoDB. GSI1 serves per-student listings; GSI2 keys requests by status
// and creation time for the expiry sweep.
type MatchingRequestRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewMatchingRequestRepository creates a new MatchingRequestRepository
func NewMatchingRequestRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *MatchingRequestRepository {
	return &MatchingRequestRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// requestItem is the DynamoDB item structure for a matching request
type requestItem struct {
	PK            string  `dynamodbav:"PK"`     // REQUEST#<id>
	SK            string  `dynamodbav:"SK"`     // METADATA
	GSI1PK        string  `dynamodbav:"GSI1PK"` // STUDENT#<student_id>
	GSI1SK        string  `dynamodbav:"GSI1SK"` // REQUEST#<created_at>
	GSI2PK        string  `dynamodbav:"GSI2PK"` // REQUESTSTATUS#<status>
	GSI2SK        string  `dynamodbav:"GSI2SK"` // <created_at>
	EntityType    string  `dynamodbav:"EntityType"`
	RequestID     string  `dynamodbav:"RequestID"`
	StudentID     string  `dynamodbav:"StudentID"`
	Subject       string  `dynamodbav:"Subject"`
	BudgetPerHour float64 `dynamodbav:"BudgetPerHour"`
	Schedule      string  `dynamodbav:"Schedule,omitempty"`
	Notes         string  `dynamodbav:"Notes,omitempty"`
	Status        string  `dynamodbav:"Status"`
	TutorID       string  `dynamodbav:"TutorID,omitempty"`
	CreatedAt     string  `dynamodbav:"CreatedAt"`
	UpdatedAt     string  `dynamodbav:"UpdatedAt"`
	Version       int     `dynamodbav:"Version"`
}

// Save persists a request
func (r *MatchingRequestRepository) Save(ctx context.Context, request *entities.MatchingRequest) error {
	createdAt := request.CreatedAt().Format(time.RFC3339Nano)

	item := requestItem{
		PK:            requestPK(request.ID().String()),
		SK:            skMetadata,
		GSI1PK:        studentGSI1PK(request.StudentID().String()),
		GSI1SK:        fmt.Sprintf("REQUEST#%s", createdAt),
		GSI2PK:        statusGSI2PK(entityRequest, string(request.Status())),
		GSI2SK:        createdAt,
		EntityType:    entityRequest,
		RequestID:     request.ID().String(),
		StudentID:     request.StudentID().String(),
		Subject:       request.Subject(),
		BudgetPerHour: request.BudgetPerHour(),
		Schedule:      request.Schedule(),
		Notes:         request.Notes(),
		Status:        string(request.Status()),
		CreatedAt:     createdAt,
		UpdatedAt:     request.UpdatedAt().Format(time.RFC3339Nano),
		Version:       request.Version(),
	}
	if !request.TutorID().IsZero() {
		item.TutorID = request.TutorID().String()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal matching request")
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save matching request", err)
	}

	r.logger.Debug("matching request saved",
		zap.String("request_id", request.ID().String()),
		zap.String("status", string(request.Status())))
	return nil
}

// FindByID retrieves a request by ID, (nil, nil) on miss
func (r *MatchingRequestRepository) FindByID(ctx context.Context, id valueobjects.RequestID) (*entities.MatchingRequest, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: requestPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get matching request", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item requestItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal matching request")
	}
	return item.materialize()
}

// FindByStudentID retrieves one page of a student's requests, newest first
func (r *MatchingRequestRepository) FindByStudentID(ctx context.Context, studentID valueobjects.UserID, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	var empty ports.PagedResult[*entities.MatchingRequest]

	items, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexGSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: studentGSI1PK(studentID.String())},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return empty, err
	}

	total := len(items)
	items = pageSlice(items, page)

	requests, err := r.materializeAll(items)
	if err != nil {
		return empty, err
	}
	return ports.PagedResult[*entities.MatchingRequest]{Items: requests, Total: total}, nil
}

// CountOpenByStudentID counts the student's pending and matched requests
func (r *MatchingRequestRepository) CountOpenByStudentID(ctx context.Context, studentID valueobjects.UserID) (int, error) {
	items, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexGSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		FilterExpression:       aws.String("#status IN (:pending, :matched)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "Status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":      &types.AttributeValueMemberS{Value: studentGSI1PK(studentID.String())},
			":pending": &types.AttributeValueMemberS{Value: string(entities.RequestStatusPending)},
			":matched": &types.AttributeValueMemberS{Value: string(entities.RequestStatusMatched)},
		},
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// FindPendingCreatedBefore retrieves pending requests older than the cutoff
// via GSI2, oldest first, up to limit
func (r *MatchingRequestRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.MatchingRequest, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexGSI2),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND GSI2SK < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: statusGSI2PK(entityRequest, string(entities.RequestStatusPending))},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff.Format(time.RFC3339Nano)},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	items, err := r.queryAll(ctx, input)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return r.materializeAll(items)
}

// FindAll retrieves one page of requests ordered by creation time
func (r *MatchingRequestRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	var empty ports.PagedResult[*entities.MatchingRequest]

	raw, err := scanEntity(ctx, r.client, r.tableName, entityRequest)
	if err != nil {
		return empty, err
	}

	items := make([]requestItem, 0, len(raw))
	for _, av := range raw {
		var item requestItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return empty, pkgerrors.Wrap(err, "unmarshal matching request")
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if page.Desc {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].CreatedAt < items[j].CreatedAt
	})

	total := len(items)
	items = pageSlice(items, page)

	requests, err := r.materializeAll(items)
	if err != nil {
		return empty, err
	}
	return ports.PagedResult[*entities.MatchingRequest]{Items: requests, Total: total}, nil
}

// Delete removes a request
func (r *MatchingRequestRepository) Delete(ctx context.Context, id valueobjects.RequestID) error {
	result, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: requestPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete matching request", err)
	}
	if result.Attributes == nil {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("matching request %s", id))
	}
	return nil
}

// queryAll pages through a query until exhaustion, unmarshalling every item
func (r *MatchingRequestRepository) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]requestItem, error) {
	var items []requestItem
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query matching requests", err)
		}
		for _, raw := range result.Items {
			var item requestItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.Wrap(err, "unmarshal matching request")
			}
			items = append(items, item)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return items, nil
}

func (r *MatchingRequestRepository) materializeAll(items []requestItem) ([]*entities.MatchingRequest, error) {
	requests := make([]*entities.MatchingRequest, 0, len(items))
	for _, item := range items {
		request, err := item.materialize()
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (item requestItem) materialize() (*entities.MatchingRequest, error) {
	id, err := valueobjects.NewRequestIDFromString(item.RequestID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored request ID")
	}
	studentID, err := valueobjects.NewUserIDFromString(item.StudentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored student ID")
	}

	var tutorID valueobjects.TutorID
	if item.TutorID != "" {
		tutorID, err = valueobjects.NewTutorIDFromString(item.TutorID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stored tutor ID")
		}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored created_at")
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored updated_at")
	}

	return entities.ReconstructMatchingRequest(
		id, studentID, item.Subject, item.BudgetPerHour,
		item.Schedule, item.Notes,
		entities.RequestStatus(item.Status), tutorID,
		createdAt, updatedAt, item.Version,
	), nil
}
