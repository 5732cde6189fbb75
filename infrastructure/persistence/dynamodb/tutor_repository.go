package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
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

// TutorRepository implements ports.TutorRepository on DynamoDB
type TutorRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewTutorRepository creates a new TutorRepository
func NewTutorRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *TutorRepository {
	return &TutorRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// tutorItem is the DynamoDB item structure for a tutor profile
type tutorItem struct {
	PK                string   `dynamodbav:"PK"` // TUTOR#<id>
	SK                string   `dynamodbav:"SK"` // METADATA
	GSI1PK            string   `dynamodbav:"GSI1PK"` // TUTORUSER#<user_id>
	GSI1SK            string   `dynamodbav:"GSI1SK"` // METADATA
	EntityType        string   `dynamodbav:"EntityType"`
	TutorID           string   `dynamodbav:"TutorID"`
	UserID            string   `dynamodbav:"UserID"`
	Subjects          []string `dynamodbav:"Subjects"`
	HourlyRate        float64  `dynamodbav:"HourlyRate"`
	Bio               string   `dynamodbav:"Bio,omitempty"`
	CompletedSessions int      `dynamodbav:"CompletedSessions"`
	CancelledSessions int      `dynamodbav:"CancelledSessions"`
	ReputationScore   int      `dynamodbav:"ReputationScore"`
	Tier              string   `dynamodbav:"Tier"`
	Status            string   `dynamodbav:"Status"`
	CreatedAt         string   `dynamodbav:"CreatedAt"`
	UpdatedAt         string   `dynamodbav:"UpdatedAt"`
	Version           int      `dynamodbav:"Version"`
}

// tutorUserClaim reserves a user account for exactly one tutor profile
type tutorUserClaim struct {
	PK      string `dynamodbav:"PK"` // TUTORUSER#<user_id>
	SK      string `dynamodbav:"SK"` // CLAIM
	TutorID string `dynamodbav:"TutorID"`
}

// Save persists a tutor. The profile and its user claim are written in one
// transaction so a second profile for the same user rejects the save.
func (r *TutorRepository) Save(ctx context.Context, tutor *entities.Tutor) error {
	item := tutorItem{
		PK:                tutorPK(tutor.ID().String()),
		SK:                skMetadata,
		GSI1PK:            tutorUserPK(tutor.UserID().String()),
		GSI1SK:            skMetadata,
		EntityType:        entityTutor,
		TutorID:           tutor.ID().String(),
		UserID:            tutor.UserID().String(),
		Subjects:          tutor.Subjects(),
		HourlyRate:        tutor.HourlyRate(),
		Bio:               tutor.Bio(),
		CompletedSessions: tutor.CompletedSessions(),
		CancelledSessions: tutor.CancelledSessions(),
		ReputationScore:   tutor.ReputationScore(),
		Tier:              tutor.Tier().String(),
		Status:            string(tutor.Status()),
		CreatedAt:         tutor.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:         tutor.UpdatedAt().Format(time.RFC3339Nano),
		Version:           tutor.Version(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal tutor")
	}

	claim, err := attributevalue.MarshalMap(tutorUserClaim{
		PK:      tutorUserPK(tutor.UserID().String()),
		SK:      skClaim,
		TutorID: tutor.ID().String(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "marshal tutor user claim")
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item:      av,
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                claim,
				ConditionExpression: aws.String("attribute_not_exists(PK) OR TutorID = :tid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":tid": &types.AttributeValueMemberS{Value: tutor.ID().String()},
				},
			}},
		},
	})
	if err != nil {
		return mapConditionFailure(err,
			fmt.Sprintf("user %s already has a tutor profile", tutor.UserID()))
	}

	r.logger.Debug("tutor saved",
		zap.String("tutor_id", tutor.ID().String()),
		zap.Int("version", tutor.Version()))
	return nil
}

// FindByID retrieves a tutor by ID, (nil, nil) on miss
func (r *TutorRepository) FindByID(ctx context.Context, id valueobjects.TutorID) (*entities.Tutor, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: tutorPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get tutor", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item tutorItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal tutor")
	}
	return item.materialize()
}

// FindByUserID retrieves the tutor profile backing a user via GSI1,
// (nil, nil) on miss
func (r *TutorRepository) FindByUserID(ctx context.Context, userID valueobjects.UserID) (*entities.Tutor, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexGSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: tutorUserPK(userID.String())},
			":sk": &types.AttributeValueMemberS{Value: skMetadata},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query tutor by user", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var item tutorItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal tutor")
	}
	return item.materialize()
}

// FindBySubject retrieves one page of active tutors teaching a subject.
// Subjects are a set-valued attribute, so this filters a scan rather than
// hitting an index.
func (r *TutorRepository) FindBySubject(ctx context.Context, subject string, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	var empty ports.PagedResult[*entities.Tutor]

	items, err := scanEntity(ctx, r.client, r.tableName, entityTutor)
	if err != nil {
		return empty, err
	}

	needle := strings.ToLower(subject)
	records := make([]tutorItem, 0)
	for _, raw := range items {
		var item tutorItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return empty, pkgerrors.Wrap(err, "unmarshal tutor")
		}
		if item.Status != string(entities.TutorStatusActive) {
			continue
		}
		for _, s := range item.Subjects {
			if strings.ToLower(s) == needle {
				records = append(records, item)
				break
			}
		}
	}

	return r.pageTutors(records, page)
}

// FindAll retrieves one page of tutors ordered by creation time
func (r *TutorRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	var empty ports.PagedResult[*entities.Tutor]

	items, err := scanEntity(ctx, r.client, r.tableName, entityTutor)
	if err != nil {
		return empty, err
	}

	records := make([]tutorItem, 0, len(items))
	for _, raw := range items {
		var item tutorItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return empty, pkgerrors.Wrap(err, "unmarshal tutor")
		}
		records = append(records, item)
	}

	return r.pageTutors(records, page)
}

// Delete removes a tutor profile and its user claim
func (r *TutorRepository) Delete(ctx context.Context, id valueobjects.TutorID) error {
	tutor, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if tutor == nil {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("tutor %s", id))
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: tutorPK(id.String())},
					"SK": &types.AttributeValueMemberS{Value: skMetadata},
				},
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: tutorUserPK(tutor.UserID().String())},
					"SK": &types.AttributeValueMemberS{Value: skClaim},
				},
			}},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete tutor", err)
	}
	return nil
}

func (r *TutorRepository) pageTutors(records []tutorItem, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	var empty ports.PagedResult[*entities.Tutor]

	sort.Slice(records, func(i, j int) bool {
		if page.Desc {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].CreatedAt < records[j].CreatedAt
	})

	total := len(records)
	records = pageSlice(records, page)

	tutors := make([]*entities.Tutor, 0, len(records))
	for _, record := range records {
		tutor, err := record.materialize()
		if err != nil {
			return empty, err
		}
		tutors = append(tutors, tutor)
	}
	return ports.PagedResult[*entities.Tutor]{Items: tutors, Total: total}, nil
}

func (item tutorItem) materialize() (*entities.Tutor, error) {
	id, err := valueobjects.NewTutorIDFromString(item.TutorID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored tutor ID")
	}
	userID, err := valueobjects.NewUserIDFromString(item.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored user ID")
	}
	tier, err := valueobjects.ParseTier(item.Tier)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored tier")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored created_at")
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored updated_at")
	}

	return entities.ReconstructTutor(
		id, userID, item.Subjects, item.HourlyRate, item.Bio,
		item.CompletedSessions, item.CancelledSessions, item.ReputationScore,
		tier, entities.TutorStatus(item.Status),
		createdAt, updatedAt, item.Version,
	), nil
}
