// Package main implements the match notification Lambda. EventBridge routes
// matching lifecycle events here, and the handler pushes them to the
// student's open WebSocket connections.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Global AWS clients for Lambda performance optimization
var (
	dynamoClient *dynamodb.Client
	apiGwClient  *apigatewaymanagementapi.Client
)

// matchDetail is the EventBridge detail body shared by the matching events
type matchDetail struct {
	RequestID string `json:"request_id"`
	StudentID string `json:"student_id"`
	TutorID   string `json:"tutor_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// notification is the message format pushed to WebSocket clients
type notification struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      matchDetail `json:"data"`
}

func init() {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoClient = dynamodb.NewFromConfig(cfg)

	if endpoint := os.Getenv("WEBSOCKET_ENDPOINT"); endpoint != "" {
		apiGwClient = apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	log.Println("Match notification handler initialized")
}

func connectionsTable() string {
	if table := os.Getenv("CONNECTIONS_TABLE"); table != "" {
		return table
	}
	return "tutormatch-connections"
}

// connectionsForUser retrieves all active connection IDs for a user via the
// GSI1 user index
func connectionsForUser(ctx context.Context, userID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :userpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userpk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		},
	}

	result, err := dynamoClient.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}

	var connectionIDs []string
	for _, item := range result.Items {
		if connID, ok := item["ConnectionID"].(*types.AttributeValueMemberS); ok {
			connectionIDs = append(connectionIDs, connID.Value)
		}
	}

	return connectionIDs, nil
}

// removeStaleConnection deletes a connection row whose socket is gone
func removeStaleConnection(ctx context.Context, connectionID string) {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(connectionsTable()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	}

	if _, err := dynamoClient.DeleteItem(ctx, input); err != nil {
		log.Printf("Failed to remove stale connection %s: %v", connectionID, err)
	} else {
		log.Printf("Removed stale connection %s", connectionID)
	}
}

// pushToConnection sends the payload to one WebSocket connection. A gone
// connection is cleaned up, not treated as a failure.
func pushToConnection(ctx context.Context, connectionID string, payload []byte) error {
	_, err := apiGwClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err != nil {
		var goneErr *apigwTypes.GoneException
		if errors.As(err, &goneErr) {
			removeStaleConnection(ctx, connectionID)
			return nil
		}
		return fmt.Errorf("failed to post to connection %s: %w", connectionID, err)
	}
	return nil
}

// Handler processes one matching event from EventBridge
func Handler(ctx context.Context, event events.CloudWatchEvent) error {
	if apiGwClient == nil {
		log.Println("WEBSOCKET_ENDPOINT not configured, dropping notification")
		return nil
	}

	var detail matchDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("failed to unmarshal event detail: %w", err)
	}
	if detail.StudentID == "" {
		log.Printf("Event %s carries no student_id, skipping", event.DetailType)
		return nil
	}

	payload, err := json.Marshal(notification{
		Type:      event.DetailType,
		Timestamp: time.Now().Unix(),
		Data:      detail,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	connectionIDs, err := connectionsForUser(ctx, detail.StudentID)
	if err != nil {
		return err
	}
	if len(connectionIDs) == 0 {
		log.Printf("No open connections for user %s", detail.StudentID)
		return nil
	}

	var failures int
	for _, connectionID := range connectionIDs {
		if err := pushToConnection(ctx, connectionID, payload); err != nil {
			log.Printf("%v", err)
			failures++
		}
	}
	if failures == len(connectionIDs) {
		return fmt.Errorf("all %d pushes failed for user %s", failures, detail.StudentID)
	}

	log.Printf("Delivered %s to %d connection(s) for user %s",
		event.DetailType, len(connectionIDs)-failures, detail.StudentID)
	return nil
}

func main() {
	lambda.Start(Handler)
}
