// Package dynamodb implements the persistence ports on a single DynamoDB
// table. Aggregates live under typed partition keys with a METADATA sort
// key; GSI1 serves alternate-key lookups and GSI2 serves status scans.
// Uniqueness constraints are enforced with claim rows written in the same
// transaction as the aggregate item.
package dynamodb

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	pkgerrors "tutormatch-backend/pkg/errors"
)

const (
	skMetadata = "METADATA"
	skClaim    = "CLAIM"

	entityUser    = "USER"
	entityTutor   = "TUTOR"
	entityRequest = "REQUEST"
	entityEvent   = "EVENT"

	indexGSI1 = "GSI1"
	indexGSI2 = "GSI2"
)

func userPK(id string) string        { return fmt.Sprintf("USER#%s", id) }
func tutorPK(id string) string       { return fmt.Sprintf("TUTOR#%s", id) }
func requestPK(id string) string     { return fmt.Sprintf("REQUEST#%s", id) }
func eventsPK(aggID string) string   { return fmt.Sprintf("EVENTS#%s", aggID) }
func emailClaimPK(e string) string   { return fmt.Sprintf("EMAIL#%s", e) }
func tutorUserPK(userID string) string { return fmt.Sprintf("TUTORUSER#%s", userID) }
func studentGSI1PK(id string) string { return fmt.Sprintf("STUDENT#%s", id) }
func statusGSI2PK(entity, status string) string {
	return fmt.Sprintf("%sSTATUS#%s", entity, status)
}
func publishGSI1PK(status string) string { return fmt.Sprintf("PUBLISH#%s", status) }
func eventIDGSI2PK(id string) string     { return fmt.Sprintf("EVENTID#%s", id) }

// mapConditionFailure turns a conditional-write rejection into the conflict
// error the application layer expects; anything else is a database error.
func mapConditionFailure(err error, conflictMessage string) error {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return pkgerrors.NewConflictError(conflictMessage)
	}
	var txCancelled *types.TransactionCanceledException
	if errors.As(err, &txCancelled) {
		for _, reason := range txCancelled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return pkgerrors.NewConflictError(conflictMessage)
			}
		}
	}
	return pkgerrors.NewDatabaseError("write", err)
}
