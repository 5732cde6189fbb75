package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	pkgerrors "tutormatch-backend/pkg/errors"
)

const requestColumns = "id, student_id, subject, budget_per_hour, schedule, notes, status, tutor_id, created_at, updated_at, version"

// MatchingRequestRepository implements ports.MatchingRequestRepository on
// PostgreSQL
type MatchingRequestRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewMatchingRequestRepository creates a new MatchingRequestRepository
func NewMatchingRequestRepository(pool *pgxpool.Pool, logger *zap.Logger) *MatchingRequestRepository {
	return &MatchingRequestRepository{pool: pool, logger: logger}
}

// Save upserts a request
func (r *MatchingRequestRepository) Save(ctx context.Context, request *entities.MatchingRequest) error {
	query := `
		INSERT INTO matching_requests (id, student_id, subject, budget_per_hour, schedule, notes, status, tutor_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			tutor_id = EXCLUDED.tutor_id,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version`

	var tutorID *string
	if !request.TutorID().IsZero() {
		s := request.TutorID().String()
		tutorID = &s
	}

	_, err := r.pool.Exec(ctx, query,
		request.ID().String(), request.StudentID().String(), request.Subject(),
		request.BudgetPerHour(), request.Schedule(), request.Notes(),
		string(request.Status()), tutorID,
		request.CreatedAt(), request.UpdatedAt(), request.Version(),
	)
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
	request, err := scanRequestRow(r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM matching_requests WHERE id = $1", requestColumns), id.String()))
	if err != nil {
		var appErr *pkgerrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, pkgerrors.NewDatabaseError("get matching request", err)
	}
	return request, nil
}

// FindByStudentID retrieves one page of a student's requests, newest first
func (r *MatchingRequestRepository) FindByStudentID(ctx context.Context, studentID valueobjects.UserID, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	return r.listRequests(ctx, "WHERE student_id = $1", []any{studentID.String()}, "created_at DESC, id", page)
}

// CountOpenByStudentID counts the student's pending and matched requests
func (r *MatchingRequestRepository) CountOpenByStudentID(ctx context.Context, studentID valueobjects.UserID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM matching_requests WHERE student_id = $1 AND status IN ('pending', 'matched')",
		studentID.String()).Scan(&count)
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("count open requests", err)
	}
	return count, nil
}

// FindPendingCreatedBefore retrieves pending requests older than the cutoff,
// oldest first, up to limit
func (r *MatchingRequestRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.MatchingRequest, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM matching_requests WHERE status = 'pending' AND created_at < $1 ORDER BY created_at, id LIMIT $2",
		requestColumns)

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list expirable requests", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// FindAll retrieves one page of requests ordered by creation time
func (r *MatchingRequestRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	order := "created_at ASC, id"
	if page.Desc {
		order = "created_at DESC, id"
	}
	return r.listRequests(ctx, "", nil, order, page)
}

// Delete removes a request
func (r *MatchingRequestRepository) Delete(ctx context.Context, id valueobjects.RequestID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM matching_requests WHERE id = $1", id.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("delete matching request", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("matching request %s", id))
	}
	return nil
}

func (r *MatchingRequestRepository) listRequests(ctx context.Context, where string, args []any, order string, page ports.Page) (ports.PagedResult[*entities.MatchingRequest], error) {
	var empty ports.PagedResult[*entities.MatchingRequest]

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM matching_requests %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return empty, pkgerrors.NewDatabaseError("count matching requests", err)
	}

	query := fmt.Sprintf("SELECT %s FROM matching_requests %s ORDER BY %s LIMIT $%d OFFSET $%d",
		requestColumns, where, order, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return empty, pkgerrors.NewDatabaseError("list matching requests", err)
	}
	defer rows.Close()

	requests, err := collectRequests(rows)
	if err != nil {
		return empty, err
	}
	return ports.PagedResult[*entities.MatchingRequest]{Items: requests, Total: total}, nil
}

func collectRequests(rows pgx.Rows) ([]*entities.MatchingRequest, error) {
	var requests []*entities.MatchingRequest
	for rows.Next() {
		request, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("scan matching requests", err)
	}
	return requests, nil
}

func scanRequestRow(row rowScanner) (*entities.MatchingRequest, error) {
	var (
		rawID, rawStudentID  string
		subject, schedule    string
		notes, rawStatus     string
		rawTutorID           *string
		budgetPerHour        float64
		version              int
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&rawID, &rawStudentID, &subject, &budgetPerHour,
		&schedule, &notes, &rawStatus, &rawTutorID,
		&createdAt, &updatedAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := valueobjects.NewRequestIDFromString(rawID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored request ID")
	}
	studentID, err := valueobjects.NewUserIDFromString(rawStudentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored student ID")
	}

	var tutorID valueobjects.TutorID
	if rawTutorID != nil {
		tutorID, err = valueobjects.NewTutorIDFromString(*rawTutorID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stored tutor ID")
		}
	}

	return entities.ReconstructMatchingRequest(
		id, studentID, subject, budgetPerHour,
		schedule, notes,
		entities.RequestStatus(rawStatus), tutorID,
		createdAt, updatedAt, version,
	), nil
}
