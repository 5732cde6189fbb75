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

const tutorColumns = "id, user_id, subjects, hourly_rate, bio, completed_sessions, cancelled_sessions, reputation_score, tier, status, created_at, updated_at, version"

// TutorRepository implements ports.TutorRepository on PostgreSQL
type TutorRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewTutorRepository creates a new TutorRepository
func NewTutorRepository(pool *pgxpool.Pool, logger *zap.Logger) *TutorRepository {
	return &TutorRepository{pool: pool, logger: logger}
}

// Save upserts a tutor. The unique index on user_id enforces the
// one-profile-per-user rule.
func (r *TutorRepository) Save(ctx context.Context, tutor *entities.Tutor) error {
	query := `
		INSERT INTO tutors (id, user_id, subjects, hourly_rate, bio, completed_sessions, cancelled_sessions, reputation_score, tier, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			subjects = EXCLUDED.subjects,
			hourly_rate = EXCLUDED.hourly_rate,
			bio = EXCLUDED.bio,
			completed_sessions = EXCLUDED.completed_sessions,
			cancelled_sessions = EXCLUDED.cancelled_sessions,
			reputation_score = EXCLUDED.reputation_score,
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version`

	_, err := r.pool.Exec(ctx, query,
		tutor.ID().String(), tutor.UserID().String(), tutor.Subjects(),
		tutor.HourlyRate(), tutor.Bio(),
		tutor.CompletedSessions(), tutor.CancelledSessions(), tutor.ReputationScore(),
		tutor.Tier().String(), string(tutor.Status()),
		tutor.CreatedAt(), tutor.UpdatedAt(), tutor.Version(),
	)
	if err != nil {
		return mapWriteError(err, "save tutor", "user already has a tutor profile")
	}

	r.logger.Debug("tutor saved", zap.String("tutor_id", tutor.ID().String()))
	return nil
}

// FindByID retrieves a tutor by ID, (nil, nil) on miss
func (r *TutorRepository) FindByID(ctx context.Context, id valueobjects.TutorID) (*entities.Tutor, error) {
	return r.scanTutor(ctx,
		fmt.Sprintf("SELECT %s FROM tutors WHERE id = $1", tutorColumns), id.String())
}

// FindByUserID retrieves the tutor profile backing a user, (nil, nil) on miss
func (r *TutorRepository) FindByUserID(ctx context.Context, userID valueobjects.UserID) (*entities.Tutor, error) {
	return r.scanTutor(ctx,
		fmt.Sprintf("SELECT %s FROM tutors WHERE user_id = $1", tutorColumns), userID.String())
}

// FindBySubject retrieves one page of active tutors offering a subject
func (r *TutorRepository) FindBySubject(ctx context.Context, subject string, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	where := "WHERE status = 'active' AND EXISTS (SELECT 1 FROM unnest(subjects) s WHERE lower(s) = lower($1))"
	return r.listTutors(ctx, where, []any{subject}, page)
}

// FindAll retrieves one page of tutors ordered by creation time
func (r *TutorRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	return r.listTutors(ctx, "", nil, page)
}

// Delete removes a tutor
func (r *TutorRepository) Delete(ctx context.Context, id valueobjects.TutorID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM tutors WHERE id = $1", id.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("delete tutor", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("tutor %s", id))
	}
	return nil
}

func (r *TutorRepository) listTutors(ctx context.Context, where string, args []any, page ports.Page) (ports.PagedResult[*entities.Tutor], error) {
	var empty ports.PagedResult[*entities.Tutor]

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tutors %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return empty, pkgerrors.NewDatabaseError("count tutors", err)
	}

	direction := "ASC"
	if page.Desc {
		direction = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM tutors %s ORDER BY created_at %s, id LIMIT $%d OFFSET $%d",
		tutorColumns, where, direction, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return empty, pkgerrors.NewDatabaseError("list tutors", err)
	}
	defer rows.Close()

	var tutors []*entities.Tutor
	for rows.Next() {
		tutor, err := scanTutorRow(rows)
		if err != nil {
			return empty, err
		}
		tutors = append(tutors, tutor)
	}
	if err := rows.Err(); err != nil {
		return empty, pkgerrors.NewDatabaseError("list tutors", err)
	}

	return ports.PagedResult[*entities.Tutor]{Items: tutors, Total: total}, nil
}

func (r *TutorRepository) scanTutor(ctx context.Context, query string, arg any) (*entities.Tutor, error) {
	tutor, err := scanTutorRow(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		var appErr *pkgerrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, pkgerrors.NewDatabaseError("get tutor", err)
	}
	return tutor, nil
}

func scanTutorRow(row rowScanner) (*entities.Tutor, error) {
	var (
		rawID, rawUserID, bio string
		rawTier, rawStatus    string
		subjects              []string
		hourlyRate            float64
		completed, cancelled  int
		reputation, version   int
		createdAt, updatedAt  time.Time
	)
	err := row.Scan(&rawID, &rawUserID, &subjects, &hourlyRate, &bio,
		&completed, &cancelled, &reputation,
		&rawTier, &rawStatus, &createdAt, &updatedAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := valueobjects.NewTutorIDFromString(rawID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored tutor ID")
	}
	userID, err := valueobjects.NewUserIDFromString(rawUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored user ID")
	}
	tier, err := valueobjects.ParseTier(rawTier)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored tier")
	}

	return entities.ReconstructTutor(
		id, userID, subjects, hourlyRate, bio,
		completed, cancelled, reputation,
		tier, entities.TutorStatus(rawStatus),
		createdAt, updatedAt, version,
	), nil
}
