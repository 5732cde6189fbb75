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

const userColumns = "id, email, display_name, timezone, role, status, failed_logins, created_at, updated_at, version"

// UserRepository implements ports.UserRepository on PostgreSQL
type UserRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{pool: pool, logger: logger}
}

// Save upserts a user. The unique index on email enforces the one-account
// rule the conflict error reports.
func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, email, display_name, timezone, role, status, failed_logins, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			timezone = EXCLUDED.timezone,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			failed_logins = EXCLUDED.failed_logins,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version`

	_, err := r.pool.Exec(ctx, query,
		user.ID().String(), user.Email().String(), user.DisplayName(), user.Timezone(),
		user.Role().String(), string(user.Status()), user.FailedLogins(),
		user.CreatedAt(), user.UpdatedAt(), user.Version(),
	)
	if err != nil {
		return mapWriteError(err, "save user", "email is already registered")
	}

	r.logger.Debug("user saved", zap.String("user_id", user.ID().String()))
	return nil
}

// FindByID retrieves a user by ID, (nil, nil) on miss
func (r *UserRepository) FindByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	return r.scanUser(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns), id.String())
}

// FindByEmail retrieves a user by email, (nil, nil) on miss
func (r *UserRepository) FindByEmail(ctx context.Context, email valueobjects.Email) (*entities.User, error) {
	return r.scanUser(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns), email.String())
}

// FindAll retrieves one page of users ordered by creation time
func (r *UserRepository) FindAll(ctx context.Context, page ports.Page) (ports.PagedResult[*entities.User], error) {
	var empty ports.PagedResult[*entities.User]

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return empty, pkgerrors.NewDatabaseError("count users", err)
	}

	direction := "ASC"
	if page.Desc {
		direction = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY created_at %s, id LIMIT $1 OFFSET $2",
		userColumns, direction)

	rows, err := r.pool.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return empty, pkgerrors.NewDatabaseError("list users", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return empty, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return empty, pkgerrors.NewDatabaseError("list users", err)
	}

	return ports.PagedResult[*entities.User]{Items: users, Total: total}, nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id valueobjects.UserID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("user %s", id))
	}
	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, arg any) (*entities.User, error) {
	user, err := scanUserRow(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		var appErr *pkgerrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (*entities.User, error) {
	var (
		rawID, rawEmail, displayName, timezone string
		rawRole, rawStatus                     string
		failedLogins, version                  int
		createdAt, updatedAt                   time.Time
	)
	err := row.Scan(&rawID, &rawEmail, &displayName, &timezone,
		&rawRole, &rawStatus, &failedLogins, &createdAt, &updatedAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := valueobjects.NewUserIDFromString(rawID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored user ID")
	}
	email, err := valueobjects.NewEmail(rawEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored email")
	}
	role, err := valueobjects.ParseRole(rawRole)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored role")
	}

	return entities.ReconstructUser(
		id, email, displayName, timezone, role,
		entities.UserStatus(rawStatus), failedLogins,
		createdAt, updatedAt, version,
	), nil
}
