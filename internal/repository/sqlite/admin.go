package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/codesnap/internal/apperror"
	"github.com/sakif/codesnap/internal/model"
	"github.com/sakif/codesnap/internal/repository"
)

var _ repository.AdminRepository = (*DB)(nil)

// CreateAdmin inserts a new admin account. Used only by the startup
// bootstrap — there is no provisioning API.
func (db *DB) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	admin.ID = xid.New().String()
	admin.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO admins (id, username, password_hash, display_name, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		admin.ID,
		admin.Username,
		admin.PasswordHash,
		admin.DisplayName,
		admin.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("admin", admin.Username)
		}
		return fmt.Errorf("sqlite: creating admin: %w", err)
	}
	return nil
}

func (db *DB) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	admin, err := db.scanAdmin(db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, display_name, created_at
		 FROM admins WHERE username = ?`, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("admin", username)
		}
		return nil, fmt.Errorf("sqlite: getting admin by username: %w", err)
	}
	return admin, nil
}

func (db *DB) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	admin, err := db.scanAdmin(db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, display_name, created_at
		 FROM admins WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("admin", id)
		}
		return nil, fmt.Errorf("sqlite: getting admin %s: %w", id, err)
	}
	return admin, nil
}

// DeleteAdmin removes an admin account. Deleting an admin revokes every token
// it has ever been issued — Verify re-checks existence on each call.
func (db *DB) DeleteAdmin(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM admins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting admin %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("admin", id)
	}
	return nil
}

func (db *DB) scanAdmin(row *sql.Row) (*model.Admin, error) {
	var admin model.Admin
	err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.DisplayName,
		&admin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
