package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/models"
)

// sqlUserRepo is the database/sql implementation backed by a db.Querier.
type sqlUserRepo struct {
	q       db.Querier
	dialect db.Dialect
}

// NewSQLUserRepository returns a UserRepository over q, writing SQL in the
// given dialect.
func NewSQLUserRepository(q db.Querier, dialect db.Dialect) UserRepository {
	return &sqlUserRepo{q: q, dialect: dialect}
}

const userColumns = `id, name, email, created_at, active`

const (
	sqlInsertUser = `
		INSERT INTO users (name, email, created_at, active)
		VALUES (?, ?, ?, ?)`

	sqlUpdateUser = `
		UPDATE users
		SET    name = ?, email = ?, active = ?
		WHERE  id = ?`

	sqlGetUserByID = `
		SELECT ` + userColumns + `
		FROM   users
		WHERE  id = ?`

	sqlListUsers = `
		SELECT ` + userColumns + `
		FROM   users
		ORDER  BY id`

	sqlUsersByName = `
		SELECT ` + userColumns + `
		FROM   users
		WHERE  name = ?
		ORDER  BY id`

	sqlUsersByEmail = `
		SELECT ` + userColumns + `
		FROM   users
		WHERE  email = ?
		ORDER  BY id`

	sqlActiveUsers = `
		SELECT ` + userColumns + `
		FROM   users
		WHERE  active = ?
		ORDER  BY id`

	sqlDeleteUser = `DELETE FROM users WHERE id = ?`

	sqlUpdateStatus = `UPDATE users SET active = ? WHERE id = ?`

	sqlUserExists = `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`

	sqlCountUsers = `SELECT COUNT(*) FROM users`
)

func (r *sqlUserRepo) FindByID(ctx context.Context, id int64) (models.Optional[*models.User], error) {
	u, err := scanUser(r.q.QueryRow(ctx, r.dialect.Rebind(sqlGetUserByID), id))
	if db.IsNotFound(err) {
		return models.None[*models.User](), nil
	}
	if err != nil {
		return models.None[*models.User](), err
	}
	return models.Some(u), nil
}

func (r *sqlUserRepo) FindAll(ctx context.Context) ([]*models.User, error) {
	return r.list(ctx, sqlListUsers)
}

func (r *sqlUserRepo) FindByName(ctx context.Context, name string) ([]*models.User, error) {
	return r.list(ctx, sqlUsersByName, name)
}

func (r *sqlUserRepo) FindByEmail(ctx context.Context, email string) ([]*models.User, error) {
	return r.list(ctx, sqlUsersByEmail, email)
}

func (r *sqlUserRepo) FindActiveUsers(ctx context.Context) ([]*models.User, error) {
	return r.list(ctx, sqlActiveUsers, true)
}

// FindByFilter pushes the active, ID and creation-time criteria into the
// WHERE clause. NameContains is applied afterwards through f.Matches, since
// SQL case folding is ASCII-only in SQLite and collation-dependent elsewhere.
func (r *sqlUserRepo) FindByFilter(ctx context.Context, f UserFilter) ([]*models.User, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if f.Active != nil {
		where = append(where, "active = ?")
		args = append(args, *f.Active)
	}
	if f.MinID != nil {
		where = append(where, "id >= ?")
		args = append(args, *f.MinID)
	}
	if f.MaxID != nil {
		where = append(where, "id <= ?")
		args = append(args, *f.MaxID)
	}
	if f.CreatedAfter != nil {
		where = append(where, "created_at > ?")
		args = append(args, f.CreatedAfter.UTC())
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`
	users, err := r.list(ctx, query, args...)
	if err != nil || f.NameContains == "" {
		return users, err
	}

	matched := users[:0]
	for _, u := range users {
		if f.Matches(u) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func (r *sqlUserRepo) Save(ctx context.Context, u *models.User) (*models.User, error) {
	if u.HasID() {
		return r.update(ctx, u)
	}
	return r.insert(ctx, u)
}

func (r *sqlUserRepo) insert(ctx context.Context, u *models.User) (*models.User, error) {
	saved := clone(u)
	saved.CreatedAt = u.CreatedAt.UTC()

	id, err := insertRow(ctx, r.dialect, r.q.QueryRow, r.q.Exec, saved)
	if err != nil {
		return nil, fmt.Errorf("repo/user: insert: %w", err)
	}
	saved.ID = id
	return saved, nil
}

// insertRow inserts one user and returns the storage-assigned ID, using
// RETURNING where the dialect has it and LastInsertId otherwise.
func insertRow(
	ctx context.Context,
	dialect db.Dialect,
	queryRow func(context.Context, string, ...any) *db.Row,
	exec func(context.Context, string, ...any) (sql.Result, error),
	u *models.User,
) (int64, error) {
	args := []any{u.Name, u.Email, u.CreatedAt, u.Active}
	if dialect.Returning {
		var id int64
		err := queryRow(ctx, dialect.Rebind(sqlInsertUser+` RETURNING id`), args...).Scan(&id)
		return id, err
	}
	res, err := exec(ctx, dialect.Rebind(sqlInsertUser), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *sqlUserRepo) update(ctx context.Context, u *models.User) (*models.User, error) {
	res, err := r.q.Exec(ctx, r.dialect.Rebind(sqlUpdateUser), u.Name, u.Email, u.Active, u.ID)
	if err != nil {
		return nil, fmt.Errorf("repo/user: update: %w", err)
	}
	if err := r.ensureAffected(ctx, res, u.ID); err != nil {
		return nil, fmt.Errorf("repo/user: update %d: %w", u.ID, err)
	}
	return scanUser(r.q.QueryRow(ctx, r.dialect.Rebind(sqlGetUserByID), u.ID))
}

// DeleteByID returns db.ErrNotFound if no row was deleted.
func (r *sqlUserRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.q.Exec(ctx, r.dialect.Rebind(sqlDeleteUser), id)
	if err != nil {
		return fmt.Errorf("repo/user: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("repo/user: delete %d: %w", id, db.ErrNotFound)
	}
	return nil
}

func (r *sqlUserRepo) UpdateUserStatus(ctx context.Context, id int64, active bool) error {
	res, err := r.q.Exec(ctx, r.dialect.Rebind(sqlUpdateStatus), active, id)
	if err != nil {
		return fmt.Errorf("repo/user: update status: %w", err)
	}
	if err := r.ensureAffected(ctx, res, id); err != nil {
		return fmt.Errorf("repo/user: update status %d: %w", id, err)
	}
	return nil
}

// ensureAffected turns a zero-row UPDATE into db.ErrNotFound. MySQL reports
// zero affected rows when the values were already current, so a zero count
// is confirmed with an existence check.
func (r *sqlUserRepo) ensureAffected(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	ok, err := r.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return db.ErrNotFound
	}
	return nil
}

func (r *sqlUserRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, r.dialect.Rebind(sqlUserExists), id).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo/user: exists: %w", err)
	}
	return ok, nil
}

func (r *sqlUserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, sqlCountUsers).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo/user: count: %w", err)
	}
	return n, nil
}

// InsertAll inserts new users through one prepared statement. Users that
// already carry an ID are rejected before anything is written.
func (r *sqlUserRepo) InsertAll(ctx context.Context, users []*models.User) ([]*models.User, error) {
	if len(users) == 0 {
		return nil, nil
	}
	for _, u := range users {
		if u.HasID() {
			return nil, fmt.Errorf("repo/user: InsertAll: user %d is already persisted", u.ID)
		}
	}

	query := sqlInsertUser
	if r.dialect.Returning {
		query += ` RETURNING id`
	}
	stmt, err := r.q.Prepare(ctx, r.dialect.Rebind(query))
	if err != nil {
		return nil, fmt.Errorf("repo/user: prepare batch: %w", err)
	}
	defer stmt.Close()

	queryRow := func(ctx context.Context, _ string, args ...any) *db.Row { return stmt.QueryRow(ctx, args...) }
	exec := func(ctx context.Context, _ string, args ...any) (sql.Result, error) { return stmt.Exec(ctx, args...) }

	saved := make([]*models.User, 0, len(users))
	for _, u := range users {
		s := clone(u)
		s.CreatedAt = u.CreatedAt.UTC()
		id, err := insertRow(ctx, r.dialect, queryRow, exec, s)
		if err != nil {
			return saved, fmt.Errorf("repo/user: batch insert %q: %w", u.Email, err)
		}
		s.ID = id
		saved = append(saved, s)
	}
	return saved, nil
}

func (r *sqlUserRepo) list(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.q.Query(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("repo/user: list: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.Active); err != nil {
			return nil, fmt.Errorf("repo/user: scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// scanUser is the single place mapping a row to models.User.
func scanUser(row *db.Row) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.Active); err != nil {
		return nil, fmt.Errorf("repo/user: %w", err)
	}
	return u, nil
}

var (
	_ UserRepository = (*sqlUserRepo)(nil)
	_ BatchInserter  = (*sqlUserRepo)(nil)
)
