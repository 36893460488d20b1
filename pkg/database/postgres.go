package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"content-planner-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDatabase PostgreSQL数据库实现（pgx 连接池）
type PostgresDatabase struct {
	pool *pgxpool.Pool
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	config, err := pgxpool.ParseConfig(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	// 设置连接池参数，适合无服务器环境
	config.MaxConns = 5
	config.MinConns = 0
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresDatabase{pool: pool}, nil
}

const ideaColumns = `id, user_id, title, description, content, status, priority, is_favorite,
	content_type, tags, notes, created_at, updated_at`

const contentItemColumns = `id, user_id, idea_id, title, description, content, content_type, status,
	tags, scheduled_date, published_date, archived, created_at, updated_at`

const swipeFileColumns = `id, user_id, title, description, url, content, image_url, source,
	tags, favorite, archived, created_at, updated_at`

// validID 非 UUID 的 id 不可能存在
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanPgIdea(row pgx.Row) (*models.Idea, error) {
	var idea models.Idea
	var status, priority string
	var contentType *string
	err := row.Scan(
		&idea.ID, &idea.UserID, &idea.Title, &idea.Description, &idea.Content,
		&status, &priority, &idea.IsFavorite, &contentType, &idea.Tags, &idea.Notes,
		&idea.CreatedAt, &idea.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	idea.Status, _ = models.ParseIdeaStatus(status)
	idea.Priority, _ = models.ParsePriority(priority)
	if contentType != nil {
		idea.ContentType = models.ContentType(*contentType)
	}
	return &idea, nil
}

func scanPgContentItem(row pgx.Row) (*models.ContentItem, error) {
	var item models.ContentItem
	var contentType string
	err := row.Scan(
		&item.ID, &item.UserID, &item.IdeaID, &item.Title, &item.Description, &item.Content,
		&contentType, &item.Status, &item.Tags, &item.ScheduledDate, &item.PublishedDate,
		&item.Archived, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ContentType = models.ContentType(contentType)
	return &item, nil
}

func scanPgSwipeFile(row pgx.Row) (*models.SwipeFile, error) {
	var file models.SwipeFile
	err := row.Scan(
		&file.ID, &file.UserID, &file.Title, &file.Description, &file.URL, &file.Content,
		&file.ImageURL, &file.Source, &file.Tags, &file.Favorite, &file.Archived,
		&file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// notFound 把 pgx.ErrNoRows 转为 ErrNotFound
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// buildSet 根据补丁列生成 SET 子句，参数从 $start 开始编号
func buildSet(cols map[string]interface{}, start int) (string, []interface{}) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names))
	for i, name := range names {
		parts = append(parts, fmt.Sprintf("%s = $%d", name, start+i))
		args = append(args, cols[name])
	}
	return strings.Join(parts, ", "), args
}

// ================= Users =================

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, NOW()) RETURNING created_at`,
		user.ID, user.Email, user.Password,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ================= Ideas =================

func (db *PostgresDatabase) ListIdeas(ctx context.Context, userID string, opts ListOptions) ([]models.Idea, error) {
	if !validID(userID) {
		return []models.Idea{}, nil
	}
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE user_id = $1 ORDER BY created_at `
	if opts.OldestFirst {
		query += "ASC"
	} else {
		query += "DESC"
	}
	args := []interface{}{userID}
	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ideas: %w", err)
	}
	defer rows.Close()

	ideas := []models.Idea{}
	for rows.Next() {
		idea, err := scanPgIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		ideas = append(ideas, *idea)
	}
	return ideas, rows.Err()
}

func (db *PostgresDatabase) GetIdea(ctx context.Context, userID, id string) (*models.Idea, error) {
	if !validID(id) || !validID(userID) {
		return nil, ErrNotFound
	}
	idea, err := scanPgIdea(db.pool.QueryRow(ctx,
		`SELECT `+ideaColumns+` FROM ideas WHERE id = $1 AND user_id = $2`, id, userID))
	return idea, notFound(err)
}

func (db *PostgresDatabase) InsertIdea(ctx context.Context, idea models.NewIdea) (*models.Idea, error) {
	query := `
		INSERT INTO ideas (id, user_id, title, description, status, priority, is_favorite, content_type, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING ` + ideaColumns
	row, err := scanPgIdea(db.pool.QueryRow(ctx, query,
		uuid.New().String(), idea.UserID, idea.Title, idea.Description,
		idea.Status.String(), idea.Priority.String(), idea.IsFavorite,
		idea.ContentType.String(), idea.Tags,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}
	return row, nil
}

func (db *PostgresDatabase) UpdateIdea(ctx context.Context, userID, id string, patch models.IdeaPatch) (*models.Idea, error) {
	if !validID(id) || !validID(userID) {
		return nil, ErrNotFound
	}
	set, args := buildSet(withUpdatedAt(patch.Columns()), 3)
	query := `UPDATE ideas SET ` + set + ` WHERE id = $1 AND user_id = $2 RETURNING ` + ideaColumns
	idea, err := scanPgIdea(db.pool.QueryRow(ctx, query, append([]interface{}{id, userID}, args...)...))
	return idea, notFound(err)
}

func (db *PostgresDatabase) DeleteIdea(ctx context.Context, userID, id string) error {
	if !validID(id) || !validID(userID) {
		return ErrNotFound
	}
	result, err := db.pool.Exec(ctx, `DELETE FROM ideas WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete idea: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgresDatabase) CountIdeas(ctx context.Context, userID string) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ideas WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ideas: %w", err)
	}
	return count, nil
}

// ================= Content items =================

func (db *PostgresDatabase) ListContentItems(ctx context.Context, userID string, filter ContentFilter) ([]models.ContentItem, error) {
	if !validID(userID) {
		return []models.ContentItem{}, nil
	}
	query := `SELECT ` + contentItemColumns + ` FROM content_items WHERE user_id = $1`
	args := []interface{}{userID}
	if filter.IdeaID != "" {
		if !validID(filter.IdeaID) {
			return []models.ContentItem{}, nil
		}
		args = append(args, filter.IdeaID)
		query += fmt.Sprintf(" AND idea_id = $%d", len(args))
	}
	if !filter.IncludeArchived {
		query += " AND archived = FALSE"
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content items: %w", err)
	}
	defer rows.Close()

	items := []models.ContentItem{}
	for rows.Next() {
		item, err := scanPgContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (db *PostgresDatabase) InsertContentItem(ctx context.Context, item models.NewContentItem) (*models.ContentItem, error) {
	query := `
		INSERT INTO content_items (id, user_id, idea_id, title, description, content, content_type, status, tags, scheduled_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING ` + contentItemColumns
	row, err := scanPgContentItem(db.pool.QueryRow(ctx, query,
		uuid.New().String(), item.UserID, item.IdeaID, item.Title, item.Description, item.Content,
		item.ContentType.String(), item.Status, item.Tags, item.ScheduledDate,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create content item: %w", err)
	}
	return row, nil
}

func (db *PostgresDatabase) UpdateContentItem(ctx context.Context, userID, id string, patch models.ContentItemPatch) (*models.ContentItem, error) {
	if !validID(id) || !validID(userID) {
		return nil, ErrNotFound
	}
	set, args := buildSet(withUpdatedAt(patch.Columns()), 3)
	query := `UPDATE content_items SET ` + set + ` WHERE id = $1 AND user_id = $2 RETURNING ` + contentItemColumns
	item, err := scanPgContentItem(db.pool.QueryRow(ctx, query, append([]interface{}{id, userID}, args...)...))
	return item, notFound(err)
}

func (db *PostgresDatabase) DeleteContentItem(ctx context.Context, userID, id string) error {
	if !validID(id) || !validID(userID) {
		return ErrNotFound
	}
	result, err := db.pool.Exec(ctx, `DELETE FROM content_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete content item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgresDatabase) CountContentItems(ctx context.Context, userID string) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM content_items WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content items: %w", err)
	}
	return count, nil
}

func (db *PostgresDatabase) CountScheduledBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	if !validID(userID) {
		return 0, nil
	}
	var count int
	err := db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM content_items
		WHERE user_id = $1 AND archived = FALSE AND scheduled_date >= $2 AND scheduled_date < $3`,
		userID, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scheduled content: %w", err)
	}
	return count, nil
}

// ================= Swipe files =================

func (db *PostgresDatabase) ListSwipeFiles(ctx context.Context, userID string, includeArchived bool) ([]models.SwipeFile, error) {
	if !validID(userID) {
		return []models.SwipeFile{}, nil
	}
	query := `SELECT ` + swipeFileColumns + ` FROM swipe_files WHERE user_id = $1`
	if !includeArchived {
		query += " AND archived = FALSE"
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query swipe files: %w", err)
	}
	defer rows.Close()

	files := []models.SwipeFile{}
	for rows.Next() {
		file, err := scanPgSwipeFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swipe file: %w", err)
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

func (db *PostgresDatabase) InsertSwipeFile(ctx context.Context, file models.NewSwipeFile) (*models.SwipeFile, error) {
	query := `
		INSERT INTO swipe_files (id, user_id, title, description, url, content, image_url, source, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING ` + swipeFileColumns
	row, err := scanPgSwipeFile(db.pool.QueryRow(ctx, query,
		uuid.New().String(), file.UserID, file.Title, file.Description, file.URL,
		file.Content, file.ImageURL, file.Source, file.Tags,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create swipe file: %w", err)
	}
	return row, nil
}

func (db *PostgresDatabase) UpdateSwipeFile(ctx context.Context, userID, id string, patch models.SwipeFilePatch) (*models.SwipeFile, error) {
	if !validID(id) || !validID(userID) {
		return nil, ErrNotFound
	}
	set, args := buildSet(withUpdatedAt(patch.Columns()), 3)
	query := `UPDATE swipe_files SET ` + set + ` WHERE id = $1 AND user_id = $2 RETURNING ` + swipeFileColumns
	file, err := scanPgSwipeFile(db.pool.QueryRow(ctx, query, append([]interface{}{id, userID}, args...)...))
	return file, notFound(err)
}

func (db *PostgresDatabase) DeleteSwipeFile(ctx context.Context, userID, id string) error {
	if !validID(id) || !validID(userID) {
		return ErrNotFound
	}
	result, err := db.pool.Exec(ctx, `DELETE FROM swipe_files WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete swipe file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ================= Profiles =================

func (db *PostgresDatabase) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if !validID(userID) {
		return nil, ErrNotFound
	}
	var p models.Profile
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, full_name, avatar_url, updated_at FROM profiles WHERE id = $1`, userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpsertProfile 使用 ON CONFLICT 插入或更新；xmax = 0 表示新插入的行
func (db *PostgresDatabase) UpsertProfile(ctx context.Context, profile models.Profile) (bool, error) {
	var created bool
	err := db.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING (xmax = 0)`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to save profile: %w", err)
	}
	return created, nil
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close 关闭连接池
func (db *PostgresDatabase) Close() error {
	db.pool.Close()
	return nil
}
