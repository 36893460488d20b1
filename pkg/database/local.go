package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"content-planner-backend/pkg/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LocalDatabase 本地 SQLite 文件数据库实现，用于开发与单机部署
type LocalDatabase struct {
	db   *sql.DB
	path string
}

// NewLocalDatabase 创建本地数据库实例
func NewLocalDatabase(path string) (*LocalDatabase, error) {
	if path == "" {
		path = "./data/planner.db"
	}
	if path != ":memory:" {
		// 在Vercel等只读文件系统中，退回到临时目录
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			path = filepath.Join(os.TempDir(), "content-planner", filepath.Base(path))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	// SQLite 只允许单写者
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local schema: %w", err)
	}

	return &LocalDatabase{db: db, path: path}, nil
}

// Path 返回数据库文件路径
func (db *LocalDatabase) Path() string {
	return db.path
}

type rowScanner interface {
	Scan(dest ...any) error
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	return string(data)
}

func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

// sqliteValue 把补丁值转换为 SQLite 可存储的形式
func sqliteValue(name string, v interface{}) interface{} {
	if name == "tags" {
		if tags, ok := v.([]string); ok {
			return encodeTags(tags)
		}
	}
	return v
}

// sqliteSet 根据补丁列生成 SET 子句
func sqliteSet(cols map[string]interface{}) (string, []interface{}) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names)+2)
	for _, name := range names {
		parts = append(parts, name+" = ?")
		args = append(args, sqliteValue(name, cols[name]))
	}
	return strings.Join(parts, ", "), args
}

func scanLocalIdea(row rowScanner) (*models.Idea, error) {
	var idea models.Idea
	var status, priority, tags string
	var contentType *string
	err := row.Scan(
		&idea.ID, &idea.UserID, &idea.Title, &idea.Description, &idea.Content,
		&status, &priority, &idea.IsFavorite, &contentType, &tags, &idea.Notes,
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
	idea.Tags = decodeTags(tags)
	return &idea, nil
}

func scanLocalContentItem(row rowScanner) (*models.ContentItem, error) {
	var item models.ContentItem
	var contentType, tags string
	err := row.Scan(
		&item.ID, &item.UserID, &item.IdeaID, &item.Title, &item.Description, &item.Content,
		&contentType, &item.Status, &tags, &item.ScheduledDate, &item.PublishedDate,
		&item.Archived, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ContentType = models.ContentType(contentType)
	item.Tags = decodeTags(tags)
	return &item, nil
}

func scanLocalSwipeFile(row rowScanner) (*models.SwipeFile, error) {
	var file models.SwipeFile
	var tags string
	err := row.Scan(
		&file.ID, &file.UserID, &file.Title, &file.Description, &file.URL, &file.Content,
		&file.ImageURL, &file.Source, &tags, &file.Favorite, &file.Archived,
		&file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	file.Tags = decodeTags(tags)
	return &file, nil
}

func sqlNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// ================= Users =================

// CreateUser 创建用户
func (db *LocalDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := db.GetUserByEmail(ctx, user.Email); err == nil {
		return fmt.Errorf("user already exists")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := db.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Password, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *LocalDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &u, nil
}

// ================= Ideas =================

func (db *LocalDatabase) ListIdeas(ctx context.Context, userID string, opts ListOptions) ([]models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE user_id = ?`
	if opts.OldestFirst {
		query += " ORDER BY created_at ASC, rowid ASC"
	} else {
		query += " ORDER BY created_at DESC, rowid DESC"
	}
	args := []interface{}{userID}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ideas: %w", err)
	}
	defer rows.Close()

	ideas := []models.Idea{}
	for rows.Next() {
		idea, err := scanLocalIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		ideas = append(ideas, *idea)
	}
	return ideas, rows.Err()
}

func (db *LocalDatabase) GetIdea(ctx context.Context, userID, id string) (*models.Idea, error) {
	idea, err := scanLocalIdea(db.db.QueryRowContext(ctx,
		`SELECT `+ideaColumns+` FROM ideas WHERE id = ? AND user_id = ?`, id, userID))
	return idea, sqlNotFound(err)
}

func (db *LocalDatabase) InsertIdea(ctx context.Context, idea models.NewIdea) (*models.Idea, error) {
	id := uuid.New().String()
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO ideas (id, user_id, title, description, status, priority, is_favorite, content_type, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, idea.UserID, idea.Title, nullable(idea.Description),
		idea.Status.String(), idea.Priority.String(), idea.IsFavorite,
		nullable(idea.ContentType.String()), encodeTags(idea.Tags), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}
	return db.GetIdea(ctx, idea.UserID, id)
}

func (db *LocalDatabase) UpdateIdea(ctx context.Context, userID, id string, patch models.IdeaPatch) (*models.Idea, error) {
	if err := db.update(ctx, "ideas", userID, id, patch.Columns()); err != nil {
		return nil, err
	}
	return db.GetIdea(ctx, userID, id)
}

func (db *LocalDatabase) DeleteIdea(ctx context.Context, userID, id string) error {
	return db.delete(ctx, "ideas", userID, id)
}

func (db *LocalDatabase) CountIdeas(ctx context.Context, userID string) (int, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM ideas WHERE user_id = ?`, userID)
}

// ================= Content items =================

func (db *LocalDatabase) ListContentItems(ctx context.Context, userID string, filter ContentFilter) ([]models.ContentItem, error) {
	query := `SELECT ` + contentItemColumns + ` FROM content_items WHERE user_id = ?`
	args := []interface{}{userID}
	if filter.IdeaID != "" {
		query += " AND idea_id = ?"
		args = append(args, filter.IdeaID)
	}
	if !filter.IncludeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content items: %w", err)
	}
	defer rows.Close()

	items := []models.ContentItem{}
	for rows.Next() {
		item, err := scanLocalContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (db *LocalDatabase) getContentItem(ctx context.Context, userID, id string) (*models.ContentItem, error) {
	item, err := scanLocalContentItem(db.db.QueryRowContext(ctx,
		`SELECT `+contentItemColumns+` FROM content_items WHERE id = ? AND user_id = ?`, id, userID))
	return item, sqlNotFound(err)
}

func (db *LocalDatabase) InsertContentItem(ctx context.Context, item models.NewContentItem) (*models.ContentItem, error) {
	id := uuid.New().String()
	var ideaID interface{}
	if item.IdeaID != nil {
		ideaID = *item.IdeaID
	}
	status := item.Status
	if status == "" {
		status = models.ContentStatusDraft
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO content_items (id, user_id, idea_id, title, description, content, content_type, status, tags, scheduled_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.UserID, ideaID, item.Title, nullable(item.Description), nullable(item.Content),
		item.ContentType.String(), status, encodeTags(item.Tags), nullableTime(item.ScheduledDate),
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create content item: %w", err)
	}
	return db.getContentItem(ctx, item.UserID, id)
}

func (db *LocalDatabase) UpdateContentItem(ctx context.Context, userID, id string, patch models.ContentItemPatch) (*models.ContentItem, error) {
	if err := db.update(ctx, "content_items", userID, id, patch.Columns()); err != nil {
		return nil, err
	}
	return db.getContentItem(ctx, userID, id)
}

func (db *LocalDatabase) DeleteContentItem(ctx context.Context, userID, id string) error {
	return db.delete(ctx, "content_items", userID, id)
}

func (db *LocalDatabase) CountContentItems(ctx context.Context, userID string) (int, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM content_items WHERE user_id = ?`, userID)
}

func (db *LocalDatabase) CountScheduledBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return db.count(ctx, `
		SELECT COUNT(*) FROM content_items
		WHERE user_id = ? AND archived = 0 AND scheduled_date >= ? AND scheduled_date < ?`,
		userID, from.UTC(), to.UTC(),
	)
}

// ================= Swipe files =================

func (db *LocalDatabase) ListSwipeFiles(ctx context.Context, userID string, includeArchived bool) ([]models.SwipeFile, error) {
	query := `SELECT ` + swipeFileColumns + ` FROM swipe_files WHERE user_id = ?`
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := db.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query swipe files: %w", err)
	}
	defer rows.Close()

	files := []models.SwipeFile{}
	for rows.Next() {
		file, err := scanLocalSwipeFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swipe file: %w", err)
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

func (db *LocalDatabase) getSwipeFile(ctx context.Context, userID, id string) (*models.SwipeFile, error) {
	file, err := scanLocalSwipeFile(db.db.QueryRowContext(ctx,
		`SELECT `+swipeFileColumns+` FROM swipe_files WHERE id = ? AND user_id = ?`, id, userID))
	return file, sqlNotFound(err)
}

func (db *LocalDatabase) InsertSwipeFile(ctx context.Context, file models.NewSwipeFile) (*models.SwipeFile, error) {
	id := uuid.New().String()
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO swipe_files (id, user_id, title, description, url, content, image_url, source, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, file.UserID, file.Title, nullable(file.Description), nullable(file.URL),
		nullable(file.Content), nullable(file.ImageURL), nullable(file.Source),
		encodeTags(file.Tags), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create swipe file: %w", err)
	}
	return db.getSwipeFile(ctx, file.UserID, id)
}

func (db *LocalDatabase) UpdateSwipeFile(ctx context.Context, userID, id string, patch models.SwipeFilePatch) (*models.SwipeFile, error) {
	if err := db.update(ctx, "swipe_files", userID, id, patch.Columns()); err != nil {
		return nil, err
	}
	return db.getSwipeFile(ctx, userID, id)
}

func (db *LocalDatabase) DeleteSwipeFile(ctx context.Context, userID, id string) error {
	return db.delete(ctx, "swipe_files", userID, id)
}

// ================= Profiles =================

func (db *LocalDatabase) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := db.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, avatar_url, updated_at FROM profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		return nil, sqlNotFound(err)
	}
	return &p, nil
}

func (db *LocalDatabase) UpsertProfile(ctx context.Context, profile models.Profile) (bool, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE id = ?`, profile.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up profile: %w", err)
	}

	now := time.Now().UTC()
	if exists == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (id, email, full_name, avatar_url, updated_at) VALUES (?, ?, ?, ?, ?)`,
			profile.ID, profile.Email, profile.FullName, profile.AvatarURL, now)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE profiles SET email = ?, full_name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
			profile.Email, profile.FullName, profile.AvatarURL, now, profile.ID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to save profile: %w", err)
	}
	return exists == 0, tx.Commit()
}

// ================= helpers =================

// update 只更新属于 userID 的行；没有命中时返回 ErrNotFound
func (db *LocalDatabase) update(ctx context.Context, table, userID, id string, cols map[string]interface{}) error {
	set, args := sqliteSet(withUpdatedAt(cols))
	args = append(args, id, userID)
	result, err := db.db.ExecContext(ctx,
		`UPDATE `+table+` SET `+set+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *LocalDatabase) delete(ctx context.Context, table, userID, id string) error {
	result, err := db.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *LocalDatabase) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// HealthCheck 健康检查
func (db *LocalDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close 关闭数据库
func (db *LocalDatabase) Close() error {
	return db.db.Close()
}
