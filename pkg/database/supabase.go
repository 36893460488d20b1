package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"content-planner-backend/pkg/models"
)

// SupabaseDatabase Supabase数据库实现（PostgREST HTTP 接口）
type SupabaseDatabase struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

// PostgrestError PostgREST 返回的错误结构
type PostgrestError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *PostgrestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Database error: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("Database error: %s", e.Message)
}

// Unwrap maps rejected sessions to ErrUnauthorized.
func (e *PostgrestError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Code == "PGRST301" {
		return ErrUnauthorized
	}
	return nil
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(baseURL, anonKey, serviceKey string) *SupabaseDatabase {
	// 确保URL格式正确
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}

	return &SupabaseDatabase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the HTTP client (used by tests).
func (db *SupabaseDatabase) SetHTTPClient(c *http.Client) {
	db.httpClient = c
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	data, _, err := db.makeRequestWithHeaders(ctx, method, endpoint, body, nil)
	return data, err
}

// makeRequestWithHeaders 发送HTTP请求到Supabase（支持自定义头）
func (db *SupabaseDatabase) makeRequestWithHeaders(ctx context.Context, method, endpoint string, body interface{}, customHeaders map[string]string) ([]byte, http.Header, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, db.baseURL+"/rest/v1"+endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置默认请求头
	req.Header.Set("apikey", db.apiKey())
	req.Header.Set("Authorization", "Bearer "+db.bearer(ctx))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	// 设置自定义请求头
	for key, value := range customHeaders {
		req.Header.Set(key, value)
	}

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		pgErr := &PostgrestError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, pgErr) != nil || pgErr.Message == "" {
			pgErr.Message = fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, resp.Header, pgErr
	}

	return respBody, resp.Header, nil
}

// apiKey prefers the anon key so row-level security stays in force.
func (db *SupabaseDatabase) apiKey() string {
	if db.anonKey != "" {
		return db.anonKey
	}
	return db.serviceKey
}

// bearer 使用调用者的访问令牌；没有时退回到服务密钥
func (db *SupabaseDatabase) bearer(ctx context.Context) string {
	if token := AccessTokenFrom(ctx); token != "" {
		return token
	}
	if db.serviceKey != "" {
		return db.serviceKey
	}
	return db.anonKey
}

// ownedRow builds the filter selecting one row owned by userID.
func ownedRow(table, userID, id string) string {
	return fmt.Sprintf("/%s?id=eq.%s&user_id=eq.%s", table, url.QueryEscape(id), url.QueryEscape(userID))
}

// count 使用 Prefer: count=exact 读取 Content-Range 中的总数
func (db *SupabaseDatabase) count(ctx context.Context, endpoint string) (int, error) {
	_, header, err := db.makeRequestWithHeaders(ctx, http.MethodGet, endpoint, nil, map[string]string{
		"Prefer": "count=exact",
		"Range":  "0-0",
	})
	if err != nil {
		return 0, err
	}
	return parseContentRange(header.Get("Content-Range"))
}

// parseContentRange 解析形如 "0-0/24" 或 "*/0" 的头
func parseContentRange(value string) (int, error) {
	idx := strings.LastIndex(value, "/")
	if idx < 0 || idx == len(value)-1 {
		return 0, fmt.Errorf("missing count in Content-Range %q", value)
	}
	total := value[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("store did not report an exact count")
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Range %q: %w", value, err)
	}
	return n, nil
}

// decodeOne 解码 return=representation 返回的单行数组
func decodeOne[T any](data []byte) (*T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func decodeMany[T any](data []byte) ([]T, error) {
	rows := []T{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rows, nil
}

// withUpdatedAt 为补丁添加 updated_at
func withUpdatedAt(cols map[string]interface{}) map[string]interface{} {
	cols["updated_at"] = time.Now().UTC()
	return cols
}

// ================= Users =================

// CreateUser 用户由托管认证服务管理
func (db *SupabaseDatabase) CreateUser(ctx context.Context, user *models.User) error {
	return fmt.Errorf("users are managed by the hosted auth service: %w", errors.ErrUnsupported)
}

// GetUserByEmail 用户由托管认证服务管理
func (db *SupabaseDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, fmt.Errorf("users are managed by the hosted auth service: %w", errors.ErrUnsupported)
}

// ================= Ideas =================

func (db *SupabaseDatabase) ListIdeas(ctx context.Context, userID string, opts ListOptions) ([]models.Idea, error) {
	order := "desc"
	if opts.OldestFirst {
		order = "asc"
	}
	endpoint := fmt.Sprintf("/ideas?user_id=eq.%s&select=*&order=created_at.%s", url.QueryEscape(userID), order)
	if opts.Limit > 0 {
		endpoint += "&limit=" + strconv.Itoa(opts.Limit)
	}
	data, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodeMany[models.Idea](data)
}

func (db *SupabaseDatabase) GetIdea(ctx context.Context, userID, id string) (*models.Idea, error) {
	data, err := db.makeRequest(ctx, http.MethodGet, ownedRow("ideas", userID, id)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Idea](data)
}

func (db *SupabaseDatabase) InsertIdea(ctx context.Context, idea models.NewIdea) (*models.Idea, error) {
	data, err := db.makeRequest(ctx, http.MethodPost, "/ideas", []models.NewIdea{idea})
	if err != nil {
		return nil, err
	}
	row, err := decodeOne[models.Idea](data)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("insert returned no row")
	}
	return row, err
}

func (db *SupabaseDatabase) UpdateIdea(ctx context.Context, userID, id string, patch models.IdeaPatch) (*models.Idea, error) {
	data, err := db.makeRequest(ctx, http.MethodPatch, ownedRow("ideas", userID, id), withUpdatedAt(patch.Columns()))
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Idea](data)
}

func (db *SupabaseDatabase) DeleteIdea(ctx context.Context, userID, id string) error {
	data, err := db.makeRequest(ctx, http.MethodDelete, ownedRow("ideas", userID, id), nil)
	if err != nil {
		return err
	}
	_, err = decodeOne[models.Idea](data)
	return err
}

func (db *SupabaseDatabase) CountIdeas(ctx context.Context, userID string) (int, error) {
	return db.count(ctx, "/ideas?user_id=eq."+url.QueryEscape(userID)+"&select=id")
}

// ================= Content items =================

func (db *SupabaseDatabase) ListContentItems(ctx context.Context, userID string, filter ContentFilter) ([]models.ContentItem, error) {
	endpoint := "/content_items?user_id=eq." + url.QueryEscape(userID) + "&select=*&order=created_at.desc"
	if filter.IdeaID != "" {
		endpoint += "&idea_id=eq." + url.QueryEscape(filter.IdeaID)
	}
	if !filter.IncludeArchived {
		endpoint += "&archived=is.false"
	}
	data, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodeMany[models.ContentItem](data)
}

func (db *SupabaseDatabase) InsertContentItem(ctx context.Context, item models.NewContentItem) (*models.ContentItem, error) {
	data, err := db.makeRequest(ctx, http.MethodPost, "/content_items", []models.NewContentItem{item})
	if err != nil {
		return nil, err
	}
	row, err := decodeOne[models.ContentItem](data)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("insert returned no row")
	}
	return row, err
}

func (db *SupabaseDatabase) UpdateContentItem(ctx context.Context, userID, id string, patch models.ContentItemPatch) (*models.ContentItem, error) {
	data, err := db.makeRequest(ctx, http.MethodPatch, ownedRow("content_items", userID, id), withUpdatedAt(patch.Columns()))
	if err != nil {
		return nil, err
	}
	return decodeOne[models.ContentItem](data)
}

func (db *SupabaseDatabase) DeleteContentItem(ctx context.Context, userID, id string) error {
	data, err := db.makeRequest(ctx, http.MethodDelete, ownedRow("content_items", userID, id), nil)
	if err != nil {
		return err
	}
	_, err = decodeOne[models.ContentItem](data)
	return err
}

func (db *SupabaseDatabase) CountContentItems(ctx context.Context, userID string) (int, error) {
	return db.count(ctx, "/content_items?user_id=eq."+url.QueryEscape(userID)+"&select=id")
}

func (db *SupabaseDatabase) CountScheduledBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	endpoint := fmt.Sprintf("/content_items?user_id=eq.%s&select=id&archived=is.false&scheduled_date=gte.%s&scheduled_date=lt.%s",
		url.QueryEscape(userID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)
	return db.count(ctx, endpoint)
}

// ================= Swipe files =================

func (db *SupabaseDatabase) ListSwipeFiles(ctx context.Context, userID string, includeArchived bool) ([]models.SwipeFile, error) {
	endpoint := "/swipe_files?user_id=eq." + url.QueryEscape(userID) + "&select=*&order=created_at.desc"
	if !includeArchived {
		endpoint += "&archived=is.false"
	}
	data, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodeMany[models.SwipeFile](data)
}

func (db *SupabaseDatabase) InsertSwipeFile(ctx context.Context, file models.NewSwipeFile) (*models.SwipeFile, error) {
	data, err := db.makeRequest(ctx, http.MethodPost, "/swipe_files", []models.NewSwipeFile{file})
	if err != nil {
		return nil, err
	}
	row, err := decodeOne[models.SwipeFile](data)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("insert returned no row")
	}
	return row, err
}

func (db *SupabaseDatabase) UpdateSwipeFile(ctx context.Context, userID, id string, patch models.SwipeFilePatch) (*models.SwipeFile, error) {
	data, err := db.makeRequest(ctx, http.MethodPatch, ownedRow("swipe_files", userID, id), withUpdatedAt(patch.Columns()))
	if err != nil {
		return nil, err
	}
	return decodeOne[models.SwipeFile](data)
}

func (db *SupabaseDatabase) DeleteSwipeFile(ctx context.Context, userID, id string) error {
	data, err := db.makeRequest(ctx, http.MethodDelete, ownedRow("swipe_files", userID, id), nil)
	if err != nil {
		return err
	}
	_, err = decodeOne[models.SwipeFile](data)
	return err
}

// ================= Profiles =================

func (db *SupabaseDatabase) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	data, err := db.makeRequest(ctx, http.MethodGet, "/profiles?id=eq."+url.QueryEscape(userID)+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[models.Profile](data)
}

// UpsertProfile 先检查是否存在，再插入或更新
func (db *SupabaseDatabase) UpsertProfile(ctx context.Context, profile models.Profile) (bool, error) {
	_, err := db.GetProfile(ctx, profile.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		_, err = db.makeRequest(ctx, http.MethodPost, "/profiles", map[string]interface{}{
			"id":         profile.ID,
			"email":      profile.Email,
			"full_name":  profile.FullName,
			"avatar_url": profile.AvatarURL,
		})
		return err == nil, err
	case err != nil:
		return false, err
	}

	_, err = db.makeRequest(ctx, http.MethodPatch, "/profiles?id=eq."+url.QueryEscape(profile.ID), withUpdatedAt(map[string]interface{}{
		"email":      profile.Email,
		"full_name":  profile.FullName,
		"avatar_url": profile.AvatarURL,
	}))
	return false, err
}

// HealthCheck 检查 PostgREST 是否可达
func (db *SupabaseDatabase) HealthCheck(ctx context.Context) error {
	_, err := db.makeRequest(ctx, http.MethodGet, "/ideas?select=id&limit=1", nil)
	if errors.Is(err, ErrUnauthorized) {
		// 匿名请求被 RLS 拒绝也说明服务可达
		return nil
	}
	return err
}

// Close Supabase 使用无状态 HTTP 客户端
func (db *SupabaseDatabase) Close() error {
	db.httpClient.CloseIdleConnections()
	return nil
}
