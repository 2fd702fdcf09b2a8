// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/userstore/internal/model"
	"github.com/hitoshi/userstore/internal/repository"
	"github.com/hitoshi/userstore/internal/security"
)

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	repo      repository.UserRepository
	sanitizer security.InputSanitizerService
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(repo repository.UserRepository, sanitizer security.InputSanitizerService) *UserHandler {
	return &UserHandler{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// userRequest はユーザー作成・更新・アップサートリクエストのボディ。
type userRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// userIDResponse は作成・アップサート結果のレスポンス。
type userIDResponse struct {
	ID int64 `json:"id"`
}

// pagedUsersResponse はページング付きユーザー一覧のレスポンス。
type pagedUsersResponse struct {
	Page            int            `json:"page"`
	PageSize        int            `json:"page_size"`
	TotalCount      int            `json:"total_count"`
	TotalPages      int            `json:"total_pages"`
	HasPreviousPage bool           `json:"has_previous_page"`
	HasNextPage     bool           `json:"has_next_page"`
	Items           []userResponse `json:"items"`
}

// statsResponse はユーザー統計のレスポンス。
type statsResponse struct {
	ActiveCount  int64 `json:"active_count"`
	DeletedCount int64 `json:"deleted_count"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// List はユーザーの一覧取得または検索を処理する。
// GET /api/users
//
// クエリパラメータ（q、sort、desc、page、page_size）のいずれかが指定された
// 場合はページング付き検索、いずれも指定されない場合は全件一覧を返す。
// include_deletedは両方のモードで有効。
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	includeDeleted := query.Get("include_deleted") == "true"

	if !hasSearchParams(query.Get("q"), query.Get("sort"), query.Get("desc"),
		query.Get("page"), query.Get("page_size")) {
		users, err := h.repo.List(r.Context(), includeDeleted)
		if err != nil {
			handleRepositoryError(w, err)
			return
		}

		items := make([]userResponse, 0, len(users))
		for _, user := range users {
			items = append(items, toUserResponse(&user))
		}
		writeJSONResponse(w, http.StatusOK, items)
		return
	}

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	result, err := h.repo.Search(r.Context(), repository.SearchParams{
		SearchTerm:     query.Get("q"),
		SortColumn:     query.Get("sort"),
		SortDescending: query.Get("desc") == "true",
		Page:           page,
		PageSize:       pageSize,
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		handleRepositoryError(w, err)
		return
	}

	items := make([]userResponse, 0, len(result.Items))
	for _, user := range result.Items {
		items = append(items, toUserResponse(&user))
	}
	writeJSONResponse(w, http.StatusOK, pagedUsersResponse{
		Page:            result.Page,
		PageSize:        result.PageSize,
		TotalCount:      result.TotalCount,
		TotalPages:      result.TotalPages(),
		HasPreviousPage: result.HasPreviousPage(),
		HasNextPage:     result.HasNextPage(),
		Items:           items,
	})
}

// Get はユーザーの取得を処理する。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("IDは整数で指定してください"))
		return
	}

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	user, err := h.repo.FindByID(r.Context(), id, includeDeleted)
	if err != nil {
		handleRepositoryError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user))
}

// Create はユーザーの新規作成を処理する。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.decodeUserRequest(w, r)
	if !ok {
		return
	}

	id, err := h.repo.Insert(r.Context(), user)
	if err != nil {
		handleRepositoryError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, userIDResponse{ID: id})
}

// Update はユーザーの更新を処理する。
// PUT /api/users/{id}
//
// 更新できるのは表示名のみ。メールアドレスの変更は受け付けない
// （リポジトリ層でバインドされない）。
// 論理削除済みユーザーは更新対象にならず、404を返す。
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("IDは整数で指定してください"))
		return
	}

	user, ok := h.decodeUserRequest(w, r)
	if !ok {
		return
	}
	user.ID = id

	affected, err := h.repo.Update(r.Context(), user)
	if err != nil {
		handleRepositoryError(w, err)
		return
	}
	if affected == 0 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError(id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete はユーザーの論理削除を処理する。
// DELETE /api/users/{id}
//
// 削除は冪等で、対象が存在しなくても204を返す。
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := userIDFromPath(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("IDは整数で指定してください"))
		return
	}

	if err := h.repo.SoftDelete(r.Context(), id); err != nil {
		handleRepositoryError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Upsert はメールアドレスをキーにしたユーザーの作成・再有効化を処理する。
// POST /api/users/upsert
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	user, ok := h.decodeUserRequest(w, r)
	if !ok {
		return
	}

	id, err := h.repo.Upsert(r.Context(), user)
	if err != nil {
		handleRepositoryError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, userIDResponse{ID: id})
}

// Stats はユーザー統計の取得を処理する。
// GET /api/users/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		handleRepositoryError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, statsResponse{
		ActiveCount:  stats.ActiveCount,
		DeletedCount: stats.DeletedCount,
	})
}

// decodeUserRequest はリクエストボディを解析・サニタイズし、検証する。
// 失敗時はエラーレスポンスを書き込み、falseを返す。
func (h *UserHandler) decodeUserRequest(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return nil, false
	}

	email := h.sanitizer.Sanitize(req.Email)
	name := h.sanitizer.Sanitize(req.Name)

	if email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("emailは必須です"))
		return nil, false
	}
	if name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("nameは必須です"))
		return nil, false
	}

	return &model.User{Email: email, Name: name}, true
}

// --- ヘルパー関数 ---

// hasSearchParams は検索モードのクエリパラメータが指定されているかを返す。
func hasSearchParams(params ...string) bool {
	for _, p := range params {
		if p != "" {
			return true
		}
	}
	return false
}

// userIDFromPath はURLパスパラメータからユーザーIDを取得する。
func userIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsDeleted: user.IsDeleted,
		DeletedAt: user.DeletedAt,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleRepositoryError はリポジトリ層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleRepositoryError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserAlreadyExists:
		return http.StatusConflict
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidSortColumn, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
