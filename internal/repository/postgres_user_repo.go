package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/userstore/internal/dbexec"
	"github.com/hitoshi/userstore/internal/model"
	"github.com/hitoshi/userstore/internal/paging"
)

// コンパイル時のインターフェース実装チェック
var _ UserRepository = (*PostgresUserRepo)(nil)

const userColumns = "id, email, name, is_deleted, deleted_at, created_at, updated_at"

const (
	sqlListUsers = `SELECT ` + userColumns + `
		 FROM users
		 WHERE ($1 OR NOT is_deleted)`

	sqlFindUserByID = `SELECT ` + userColumns + `
		 FROM users
		 WHERE id = $1 AND ($2 OR NOT is_deleted)`

	sqlInsertUser = `INSERT INTO users (email, name)
		 VALUES ($1, $2)
		 RETURNING id`

	// メールアドレスは更新対象外。変更は表示名のみ許可する。
	sqlUpdateUser = `UPDATE users
		 SET name = $2, updated_at = NOW()
		 WHERE id = $1 AND NOT is_deleted`

	sqlSoftDeleteUser = `UPDATE users
		 SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND NOT is_deleted`

	sqlFindUserByEmail = `SELECT id, is_deleted
		 FROM users
		 WHERE email = $1`

	sqlReactivateUser = `UPDATE users
		 SET is_deleted = FALSE, deleted_at = NULL, name = $2, updated_at = NOW()
		 WHERE id = $1`

	sqlCountSearchUsers = `SELECT COUNT(*)
		 FROM users
		 WHERE ($1 OR NOT is_deleted)
		   AND ($2::text IS NULL OR email ILIKE '%' || $2 || '%' OR name ILIKE '%' || $2 || '%')`

	sqlSearchUsersBase = `SELECT ` + userColumns + `
		 FROM users
		 WHERE ($1 OR NOT is_deleted)
		   AND ($2::text IS NULL OR email ILIKE '%' || $2 || '%' OR name ILIKE '%' || $2 || '%')`

	// バインドパラメータを含む複文バッチはlib/pqでは実行できないため、
	// 統計バッチはパラメータなしで構成する。
	sqlUserStatsBatch = `SELECT COUNT(*) FROM users WHERE NOT is_deleted;
		 SELECT COUNT(*) FROM users WHERE is_deleted`
)

// sortColumns は検索のソートに指定できるカラムの許可リスト。
// ORDER BY句はプレースホルダを使えないため、ここに無いカラム名は拒否する。
var sortColumns = map[string]string{
	"id":         "id",
	"email":      "email",
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
// queryTimeoutは各クエリの実行上限時間。
func NewPostgresUserRepo(db *sql.DB, queryTimeout time.Duration) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, queryTimeout: queryTimeout}
}

// scanUser は標準のカラム順序でユーザー1行を読み取る。
func scanUser(row dbexec.RowScanner) (model.User, error) {
	var u model.User
	var deletedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsDeleted, &deletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return u, nil
}

// List は全ユーザーを取得する。
func (r *PostgresUserRepo) List(ctx context.Context, includeDeleted bool) ([]model.User, error) {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	users, err := dbexec.Query(ctx, r.db, sqlListUsers, scanUser, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64, includeDeleted bool) (*model.User, error) {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	user, found, err := dbexec.QuerySingleOrDefault(ctx, r.db, sqlFindUserByID, scanUser, id, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// Insert はユーザーを新規作成し、採番されたIDを返す。
func (r *PostgresUserRepo) Insert(ctx context.Context, user *model.User) (int64, error) {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	id, err := dbexec.QuerySingle(ctx, r.db, sqlInsertUser, dbexec.ScanValue[int64](), user.Email, user.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.NewUserAlreadyExistsError(user.Email)
		}
		return 0, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return id, nil
}

// Update は論理削除されていないユーザーの表示名を更新し、影響行数を返す。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) (int64, error) {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	affected, err := dbexec.Execute(ctx, r.db, sqlUpdateUser, user.ID, user.Name)
	if err != nil {
		return 0, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return affected, nil
}

// SoftDelete は指定IDのユーザーを論理削除する。
// 対象が存在しない場合や削除済みの場合は何もせず成功を返す。
func (r *PostgresUserRepo) SoftDelete(ctx context.Context, id int64) error {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	if _, err := dbexec.Execute(ctx, r.db, sqlSoftDeleteUser, id); err != nil {
		return fmt.Errorf("ユーザーの論理削除に失敗しました: %w", err)
	}
	return nil
}

// Upsert はメールアドレスをキーにユーザーを作成または再有効化する。
//
// 同じメールのユーザーが存在しなければ新規作成し、論理削除済みであれば
// 再有効化して名前を更新する。有効ユーザーが既に存在する場合は
// model.NewUserAlreadyExistsErrorを返す。
//
// 確認と作成は別クエリのため同時実行では競合しうるが、有効メールの
// 部分ユニークインデックスが重複作成を防ぐ。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (int64, error) {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	type emailRow struct {
		id        int64
		isDeleted bool
	}
	existing, found, err := dbexec.QuerySingleOrDefault(ctx, r.db, sqlFindUserByEmail,
		func(row dbexec.RowScanner) (emailRow, error) {
			var e emailRow
			err := row.Scan(&e.id, &e.isDeleted)
			return e, err
		}, user.Email)
	if err != nil {
		return 0, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}

	if !found {
		id, err := dbexec.QuerySingle(ctx, r.db, sqlInsertUser, dbexec.ScanValue[int64](), user.Email, user.Name)
		if err != nil {
			// 確認後に別のリクエストが同じメールで作成した場合は
			// 部分ユニークインデックスの違反として現れる
			if isUniqueViolation(err) {
				return 0, model.NewUserAlreadyExistsError(user.Email)
			}
			return 0, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}
		return id, nil
	}

	if existing.isDeleted {
		if _, err := dbexec.Execute(ctx, r.db, sqlReactivateUser, existing.id, user.Name); err != nil {
			return 0, fmt.Errorf("ユーザーの再有効化に失敗しました: %w", err)
		}
		return existing.id, nil
	}

	return 0, model.NewUserAlreadyExistsError(user.Email)
}

// Search は検索条件に一致するユーザーをページングして返す。
//
// 件数取得とページ取得は同一接続上で順に実行する。2つのクエリは別
// スナップショットで実行されるため、並行する書き込みにより件数と
// ページ内容がずれる可能性はある。
func (r *PostgresUserRepo) Search(ctx context.Context, params SearchParams) (paging.PagedResult[model.User], error) {
	var empty paging.PagedResult[model.User]

	orderBy, err := orderByClause(params.SortColumn, params.SortDescending)
	if err != nil {
		return empty, err
	}

	page, pageSize := paging.Sanitize(params.Page, params.PageSize)
	term := searchTermArg(params.SearchTerm)

	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return empty, fmt.Errorf("データベース接続の取得に失敗しました: %w", err)
	}
	defer conn.Close()

	total, err := dbexec.QuerySingle(ctx, conn, sqlCountSearchUsers, dbexec.ScanValue[int64](),
		params.IncludeDeleted, term)
	if err != nil {
		return empty, fmt.Errorf("ユーザー件数の取得に失敗しました: %w", err)
	}

	query := sqlSearchUsersBase + "\n\t\t " + orderBy + "\n\t\t LIMIT $3 OFFSET $4"
	items, err := dbexec.Query(ctx, conn, query, scanUser,
		params.IncludeDeleted, term, pageSize, (page-1)*pageSize)
	if err != nil {
		return empty, fmt.Errorf("ユーザー検索の実行に失敗しました: %w", err)
	}

	return paging.PagedResult[model.User]{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: int(total),
		Items:      items,
	}, nil
}

// Stats は有効・削除済みユーザー数を1回のバッチで取得する。
func (r *PostgresUserRepo) Stats(ctx context.Context) (model.UserStats, error) {
	ctx, cancel := dbexec.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	multi, err := dbexec.QueryMultiple(ctx, r.db, sqlUserStatsBatch)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("ユーザー統計の取得に失敗しました: %w", err)
	}
	defer multi.Close()

	active, err := dbexec.ReadSingle(multi, dbexec.ScanValue[int64]())
	if err != nil {
		return model.UserStats{}, fmt.Errorf("有効ユーザー数の読み取りに失敗しました: %w", err)
	}
	deleted, err := dbexec.ReadSingle(multi, dbexec.ScanValue[int64]())
	if err != nil {
		return model.UserStats{}, fmt.Errorf("削除済みユーザー数の読み取りに失敗しました: %w", err)
	}

	return model.UserStats{ActiveCount: active, DeletedCount: deleted}, nil
}

// orderByClause はソート指定からORDER BY句を組み立てる。
// カラム名は許可リストで検証し、リスト外の指定はエラーにする。
func orderByClause(sortColumn string, descending bool) (string, error) {
	if sortColumn == "" {
		return "ORDER BY id", nil
	}
	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(sortColumn))]
	if !ok {
		return "", model.NewInvalidSortColumnError(sortColumn)
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	return "ORDER BY " + column + " " + direction, nil
}

// searchTermArg は検索語をバインドパラメータ用に整形する。
// 空白のみの場合はNULL（絞り込みなし）、それ以外はLIKEメタ文字を
// エスケープした値を返す。
func searchTermArg(term string) any {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	return likeEscaper.Replace(term)
}

// LIKEパターンとして解釈される文字をリテラル扱いにする
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// isUniqueViolation は一意制約違反（有効メールの部分ユニークインデックス）かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
