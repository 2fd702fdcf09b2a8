package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// Bootstrap はデータベースを作成し、スクリプトディレクトリ内のSQLを再生する。
//
// 手順:
//  1. databaseURLから対象データベース名を導出する。
//  2. マスター接続でデータベースの存在を確認し、なければ作成する。
//  3. scriptsDir内の*.sqlファイルを辞書順に読み込み、セミコロン区切りで
//     バッチに分割し、1つのトランザクション内ですべて実行する。
//
// いずれかのバッチが失敗した場合はトランザクション全体をロールバックし、
// エラーをそのまま返す。日常のスキーマ変更にはmigrateサブコマンドを使用し、
// Bootstrapは初期セットアップ用のワンショットユーティリティとして扱う。
func Bootstrap(ctx context.Context, masterURL, databaseURL, scriptsDir string, logger *slog.Logger) error {
	dbName, err := databaseName(databaseURL)
	if err != nil {
		return err
	}

	if err := createDatabaseIfAbsent(ctx, masterURL, dbName, logger); err != nil {
		return err
	}

	return runScripts(ctx, databaseURL, scriptsDir, logger)
}

// databaseName は接続URLからデータベース名を導出する。
func databaseName(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("database URL has no database name: %s", u.Redacted())
	}
	return name, nil
}

// createDatabaseIfAbsent はマスター接続で対象データベースの存在を確認し、なければ作成する。
// CREATE DATABASEはトランザクション内で実行できないため、直接実行する。
func createDatabaseIfAbsent(ctx context.Context, masterURL, dbName string, logger *slog.Logger) error {
	master, err := Open(masterURL)
	if err != nil {
		return fmt.Errorf("failed to open master database: %w", err)
	}
	defer master.Close()

	var exists int
	err = master.QueryRowContext(ctx,
		`SELECT 1 FROM pg_database WHERE datname = $1`, dbName,
	).Scan(&exists)

	switch {
	case err == nil:
		logger.Info("database already exists", slog.String("database", dbName))
		return nil
	case errors.Is(err, sql.ErrNoRows):
		// 作成が必要
	default:
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	// データベース名は識別子としてクォートする（プレースホルダは使用できない）
	if _, err := master.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", dbName, err)
	}

	logger.Info("database created", slog.String("database", dbName))
	return nil
}

// runScripts はスクリプトディレクトリ内の*.sqlを辞書順に1トランザクションで実行する。
func runScripts(ctx context.Context, databaseURL, scriptsDir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(scriptsDir)
	if err != nil {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if len(files) == 0 {
		logger.Info("no bootstrap scripts found", slog.String("dir", scriptsDir))
		return nil
	}

	db, err := Open(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open target database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range files {
		path := filepath.Join(scriptsDir, name)
		script, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read script %s: %w", name, err)
		}

		for _, batch := range SplitBatches(string(script)) {
			if _, err := tx.ExecContext(ctx, batch); err != nil {
				logScriptError(logger, name, err)
				return fmt.Errorf("failed to execute script %s: %w", name, err)
			}
			logger.Info("executed batch",
				slog.String("script", name),
				slog.Int("batch_bytes", len(batch)),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap transaction: %w", err)
	}

	logger.Info("all bootstrap scripts executed", slog.Int("scripts", len(files)))
	return nil
}

// SplitBatches はSQLスクリプトをセミコロン区切りのバッチに分割する。
// 空白のみのバッチは除外される。文字列リテラル内のセミコロンは考慮しない
// （ブートストラップスクリプトは単純なDDLを想定）。
func SplitBatches(script string) []string {
	var batches []string
	for _, batch := range strings.Split(script, ";") {
		if strings.TrimSpace(batch) == "" {
			continue
		}
		batches = append(batches, strings.TrimSpace(batch))
	}
	return batches
}

// logScriptError はスクリプト実行エラーを構造化ログに出力する。
// PostgreSQLのエラーの場合はドライバが返す診断フィールドも記録する。
func logScriptError(logger *slog.Logger, script string, err error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		logger.Error("script execution failed",
			slog.String("script", script),
			slog.String("severity", string(pqErr.Severity)),
			slog.String("code", string(pqErr.Code)),
			slog.String("message", pqErr.Message),
			slog.String("position", pqErr.Position),
			slog.String("where", pqErr.Where),
		)
		return
	}
	logger.Error("script execution failed",
		slog.String("script", script),
		slog.String("error", err.Error()),
	)
}
