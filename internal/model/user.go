// Package model はドメインモデルを定義する。
package model

import "time"

// User は管理対象のユーザーを表す。
// IDはデータベースが採番し、作成後は不変。
// 論理削除されたユーザーは物理削除されず、IsDeletedフラグとDeletedAtで表現される。
// DeletedAtはIsDeletedがtrueの場合にのみ非nilとなる。
type User struct {
	ID        int64
	Email     string
	Name      string
	IsDeleted bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStats はユーザー数の集計結果を表す。
type UserStats struct {
	ActiveCount  int64
	DeletedCount int64
}
