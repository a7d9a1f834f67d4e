// Package store 提供应用状态的键值仓库。业务层只通过 Load/Save/Delete 读写，
// 并在读取边界上做结构校验，损坏的数据会被丢弃而不是部分解析。
package store

import (
	"context"
	"errors"
)

// ErrNotFound 表示 key 不存在
var ErrNotFound = errors.New("store: key not found")

// 固定的状态 key
const (
	KeyProfile       = "profile"
	KeyDailyLogs     = "daily_logs"
	KeyWaterCount    = "water_count"
	KeyWaterDate     = "water_date"
	KeyFavorites     = "favorites"
	KeyCustomRecipes = "custom_recipes"
	KeyMealPlans     = "meal_plans"
	KeyTheme         = "theme"
)

// Store 是键值仓库接口
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
