package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/macrolog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore 基于 gorm 的 kv_records 表实现 Store
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore 构造 SQLStore
func NewSQLStore(gdb *gorm.DB) *SQLStore {
	return &SQLStore{db: gdb}
}

// Load 读取 key 对应的值
func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var record db.KVRecord
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load kv record: %w", err)
	}
	return []byte(record.Value), nil
}

// Save 以 upsert 方式写入
func (s *SQLStore) Save(ctx context.Context, key string, value []byte) error {
	record := db.KVRecord{Key: key, Value: string(value)}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("save kv record: %w", err)
	}
	return nil
}

// Delete 物理删除 key，使唯一索引可以重新使用
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Unscoped().Where("key = ?", key).Delete(&db.KVRecord{}).Error; err != nil {
		return fmt.Errorf("delete kv record: %w", err)
	}
	return nil
}
