package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/macrolog/internal/logging"
	"go.uber.org/zap"
)

// Status 描述一次类型化读取的结果
type Status int

const (
	// Absent 表示 key 不存在
	Absent Status = iota
	// Found 表示成功解码并通过校验
	Found
	// Corrupt 表示记录无法解码或未通过校验，已被删除
	Corrupt
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Corrupt:
		return "corrupt"
	default:
		return "absent"
	}
}

// LoadJSON 读取 key 并解码为 T。validate 可为 nil。
// 记录损坏时删除该记录并返回 Corrupt 与零值；只有后端故障才返回 error。
func LoadJSON[T any](ctx context.Context, s Store, key string, validate func(T) error) (T, Status, error) {
	var zero T

	raw, err := s.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, Absent, nil
		}
		return zero, Absent, fmt.Errorf("load %s: %w", key, err)
	}

	value, decodeErr := decodeStrict[T](raw)
	if decodeErr == nil && validate != nil {
		decodeErr = validate(value)
	}
	if decodeErr != nil {
		logging.Logger.Warn("store_record_discarded",
			zap.String("key", key),
			zap.Error(decodeErr),
		)
		if err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return zero, Corrupt, fmt.Errorf("discard %s: %w", key, err)
		}
		return zero, Corrupt, nil
	}

	return value, Found, nil
}

// SaveJSON 编码 v 并写入 key
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func decodeStrict[T any](raw []byte) (T, error) {
	var value T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return value, errors.New("empty record")
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&value); err != nil {
		return value, err
	}
	if decoder.More() {
		return value, errors.New("trailing data after record")
	}
	return value, nil
}
