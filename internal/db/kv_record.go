package db

import "gorm.io/gorm"

// KVRecord 存储应用状态的键值对，值为 JSON 文本。
// 档案、每日日志、饮水、收藏等都以固定 key 存放在这里。
type KVRecord struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (KVRecord) TableName() string {
	return "kv_records"
}
