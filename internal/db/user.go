package db

import "gorm.io/gorm"

// User 定义了安装实例唯一的登录账户，Password 为 bcrypt 哈希
type User struct {
	gorm.Model
	Email    string `gorm:"size:255;unique;not null"`
	Password string `gorm:"not null"`
}
