package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/macrolog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrAccountExists 当前安装已注册过账户
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials 邮箱或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CredentialsInput 注册与登录共用的凭据
type CredentialsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AccountService 管理安装实例唯一的登录账户
type AccountService struct {
	db *gorm.DB
}

// NewAccountService 构造 AccountService
func NewAccountService(gdb *gorm.DB) *AccountService {
	return &AccountService{db: gdb}
}

// Exists 判断是否已有账户
func (s *AccountService) Exists() (bool, error) {
	var count int64
	if err := s.db.Model(&db.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// SignUp 创建账户，已存在任意账户时返回 ErrAccountExists
func (s *AccountService) SignUp(input CredentialsInput) (*db.User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.Exists()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{Email: input.Email, Password: string(hashed)}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Delete 彻底删除账户（不保留软删除记录），用于注册中途失败时回滚
func (s *AccountService) Delete(id uint) error {
	if err := s.db.Unscoped().Delete(&db.User{}, id).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Authenticate 校验邮箱和密码
func (s *AccountService) Authenticate(email, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
