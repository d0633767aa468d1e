package utils

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UUID 生成UUID
func UUID() string {
	return uuid.New().String()
}

// UUIDWithoutDash 生成不带横线的UUID
func UUIDWithoutDash() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// HashPassword 生成密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Contains 检查切片是否包含元素
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Unique 切片去重，保持首次出现顺序
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{})
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// Diff 计算 a 中不在 b 里的元素
func Diff[T comparable](a, b []T) []T {
	inB := make(map[T]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	result := make([]T, 0)
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			result = append(result, v)
		}
	}
	return result
}

// Ptr 取值的指针
func Ptr[T any](v T) *T {
	return &v
}

// Val 安全取指针的值
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
