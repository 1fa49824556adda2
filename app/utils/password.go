package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt 超过 72 字节的输入会被静默截断
const passwordMaxLen = 72

const passwordCost = bcrypt.DefaultCost

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	if len(password) > passwordMaxLen {
		return "", fmt.Errorf("密码长度不能超过 %d 字节", passwordMaxLen)
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword 验证密码是否匹配哈希值
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
