package utils

import (
	"strings"
	"testing"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("哈希失败: %v", err)
	}
	if hash == "admin123" {
		t.Error("哈希结果不应是明文")
	}
	if !VerifyPassword("admin123", hash) {
		t.Error("正确密码应通过校验")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Error("错误密码不应通过校验")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", passwordMaxLen+1)); err == nil {
		t.Error("超长密码应报错而不是被静默截断")
	}
}
