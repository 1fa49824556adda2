package utils

import (
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadTextFile 读取文本文件并返回 UTF-8 内容。
// 投递目录中的提示词文件可能带 BOM 或使用 UTF-16 编码（常见于 Windows 记事本），
// 这里统一转码后再使用。
func ReadTextFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	win16le := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	utf16bom := unicode.BOMOverride(win16le.NewDecoder())

	reader := transform.NewReader(f, utf16bom)
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
