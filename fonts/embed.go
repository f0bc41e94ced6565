package fonts

import (
	"fmt"
	"os"
	"strings"

	tdfont "github.com/tdewolff/font"
	"golang.org/x/image/font/gofont/goregular"
)

// FallbackName 是内置回退字体的 embed 路径。
const FallbackName = "embed:goregular"

var builtin = map[string][]byte{
	"goregular": goregular.TTF,
}

// Load 返回字体的 SFNT 字节数据。path 可写为 "embed:goregular" 使用内置字体，
// 否则按文件路径读取；WOFF/WOFF2 会被转换为 SFNT。
func Load(path string) ([]byte, error) {
	if name, ok := strings.CutPrefix(path, "embed:"); ok {
		data, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置字体 %s", path)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	if isWOFF(path, data) {
		sfnt, err := tdfont.ToSFNT(data)
		if err != nil {
			return nil, fmt.Errorf("转换 WOFF 字体 %s 失败: %w", path, err)
		}
		return sfnt, nil
	}
	return data, nil
}

// isWOFF 通过扩展名或魔数 "wOFF"/"wOF2" 判断 WOFF 字体。
func isWOFF(path string, data []byte) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".woff") || strings.HasSuffix(lower, ".woff2") {
		return true
	}
	if len(data) >= 4 && data[0] == 'w' && data[1] == 'O' && data[2] == 'F' && (data[3] == 'F' || data[3] == '2') {
		return true
	}
	return false
}
