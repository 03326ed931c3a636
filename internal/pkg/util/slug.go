package util

import (
	"strings"
)

// Slugify 将标题归一化为 URL 安全的小写连字符串
// 仅保留 ASCII 字母数字，其余字符折叠为单个连字符；全部被过滤时返回空串
func Slugify(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(title))
	pendingHyphen := false

	for _, r := range title {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}

	return b.String()
}
