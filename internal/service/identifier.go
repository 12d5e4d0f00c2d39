package service

import "strings"

// ExtractStudentID 从扫码或手输的原始文本中提取学号
//
// 只保留数字字符（泰文数字 ๐-๙ 折算为 0-9），按位数解释：
//   - 14 位：条码载荷，取 [3:13] 的 10 位
//   - 10 位：学号本身
//   - 1~3 位：演示/测试用短学号，原样返回
//   - 其余位数（含 0 位）：无效
func ExtractStudentID(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '๐' && r <= '๙':
			b.WriteRune('0' + (r - '๐'))
		}
	}
	d := b.String()

	switch n := len(d); {
	case n == 14:
		return d[3:13], true
	case n == 10:
		return d, true
	case n >= 1 && n <= 3:
		return d, true
	default:
		return "", false
	}
}

// NormalizeSeat 去空白并转大写；空串表示未提供座位
func NormalizeSeat(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
