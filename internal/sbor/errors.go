package sbor

import "fmt"

// MismatchError 表示状态树与 schema 不匹配，携带出错字段的完整路径便于定位。
// 解析层永远返回该错误而不是 panic。
type MismatchError struct {
	Path string // 形如 "cdp.collaterals[resource_rdx1...]"
	Want Kind
	Got  Kind
	Hint string // 附加信息（缺字段、类型转换失败原因等）
}

func (e *MismatchError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("sbor: schema mismatch at %s: want %s, got %s (%s)", e.Path, kindName(e.Want), kindName(e.Got), e.Hint)
	}
	return fmt.Sprintf("sbor: schema mismatch at %s: want %s, got %s", e.Path, kindName(e.Want), kindName(e.Got))
}

func kindName(k Kind) string {
	if k == KindAny {
		return "Any"
	}
	return string(k)
}

func mismatch(path string, want, got Kind, hint string) *MismatchError {
	return &MismatchError{Path: path, Want: want, Got: got, Hint: hint}
}
