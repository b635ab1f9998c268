package types

import (
	"fmt"
	"strings"
)

// Address 表示账本上的 bech32m 实体地址（账户、资源、组件、验证人等）。
// 网关以字符串形式传输，这里只做结构校验，不做 checksum 解码。
type Address string

// 实体类型前缀（主网 HRP，测试网会带 _tdx 后缀，前缀判断用 HasPrefix 即可）
const (
	prefixAccount       = "account_"
	prefixResource      = "resource_"
	prefixComponent     = "component_"
	prefixValidator     = "validator_"
	prefixPool          = "pool_"
	prefixKeyValueStore = "internal_keyvaluestore_"
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func (a Address) String() string {
	return string(a)
}

func (a Address) IsAccount() bool       { return strings.HasPrefix(string(a), prefixAccount) }
func (a Address) IsResource() bool      { return strings.HasPrefix(string(a), prefixResource) }
func (a Address) IsComponent() bool     { return strings.HasPrefix(string(a), prefixComponent) }
func (a Address) IsValidator() bool     { return strings.HasPrefix(string(a), prefixValidator) }
func (a Address) IsPool() bool          { return strings.HasPrefix(string(a), prefixPool) }
func (a Address) IsKeyValueStore() bool { return strings.HasPrefix(string(a), prefixKeyValueStore) }

// TryAddressFromString 解析并校验地址字符串，失败时返回 error（用于不信任输入路径）
func TryAddressFromString(s string) (Address, error) {
	idx := strings.LastIndexByte(s, '1')
	if idx <= 0 {
		return "", fmt.Errorf("invalid address %q: missing hrp separator", s)
	}
	data := s[idx+1:]
	if len(data) < 6 {
		return "", fmt.Errorf("invalid address %q: data part too short", s)
	}
	for _, c := range data {
		if !strings.ContainsRune(bech32Charset, c) {
			return "", fmt.Errorf("invalid address %q: char %q outside bech32 charset", s, c)
		}
	}
	return Address(s), nil
}

// AddressFromString 与 TryAddressFromString 相同，但失败时 panic（仅用于常量/配置初始化）
func AddressFromString(s string) Address {
	a, err := TryAddressFromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

func AddressesFromStrings(strs []string) ([]Address, error) {
	result := make([]Address, 0, len(strs))
	for _, s := range strs {
		a, err := TryAddressFromString(s)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// AddressStrings 转回字符串切片（网关请求体使用）
func AddressStrings(addrs []Address) []string {
	result := make([]string, 0, len(addrs))
	for _, a := range addrs {
		result = append(result, string(a))
	}
	return result
}
