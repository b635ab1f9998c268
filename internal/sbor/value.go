package sbor

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/types"
)

// Kind 表示网关 programmatic JSON 中节点的类型标签
type Kind string

const (
	KindTuple              Kind = "Tuple"
	KindEnum               Kind = "Enum"
	KindMap                Kind = "Map"
	KindArray              Kind = "Array"
	KindDecimal            Kind = "Decimal"
	KindPreciseDecimal     Kind = "PreciseDecimal"
	KindReference          Kind = "Reference"
	KindOwn                Kind = "Own"
	KindString             Kind = "String"
	KindBool               Kind = "Bool"
	KindI8                 Kind = "I8"
	KindI32                Kind = "I32"
	KindI64                Kind = "I64"
	KindU8                 Kind = "U8"
	KindU32                Kind = "U32"
	KindU64                Kind = "U64"
	KindNonFungibleLocalId Kind = "NonFungibleLocalId"

	// KindAny 通配，仅用于 schema 声明，表示不校验节点类型
	KindAny Kind = ""
)

// Value 是自描述链上状态树的一个节点。
// 标量节点的取值统一存为字符串（网关对数字类标量本身就是字符串编码）。
type Value struct {
	Kind        Kind
	TypeName    string
	FieldName   string
	VariantID   int
	VariantName string
	Fields      []Value    // Tuple / Enum
	Entries     []MapEntry // Map
	Elements    []Value    // Array
	Scalar      string     // Decimal / String / 数字 / 地址 / 本地 id 等
}

// MapEntry 表示 Map 节点的一个键值对
type MapEntry struct {
	Key   Value `json:"key"`
	Value Value `json:"value"`
}

// rawValue 与网关 JSON 字段一一对应，Value/variant_id 形态不稳定，单独处理
type rawValue struct {
	Kind        Kind            `json:"kind"`
	TypeName    string          `json:"type_name"`
	FieldName   string          `json:"field_name"`
	VariantID   json.RawMessage `json:"variant_id"`
	VariantName string          `json:"variant_name"`
	Fields      []Value         `json:"fields"`
	Entries     []MapEntry      `json:"entries"`
	Elements    []Value         `json:"elements"`
	Value       json.RawMessage `json:"value"`
}

// UnmarshalJSON 解析网关的 programmatic JSON。
// 结构非法（如 kind 缺失）不在这里报错，统一交给 schema 匹配层定位具体字段。
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw rawValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sbor: invalid value node: %w", err)
	}

	v.Kind = raw.Kind
	v.TypeName = raw.TypeName
	v.FieldName = raw.FieldName
	v.VariantName = raw.VariantName
	v.Fields = raw.Fields
	v.Entries = raw.Entries
	v.Elements = raw.Elements

	// variant_id 在不同网关版本中既可能是数字也可能是字符串
	if len(raw.VariantID) > 0 {
		s := string(raw.VariantID)
		s = trimQuotes(s)
		if id, err := strconv.Atoi(s); err == nil {
			v.VariantID = id
		}
	}

	// 标量统一转成字符串：带引号去引号，bool/数字保留字面量
	if len(raw.Value) > 0 {
		v.Scalar = trimQuotes(string(raw.Value))
	}
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var out string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	return s
}

// IsScalar 判断节点是否为标量（无子节点）
func (v Value) IsScalar() bool {
	return len(v.Fields) == 0 && len(v.Entries) == 0 && len(v.Elements) == 0
}

// AsDecimal 将 Decimal / PreciseDecimal 标量解析为任意精度小数
func (v Value) AsDecimal() (decimal.Decimal, error) {
	if v.Kind != KindDecimal && v.Kind != KindPreciseDecimal {
		return decimal.Zero, fmt.Errorf("sbor: kind %q is not a decimal", v.Kind)
	}
	d, err := decimal.NewFromString(v.Scalar)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sbor: invalid decimal %q: %w", v.Scalar, err)
	}
	return d, nil
}

// AsAddress 将 Reference / Own 标量解析为实体地址
func (v Value) AsAddress() (types.Address, error) {
	if v.Kind != KindReference && v.Kind != KindOwn {
		return "", fmt.Errorf("sbor: kind %q is not an address", v.Kind)
	}
	return types.TryAddressFromString(v.Scalar)
}

func (v Value) AsString() (string, error) {
	if v.Kind != KindString && v.Kind != KindNonFungibleLocalId {
		return "", fmt.Errorf("sbor: kind %q is not a string", v.Kind)
	}
	return v.Scalar, nil
}

func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("sbor: kind %q is not a bool", v.Kind)
	}
	return v.Scalar == "true", nil
}

func (v Value) AsI32() (int32, error) {
	if v.Kind != KindI32 && v.Kind != KindI8 {
		return 0, fmt.Errorf("sbor: kind %q is not an i32", v.Kind)
	}
	n, err := strconv.ParseInt(v.Scalar, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("sbor: invalid i32 %q: %w", v.Scalar, err)
	}
	return int32(n), nil
}

func (v Value) AsU64() (uint64, error) {
	switch v.Kind {
	case KindU8, KindU32, KindU64, KindI64:
	default:
		return 0, fmt.Errorf("sbor: kind %q is not a u64", v.Kind)
	}
	n, err := strconv.ParseUint(v.Scalar, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sbor: invalid u64 %q: %w", v.Scalar, err)
	}
	return n, nil
}

// FieldByName 在 Tuple / Enum 的子节点中按 field_name 查找
func (v Value) FieldByName(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return Value{}, false
}
