package sbor

import (
	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/types"
)

// FieldSchema 声明 Tuple / Enum 中一个期望字段：名称、节点类型、可选性。
// Kind 为 KindAny 时不校验类型；Nested 非空时递归匹配子结构。
type FieldSchema struct {
	Name     string
	Kind     Kind
	Optional bool
	Nested   *Schema
}

// Schema 是一棵声明式结构描述，作为值传入 Parse 使用；
// 新协议接入时只需声明 schema，不需要新的解析代码。
type Schema struct {
	TypeName string // 非空时校验节点的 type_name
	Fields   []FieldSchema
}

// Record 是 schema 匹配成功后的结果：字段名 → 节点。
// 缺失的可选字段不出现在 Record 中。
type Record map[string]Value

// Parse 将状态树节点按 schema 匹配为 Record。
// 约定：
//   - 节点中多出的未知字段直接忽略（兼容链上结构升级）；
//   - 声明为 Optional 的字段缺失时跳过，否则报 MismatchError；
//   - 任何不匹配都返回结构化错误，绝不 panic。
func Parse(s *Schema, v Value) (Record, error) {
	return parseAt(s, v, rootPath(v))
}

func rootPath(v Value) string {
	if v.TypeName != "" {
		return v.TypeName
	}
	return "value"
}

func parseAt(s *Schema, v Value, path string) (Record, error) {
	if v.Kind != KindTuple && v.Kind != KindEnum {
		return nil, mismatch(path, KindTuple, v.Kind, "container expected")
	}
	if s.TypeName != "" && v.TypeName != "" && s.TypeName != v.TypeName {
		return nil, mismatch(path, KindTuple, v.Kind, "type_name "+v.TypeName+" != "+s.TypeName)
	}

	record := make(Record, len(s.Fields))
	for _, fs := range s.Fields {
		fieldPath := path + "." + fs.Name

		field, ok := v.FieldByName(fs.Name)
		if !ok {
			if fs.Optional {
				continue
			}
			return nil, mismatch(fieldPath, fs.Kind, KindAny, "field missing")
		}

		if fs.Kind != KindAny && field.Kind != fs.Kind {
			return nil, mismatch(fieldPath, fs.Kind, field.Kind, "")
		}

		if fs.Nested != nil {
			// 只校验子结构合法性，Record 中仍保留原始节点
			if _, err := parseAt(fs.Nested, field, fieldPath); err != nil {
				return nil, err
			}
		}

		record[fs.Name] = field
	}
	return record, nil
}

// ---- Record 的类型化取值 ----

func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

func (r Record) Decimal(name string) (decimal.Decimal, error) {
	v, ok := r[name]
	if !ok {
		return decimal.Zero, mismatch(name, KindDecimal, KindAny, "field missing")
	}
	d, err := v.AsDecimal()
	if err != nil {
		return decimal.Zero, mismatch(name, KindDecimal, v.Kind, err.Error())
	}
	return d, nil
}

func (r Record) Address(name string) (types.Address, error) {
	v, ok := r[name]
	if !ok {
		return "", mismatch(name, KindReference, KindAny, "field missing")
	}
	a, err := v.AsAddress()
	if err != nil {
		return "", mismatch(name, KindReference, v.Kind, err.Error())
	}
	return a, nil
}

func (r Record) I32(name string) (int32, error) {
	v, ok := r[name]
	if !ok {
		return 0, mismatch(name, KindI32, KindAny, "field missing")
	}
	n, err := v.AsI32()
	if err != nil {
		return 0, mismatch(name, KindI32, v.Kind, err.Error())
	}
	return n, nil
}

func (r Record) U64(name string) (uint64, error) {
	v, ok := r[name]
	if !ok {
		return 0, mismatch(name, KindU64, KindAny, "field missing")
	}
	n, err := v.AsU64()
	if err != nil {
		return 0, mismatch(name, KindU64, v.Kind, err.Error())
	}
	return n, nil
}

// MapEntries 返回 Map 字段的键值对列表
func (r Record) MapEntries(name string) ([]MapEntry, error) {
	v, ok := r[name]
	if !ok {
		return nil, mismatch(name, KindMap, KindAny, "field missing")
	}
	if v.Kind != KindMap {
		return nil, mismatch(name, KindMap, v.Kind, "")
	}
	return v.Entries, nil
}

// DecimalMapByAddress 将 Map<Reference/Own, Decimal> 字段展开成 地址 → 小数。
// 借贷 CDP 的抵押/负债表、池子兑换率表都是这一形态。
func (r Record) DecimalMapByAddress(name string) (map[types.Address]decimal.Decimal, error) {
	entries, err := r.MapEntries(name)
	if err != nil {
		return nil, err
	}
	out := make(map[types.Address]decimal.Decimal, len(entries))
	for _, e := range entries {
		addr, err := e.Key.AsAddress()
		if err != nil {
			return nil, mismatch(name+"[key]", KindReference, e.Key.Kind, err.Error())
		}
		amount, err := e.Value.AsDecimal()
		if err != nil {
			return nil, mismatch(name+"["+string(addr)+"]", KindDecimal, e.Value.Kind, err.Error())
		}
		out[addr] = amount
	}
	return out, nil
}
