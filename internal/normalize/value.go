package normalize

import (
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

// Type tags the variant held by a Value.
type Type int

const (
	TypeNull Type = iota
	TypeBool
	TypeNumber
	TypeString
	TypeArray
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a parsed JSON document. Only the field matching Type is set.
type Value struct {
	Type    Type
	Bool    bool
	Number  float64
	Str     string
	Items   []Value
	Members []Member
}

// Member is one key of an object, kept in enumeration order.
type Member struct {
	Key   string
	Value Value
}

// Parse decodes body into a Value. It reports false when body is not valid JSON.
func Parse(body string) (Value, bool) {
	if !gjson.Valid(body) {
		return Value{}, false
	}
	return fromResult(gjson.Parse(body)), true
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Value{Type: TypeNull}
	case gjson.False:
		return Value{Type: TypeBool, Bool: false}
	case gjson.True:
		return Value{Type: TypeBool, Bool: true}
	case gjson.Number:
		return Value{Type: TypeNumber, Number: r.Num}
	case gjson.String:
		return Value{Type: TypeString, Str: r.Str}
	}

	if r.IsArray() {
		items := make([]Value, 0)
		r.ForEach(func(_, v gjson.Result) bool {
			items = append(items, fromResult(v))
			return true
		})
		return Value{Type: TypeArray, Items: items}
	}

	members := make([]Member, 0)
	index := make(map[string]int)
	r.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if i, ok := index[key]; ok {
			// a repeated key keeps its first position and takes the last value
			members[i].Value = fromResult(v)
			return true
		}
		index[key] = len(members)
		members = append(members, Member{Key: key, Value: fromResult(v)})
		return true
	})
	orderMembers(members)
	return Value{Type: TypeObject, Members: members}
}

// orderMembers puts array-index keys first in ascending numeric order and
// leaves the remaining keys in document order.
func orderMembers(members []Member) {
	sort.SliceStable(members, func(i, j int) bool {
		ni, iok := arrayIndex(members[i].Key)
		nj, jok := arrayIndex(members[j].Key)
		switch {
		case iok && jok:
			return ni < nj
		case iok:
			return true
		default:
			return false
		}
	})
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return n, true
}

// fields returns the keyed entries of an object, or of an array keyed by index.
// Scalars have none.
func (v Value) fields() []Member {
	switch v.Type {
	case TypeObject:
		return v.Members
	case TypeArray:
		out := make([]Member, len(v.Items))
		for i, item := range v.Items {
			out[i] = Member{Key: strconv.Itoa(i), Value: item}
		}
		return out
	default:
		return nil
	}
}

// Get returns the value stored under key in an object.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.fields() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Keys lists the field names of v in enumeration order.
func (v Value) Keys() []string {
	fields := v.fields()
	keys := make([]string, len(fields))
	for i, m := range fields {
		keys[i] = m.Key
	}
	return keys
}
