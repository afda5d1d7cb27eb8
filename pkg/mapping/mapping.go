// Package mapping 把解析后的 JSON 字典映射到领域对象
//
// 字段通过 json 标签匹配键（大小写不敏感），输入为弱类型：
// JSON 数字可写入整型字段，RFC3339 字符串可写入 time.Time，"30s" 可写入 time.Duration。
//
// 对象可以实现 BeforeMapper / AfterMapper，在映射前后执行自定义逻辑。
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// 错误定义
var (
	// ErrNotPointer 目标不是非 nil 的结构体指针
	ErrNotPointer = errors.New("mapping target must be a non-nil pointer to struct")

	// ErrUnexpectedBody 响应体既不是对象也不是对象数组
	ErrUnexpectedBody = errors.New("body must be an object or an array of objects")

	// ErrTypeMismatch 复制属性时源和目标类型不同
	ErrTypeMismatch = errors.New("source and destination types differ")

	// ErrNilResponse 响应为 nil
	ErrNilResponse = errors.New("nil response")
)

// BeforeMapper 映射前回调
type BeforeMapper interface {
	BeforeMapping()
}

// AfterMapper 映射后回调
type AfterMapper interface {
	AfterMapping()
}

// ============================================================================
//                              单对象映射
// ============================================================================

// MapFromDictionary 把 dict 映射到 obj
//
// obj 必须是结构体指针。dict 中不存在的键保持原值，未知键被忽略。
// 实现了 BeforeMapper / AfterMapper 时依次调用；映射失败不调用 AfterMapping。
func MapFromDictionary(obj interface{}, dict map[string]interface{}) error {
	if err := checkTarget(obj); err != nil {
		return err
	}

	if b, ok := obj.(BeforeMapper); ok {
		b.BeforeMapping()
	}

	dec, err := newDecoder(obj)
	if err != nil {
		return err
	}
	if err := dec.Decode(dict); err != nil {
		return fmt.Errorf("map %T: %w", obj, err)
	}

	if a, ok := obj.(AfterMapper); ok {
		a.AfterMapping()
	}
	return nil
}

// FromDictionary 创建 T 并从 dict 映射
func FromDictionary[T any](dict map[string]interface{}) (*T, error) {
	obj := new(T)
	if err := MapFromDictionary(obj, dict); err != nil {
		return nil, err
	}
	return obj, nil
}

// FromJSON 解析 JSON 对象并映射为 T
func FromJSON[T any](data []byte) (*T, error) {
	var dict map[string]interface{}
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return FromDictionary[T](dict)
}

// ============================================================================
//                              批量映射
// ============================================================================

// ArrayFromDictionaries 逐个映射，任一失败即返回错误
func ArrayFromDictionaries[T any](dicts []map[string]interface{}) ([]*T, error) {
	result := make([]*T, 0, len(dicts))
	for i, d := range dicts {
		obj, err := FromDictionary[T](d)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		result = append(result, obj)
	}
	return result, nil
}

// FromResponse 把响应体映射为 T
//
// 对象响应体得到一个元素，数组响应体每个对象得到一个元素。
func FromResponse[T any](resp Response) ([]*T, error) {
	if resp == nil {
		return nil, ErrNilResponse
	}
	body, err := resp.ParsedBody()
	if err != nil {
		return nil, err
	}

	switch v := body.(type) {
	case map[string]interface{}:
		obj, err := FromDictionary[T](v)
		if err != nil {
			return nil, err
		}
		return []*T{obj}, nil
	case []interface{}:
		dicts := make([]map[string]interface{}, 0, len(v))
		for i, elem := range v {
			d, ok := elem.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("element %d is %T: %w", i, elem, ErrUnexpectedBody)
			}
			dicts = append(dicts, d)
		}
		return ArrayFromDictionaries[T](dicts)
	default:
		return nil, fmt.Errorf("%T: %w", body, ErrUnexpectedBody)
	}
}

// ============================================================================
//                              复制与导出
// ============================================================================

// CopyProperties 把 src 的导出字段复制到 dst
//
// dst 和 src 必须是同一结构体类型的指针。复制是浅拷贝，切片和 map 与 src 共享。
func CopyProperties(dst, src interface{}) error {
	if err := checkTarget(dst); err != nil {
		return err
	}
	sv := reflect.ValueOf(src)
	if sv.Kind() != reflect.Ptr || sv.IsNil() {
		return ErrNotPointer
	}
	dv := reflect.ValueOf(dst).Elem()
	sv = sv.Elem()
	if dv.Type() != sv.Type() {
		return fmt.Errorf("%s <- %s: %w", dv.Type(), sv.Type(), ErrTypeMismatch)
	}

	for i := 0; i < dv.NumField(); i++ {
		if f := dv.Field(i); f.CanSet() {
			f.Set(sv.Field(i))
		}
	}
	return nil
}

// Clone 返回 src 的浅拷贝
func Clone[T any](src *T) (*T, error) {
	if src == nil {
		return nil, ErrNotPointer
	}
	dst := new(T)
	if err := CopyProperties(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// ToDictionary 把对象导出为以 json 标签为键的字典
func ToDictionary(obj interface{}) (map[string]interface{}, error) {
	if err := checkTarget(obj); err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(obj); err != nil {
		return nil, fmt.Errorf("export %T: %w", obj, err)
	}
	return out, nil
}

// ============================================================================
//                              内部
// ============================================================================

func checkTarget(obj interface{}) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}
	return nil
}

func newDecoder(result interface{}) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           result,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
}
