package util

import (
	"strconv"
)

// StrSliceToUInt64Slice 将字符串切片批量转换为 uint64 切片
func StrSliceToUInt64Slice(in []string) ([]uint64, error) {
	out := make([]uint64, 0, len(in))
	for _, s := range in {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// PtrString 用于将 string 转换为 *string
func PtrString(s string) *string {
	return &s
}

// PtrBool 用于将 bool 转换为 *bool
func PtrBool(b bool) *bool {
	return &b
}
