package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Status 账号状态，使用位运算支持多状态叠加
type Status int64

// 账号状态位
const (
	StatusNone Status = 0 // 正常

	StatusUnverified Status = 1 << iota // 邮箱未验证（新注册账号默认带此位）
	StatusDisabled                      // 管理员禁用
	StatusDeleted                       // 已删除
)

// statusNames 状态位名称，用于日志和 JSON
var statusNames = []struct {
	flag Status
	name string
}{
	{StatusUnverified, "unverified"},
	{StatusDisabled, "disabled"},
	{StatusDeleted, "deleted"},
}

// Set 设置指定的状态位
func (s *Status) Set(flag Status) {
	*s |= flag
}

// Unset 取消指定的状态位
func (s *Status) Unset(flag Status) {
	*s &^= flag
}

// Contain 检查是否包含指定的全部状态位
func (s Status) Contain(flag Status) bool {
	return s&flag == flag
}

// HasAny 检查是否包含任意一个指定的状态位
func (s Status) HasAny(flags ...Status) bool {
	for _, flag := range flags {
		if s&flag != 0 {
			return true
		}
	}
	return false
}

// String 返回 "unverified|disabled" 形式，无状态为 "none"
func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	var parts []string
	rest := s
	for _, sn := range statusNames {
		if s.Contain(sn.flag) {
			parts = append(parts, sn.name)
			rest &^= sn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, strconv.FormatInt(int64(rest), 10))
	}
	return strings.Join(parts, "|")
}

// Value 实现 driver.Valuer 接口
func (s Status) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan 实现 sql.Scanner 接口
func (s *Status) Scan(value any) error {
	if value == nil {
		*s = StatusNone
		return nil
	}

	switch v := value.(type) {
	case int64:
		*s = Status(v)
	case int:
		*s = Status(v)
	case []byte:
		num, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Status: %w", v, err)
		}
		*s = Status(num)
	case string:
		num, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Status: %w", v, err)
		}
		*s = Status(num)
	default:
		return fmt.Errorf("cannot scan type %T into Status", value)
	}
	return nil
}
