package idgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidID 无法解析的 ID
var ErrInvalidID = errors.New("invalid id")

// ID 对外输出的用户 ID
// JSON 中以字符串表示，避免 JavaScript 大整数精度丢失。
type ID int64

// ParseID 从十进制字符串解析 ID，只接受正数
func ParseID(s string) (ID, error) {
	val, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return checkID(val)
}

func checkID(val int64) (ID, error) {
	if val <= 0 {
		return 0, fmt.Errorf("%w: must be positive, got %d", ErrInvalidID, val)
	}
	return ID(val), nil
}

func (id ID) Int64() int64 {
	return int64(id)
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Time Snowflake ID 中携带的生成时间
func (id ID) Time() time.Time {
	ts, _, _, _ := ParseSnowflakeID(int64(id))
	return time.UnixMilli(ts)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON 兼容字符串和数字两种形式，两种形式都只接受正数
func (id *ID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		parsed, err := ParseID(str)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var num int64
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, data)
	}
	parsed, err := checkID(num)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
