package form

import (
	"errors"
	"fmt"
)

// ErrUnknownField 规则表中没有该字段
var ErrUnknownField = errors.New("form: unknown field")

// FieldError 单个字段当前的错误状态，零值表示没有错误
type FieldError struct {
	Text      string `json:"text"`
	ShowError bool   `json:"showError"`
}

// Snapshot 跟踪器可持久化的部分，只包含错误状态，不包含字段值
type Snapshot struct {
	Errors  map[string]FieldError `json:"errors"`
	Checked map[string]bool       `json:"checked"`
}

// Tracker 字段错误跟踪器
// 维护字段名到 FieldError 的映射，并回答"整个表单是否有效"。
// 非并发安全：一个实例只属于一次表单会话。
type Tracker struct {
	rules   []Rule
	values  map[string]string
	errors  map[string]FieldError
	checked map[string]bool
}

// NewTracker 为规则表中的每个字段创建空的错误项
func NewTracker(rules []Rule) *Tracker {
	t := &Tracker{
		rules:   rules,
		values:  make(map[string]string, len(rules)),
		errors:  make(map[string]FieldError, len(rules)),
		checked: make(map[string]bool, len(rules)),
	}
	for _, r := range rules {
		t.errors[r.Field] = FieldError{}
	}
	return t
}

// NewRegistrationTracker 使用注册表单规则表创建跟踪器
func NewRegistrationTracker() *Tracker {
	return NewTracker(Rules())
}

func (t *Tracker) rule(field string) (Rule, bool) {
	for _, r := range t.rules {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

// SetValue 更新字段的当前值（onChange），不触发验证
func (t *Tracker) SetValue(field, value string) error {
	if _, ok := t.rule(field); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	t.values[field] = value
	return nil
}

// SetValues 批量更新字段值，忽略规则表之外的键
func (t *Tracker) SetValues(values map[string]string) {
	for field, value := range values {
		if _, ok := t.rule(field); ok {
			t.values[field] = value
		}
	}
}

// Value 返回字段的当前值
func (t *Tracker) Value(field string) string {
	return t.values[field]
}

// Validate 记录字段值并按规则验证（onBlur）
// 已验证过且依赖该字段的其他字段会一并重新验证，例如修改密码后重新检查确认密码。
func (t *Tracker) Validate(field, value string) (FieldError, error) {
	if err := t.SetValue(field, value); err != nil {
		return FieldError{}, err
	}

	fe := t.evaluate(field)
	for _, r := range t.rules {
		if r.Related == field && t.checked[r.Field] {
			t.evaluate(r.Field)
		}
	}
	return fe, nil
}

// ValidateAll 按当前值验证所有字段
func (t *Tracker) ValidateAll() bool {
	for _, r := range t.rules {
		t.evaluate(r.Field)
	}
	return t.IsValid()
}

func (t *Tracker) evaluate(field string) FieldError {
	r, _ := t.rule(field)

	var related string
	if r.Related != "" {
		related = t.values[r.Related]
	}

	fe := FieldError{}
	if msg, ok := r.Evaluate(t.values[field], related); !ok {
		fe = FieldError{Text: msg, ShowError: true}
	}
	t.errors[field] = fe
	t.checked[field] = true
	return fe
}

// Error 返回字段当前的错误状态
func (t *Tracker) Error(field string) FieldError {
	return t.errors[field]
}

// Errors 返回所有字段错误状态的副本
func (t *Tracker) Errors() map[string]FieldError {
	out := make(map[string]FieldError, len(t.errors))
	for k, v := range t.errors {
		out[k] = v
	}
	return out
}

// IsValid 没有任何字段带错误标记，且每个字段都至少验证过一次
func (t *Tracker) IsValid() bool {
	for _, r := range t.rules {
		if !t.checked[r.Field] || t.errors[r.Field].ShowError {
			return false
		}
	}
	return true
}

// Snapshot 导出错误状态
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Errors:  t.Errors(),
		Checked: make(map[string]bool, len(t.checked)),
	}
	for k, v := range t.checked {
		s.Checked[k] = v
	}
	return s
}

// Restore 恢复错误状态，规则表之外的键被忽略
func (t *Tracker) Restore(s Snapshot) {
	for _, r := range t.rules {
		if fe, ok := s.Errors[r.Field]; ok {
			t.errors[r.Field] = fe
		}
		if s.Checked[r.Field] {
			t.checked[r.Field] = true
		}
	}
}
