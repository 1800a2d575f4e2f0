// Package form 注册表单的领域逻辑：字段规则表、字段错误跟踪器和提交流程。
// 与渲染层无关，web 包负责把它们接到 HTTP 上。
package form

import (
	"strings"

	"katydid-account-register/pkg/validator"
)

// 表单字段名，同时也是 HTML input 的 name
const (
	FieldName                 = "name"
	FieldEmail                = "email"
	FieldPassword             = "password"
	FieldPasswordConfirmation = "passwordConfirmation"
)

// 规则失败时展示给用户的固定文案
const (
	MessageName                 = "Nome deve ter ao menos 4 caracteres."
	MessageEmail                = "Insira um email válido."
	MessagePassword             = "Senha deve ter ao menos 6 caracteres."
	MessagePasswordConfirmation = "As duas senhas devem ser iguais."

	MessageNameTooLong     = "Nome deve ter no máximo 128 caracteres."
	MessageEmailTooLong    = "Email deve ter no máximo 254 caracteres."
	MessagePasswordTooLong = "Senha deve ter no máximo 72 bytes."
)

// passwordMaxBytes bcrypt 只使用前 72 个字节
const passwordMaxBytes = 72

// Rule 单个字段的验证规则，静态且不可变
type Rule struct {
	// Field 字段名
	Field string
	// Tag go-playground/validator 标签
	Tag string
	// Message 失败时的固定文案
	Message string
	// Related 需要对比的另一个字段（如确认密码对比密码），为空表示规则只依赖自身的值
	Related string
	// TagMessages 按失败的标签覆盖 Message，例如 max 超长
	TagMessages map[string]string
	// Trim 验证前去除首尾空白，与用户服务的规范化保持一致
	Trim bool
	// MaxBytes 按字节计的长度上限，0 表示不限制
	MaxBytes int
}

// Evaluate 验证值，失败时返回对应文案；related 仅在 Related 非空时使用
func (r Rule) Evaluate(value, related string) (string, bool) {
	if r.Trim {
		value = strings.TrimSpace(value)
	}

	var fe *validator.FieldError
	if r.Related != "" {
		fe = validator.Default().VarWithValue(r.Field, value, related, r.Tag)
	} else {
		fe = validator.Default().Var(r.Field, value, r.Tag)
	}
	if fe != nil {
		if msg, ok := r.TagMessages[fe.Tag]; ok {
			return msg, false
		}
		return r.Message, false
	}

	if r.MaxBytes > 0 && len(value) > r.MaxBytes {
		return r.TagMessages["max"], false
	}
	return "", true
}

// Check 判断值是否满足规则
func (r Rule) Check(value, related string) bool {
	_, ok := r.Evaluate(value, related)
	return ok
}

// registrationRules 注册表单的规则表，顺序即渲染顺序
// 长度上限与用户服务 users.CreateRequest 的规则一致。
var registrationRules = []Rule{
	{
		Field: FieldName, Tag: "min=4,max=128", Message: MessageName, Trim: true,
		TagMessages: map[string]string{"max": MessageNameTooLong},
	},
	{
		Field: FieldEmail, Tag: "max=254,email", Message: MessageEmail, Trim: true,
		TagMessages: map[string]string{"max": MessageEmailTooLong},
	},
	{
		Field: FieldPassword, Tag: "min=6", Message: MessagePassword, MaxBytes: passwordMaxBytes,
		TagMessages: map[string]string{"max": MessagePasswordTooLong},
	},
	{Field: FieldPasswordConfirmation, Tag: "eqcsfield", Message: MessagePasswordConfirmation, Related: FieldPassword},
}

// Rules 返回注册表单规则表的副本
func Rules() []Rule {
	out := make([]Rule, len(registrationRules))
	copy(out, registrationRules)
	return out
}

// RuleFor 按字段名查找规则
func RuleFor(field string) (Rule, bool) {
	for _, r := range registrationRules {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}
