package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// errorMessageEstimateLen 单条错误消息的预估长度，用于预分配
const errorMessageEstimateLen = 48

// ValidationContext 验证上下文，收集一次验证中的所有错误
type ValidationContext struct {
	// Scene 验证场景
	Scene ValidateScene `json:"scene"`
	// Errors 所有验证错误的集合
	Errors []*FieldError `json:"errors,omitempty"`
}

// FieldError 单个字段的验证错误
// 国际化时可以通过 JsonName + Tag 和 Param 查找对应的翻译
type FieldError struct {
	// FieldName 结构体字段名
	FieldName string `json:"field_name,omitempty"`
	// JsonName JSON 字段名
	JsonName string `json:"json_name"`
	// Tag 验证标签（如 required, email, min 等）
	Tag string `json:"tag"`
	// Param 验证参数（如 min=4 中的 "4"）
	Param string `json:"param,omitempty"`
	// Value 字段的实际值，不参与序列化（可能是密码）
	Value any `json:"-"`
	// Message 友好的错误消息（可选，用于直接显示给用户）
	Message string `json:"message,omitempty"`
}

// NewValidationContext 创建验证上下文
func NewValidationContext(scene ValidateScene) *ValidationContext {
	return &ValidationContext{
		Scene:  scene,
		Errors: make([]*FieldError, 0),
	}
}

// NewFieldError 创建字段错误
func NewFieldError(value any, fieldName, jsonName, tag, param string) *FieldError {
	return &FieldError{
		FieldName: fieldName,
		JsonName:  jsonName,
		Tag:       tag,
		Param:     param,
		Value:     value,
	}
}

// Error 实现 error 接口
func (vc *ValidationContext) Error() string {
	if len(vc.Errors) == 0 {
		return "validation passed: no errors"
	}

	var builder strings.Builder
	builder.Grow(len(vc.Errors) * errorMessageEstimateLen)
	for i, err := range vc.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.String())
	}
	return builder.String()
}

// HasErrors 检查是否有验证错误
func (vc *ValidationContext) HasErrors() bool {
	return len(vc.Errors) > 0
}

// AddError 添加字段错误
func (vc *ValidationContext) AddError(err *FieldError) {
	if err != nil {
		vc.Errors = append(vc.Errors, err)
	}
}

// AddErrorByValidator 通过 validator.FieldError 添加字段错误
func (vc *ValidationContext) AddErrorByValidator(e validator.FieldError) {
	vc.Errors = append(vc.Errors, &FieldError{
		FieldName: e.StructField(),
		JsonName:  e.Field(),
		Tag:       e.Tag(),
		Param:     e.Param(),
		Value:     e.Value(),
	})
}

// ToJSON 转换为 JSON 格式
func (vc *ValidationContext) ToJSON() ([]byte, error) {
	return json.Marshal(vc)
}

// String 返回友好的错误信息
func (fe *FieldError) String() string {
	if fe.Message != "" {
		return fmt.Sprintf("field '%s': %s", fe.JsonName, fe.Message)
	}
	return fmt.Sprintf("field '%s' validation failed on tag '%s'", fe.JsonName, fe.Tag)
}

// Error 实现 error 接口
func (fe *FieldError) Error() string {
	return fe.String()
}

func (fe *FieldError) WithMessage(message string) *FieldError {
	fe.Message = message
	return fe
}

// Messages 将错误列表转换为 json 字段名到消息的映射，同一字段只保留第一条
func Messages(errs []*FieldError) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, exists := out[fe.JsonName]; !exists {
			out[fe.JsonName] = fe.String()
		}
	}
	return out
}
