package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidateScene 验证场景标识符，使用位运算支持场景组合验证
//   - 允许场景组合：SceneCreate | SceneUpdate 表示同时适用于创建和更新场景
//   - 场景匹配：scene & targetScene != 0
type ValidateScene int64

// 预定义的通用验证场景常量
const (
	SceneNone   ValidateScene = 0      // 无场景
	SceneCreate ValidateScene = 1 << 0 // 创建场景（注册）
	SceneUpdate ValidateScene = 1 << 1 // 更新场景
	SceneAll    ValidateScene = -1     // 所有场景(111...111)
)

// RuleValidator 规则验证器接口 - 按场景提供字段的基础格式规则
//
// 示例：
//
//	func (r *CreateUserRequest) RuleValidation() map[ValidateScene]map[string]string {
//	    return map[ValidateScene]map[string]string{
//	        SceneCreate: {"Name": "min=4", "Email": "email", "Password": "min=6"},
//	    }
//	}
type RuleValidator interface {
	// RuleValidation 返回格式：map[场景][字段名]规则字符串（go-playground/validator 标签语法）
	RuleValidation() map[ValidateScene]map[string]string
}

// CustomValidator 自定义验证器接口 - 跨字段验证和业务逻辑验证
//
// 示例：
//
//	func (r *CreateUserRequest) CustomValidation(scene ValidateScene, report FuncReportError) {
//	    if r.Password != r.PasswordConfirmation {
//	        report("password_confirmation", "eqfield", "password")
//	    }
//	}
type CustomValidator interface {
	CustomValidation(scene ValidateScene, report FuncReportError)
}

// FuncReportError 错误报告函数类型，CustomValidator 通过它报告错误
//   - namespace: 字段路径（json 名）
//   - tag: 验证标签
//   - param: 验证参数
type FuncReportError func(namespace, tag, param string)

// Validator 验证器，封装 go-playground/validator
//   - 单例：Default() 全局唯一
//   - 工厂：New() 创建独立实例（测试隔离）
type Validator struct {
	// validate 底层验证器实例，并发安全
	validate *validator.Validate
	// typeCache 类型信息缓存，key: reflect.Type, value: *typeCache
	typeCache *sync.Map
}

// typeCache 避免重复的类型断言
type typeCache struct {
	isRuleValidator   bool
	isCustomValidator bool
	validationRules   map[ValidateScene]map[string]string
}

var (
	defaultValidator *Validator
	once             sync.Once
)

// Default 获取默认验证器实例（单例模式），线程安全
func Default() *Validator {
	once.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// Validate 使用默认验证器验证对象
func Validate(obj any, scene ValidateScene) []*FieldError {
	return Default().Validate(obj, scene)
}

// New 创建新的验证器实例
// 注册 json tag 作为字段名，错误中显示 json 字段名而不是结构体字段名
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{
		validate:  v,
		typeCache: &sync.Map{},
	}
}

// Var 验证单个值，通过返回 nil
// field 用于填充错误中的字段名
func (v *Validator) Var(field string, value any, tag string) *FieldError {
	if tag == "" {
		return nil
	}
	return v.firstError(field, v.validate.Var(value, tag))
}

// VarWithValue 验证单个值与另一个值的关系（eqcsfield 等跨字段标签）
func (v *Validator) VarWithValue(field string, value, other any, tag string) *FieldError {
	if tag == "" {
		return nil
	}
	return v.firstError(field, v.validate.VarWithValue(value, other, tag))
}

// firstError 将底层错误转换为 FieldError，单值校验只关心第一个失败的标签
func (v *Validator) firstError(field string, err error) *FieldError {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return NewFieldError(nil, field, field, "", "").WithMessage(err.Error())
	}

	e := validationErrors[0]
	return NewFieldError(e.Value(), field, field, e.Tag(), e.Param())
}

// Validate 验证模型，支持指定场景
//
// 验证流程：
//  1. 字段规则验证：RuleValidator 提供场景化规则，否则使用 struct tag
//  2. 结构规则验证：CustomValidator 跨字段验证
//
// 错误收集策略：收集所有错误后统一返回，nil 表示验证通过
func (v *Validator) Validate(obj any, scene ValidateScene) []*FieldError {
	if obj == nil {
		return []*FieldError{
			NewFieldError(nil, "struct", "struct", "required", "").
				WithMessage("validation target cannot be nil"),
		}
	}

	cache := v.getOrCacheTypeInfo(obj)
	ctx := NewValidationContext(scene)

	if cache.isRuleValidator {
		v.validateFieldsByRules(obj, cache.validationRules, ctx)
	} else {
		v.validateFieldsByTags(obj, ctx)
	}

	if cache.isCustomValidator {
		v.validateStructRules(obj, scene, ctx)
	}

	if ctx.HasErrors() {
		return ctx.Errors
	}
	return nil
}

// validateFieldsByRules 通过 RuleValidator 提供的场景化规则验证字段
func (v *Validator) validateFieldsByRules(obj any, rules map[ValidateScene]map[string]string, ctx *ValidationContext) {
	matchedRules := make(map[string]string)
	for scene, sceneRules := range rules {
		if scene&ctx.Scene != 0 {
			for fieldName, rule := range sceneRules {
				matchedRules[fieldName] = rule
			}
		}
	}
	if len(matchedRules) == 0 {
		return
	}

	val := reflect.ValueOf(obj)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()

	for fieldName, rule := range matchedRules {
		if rule == "" {
			continue
		}

		structField, ok := typ.FieldByName(fieldName)
		if !ok {
			structField, ok = findFieldByJSONTag(typ, fieldName)
		}
		if !ok {
			continue
		}
		field := val.FieldByIndex(structField.Index)
		if !field.CanInterface() {
			continue
		}

		jsonName := jsonFieldName(structField)
		if fe := v.Var(jsonName, field.Interface(), rule); fe != nil {
			fe.FieldName = structField.Name
			ctx.AddError(fe)
		}
	}
}

// validateFieldsByTags 通过 struct tag 验证字段（标准方式）
func (v *Validator) validateFieldsByTags(obj any, ctx *ValidationContext) {
	err := v.validate.Struct(obj)
	if err == nil {
		return
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// 非结构体等情况，作为普通错误处理
		ctx.AddError(NewFieldError(nil, "", "", "", "").WithMessage(err.Error()))
		return
	}
	for _, e := range validationErrors {
		ctx.AddErrorByValidator(e)
	}
}

// validateStructRules 执行 CustomValidator 的跨字段验证
func (v *Validator) validateStructRules(obj any, scene ValidateScene, ctx *ValidationContext) {
	customValidator, ok := obj.(CustomValidator)
	if !ok {
		return
	}

	report := func(namespace, tag, param string) {
		ctx.AddError(NewFieldError(nil, namespace, namespace, tag, param))
	}
	customValidator.CustomValidation(scene, report)
}

// getOrCacheTypeInfo 获取或缓存类型信息
func (v *Validator) getOrCacheTypeInfo(obj any) *typeCache {
	typ := reflect.TypeOf(obj)
	if cached, ok := v.typeCache.Load(typ); ok {
		return cached.(*typeCache)
	}

	cache := &typeCache{}
	if ruleValidator, ok := obj.(RuleValidator); ok {
		cache.isRuleValidator = true
		cache.validationRules = ruleValidator.RuleValidation()
	}
	_, cache.isCustomValidator = obj.(CustomValidator)

	actual, _ := v.typeCache.LoadOrStore(typ, cache)
	return actual.(*typeCache)
}

// findFieldByJSONTag 通过 JSON tag 查找字段
func findFieldByJSONTag(typ reflect.Type, jsonTag string) (reflect.StructField, bool) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if strings.SplitN(f.Tag.Get("json"), ",", 2)[0] == jsonTag {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
