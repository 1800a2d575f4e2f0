package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSignup 测试注册模型
type testSignup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"password_confirmation"`
}

func (s *testSignup) RuleValidation() map[ValidateScene]map[string]string {
	return map[ValidateScene]map[string]string{
		SceneCreate: {
			"Name":     "min=4",
			"email":    "required,email",
			"Password": "min=6",
		},
		SceneUpdate: {
			"Name": "omitempty,min=4",
		},
	}
}

func (s *testSignup) CustomValidation(scene ValidateScene, report FuncReportError) {
	if scene&SceneCreate != 0 && s.Password != s.Confirm {
		report("password_confirmation", "eqfield", "password")
	}
}

// taggedUser 只使用 struct tag 的模型
type taggedUser struct {
	Name  string `json:"name" validate:"required,min=4"`
	Email string `json:"email" validate:"required,email"`
}

func TestVar(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		value   any
		tag     string
		wantTag string
	}{
		{name: "名字长度足够", value: "John", tag: "min=4"},
		{name: "名字太短", value: "joe", tag: "min=4", wantTag: "min"},
		{name: "多字节字符按字符计数", value: "Zoë!", tag: "min=4"},
		{name: "有效邮箱", value: "johndoe@doe.com", tag: "email"},
		{name: "无效邮箱", value: "johndoe@", tag: "email", wantTag: "email"},
		{name: "空规则直接通过", value: "", tag: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := v.Var("field", tt.value, tt.tag)
			if tt.wantTag == "" {
				assert.Nil(t, fe)
				return
			}
			require.NotNil(t, fe)
			assert.Equal(t, tt.wantTag, fe.Tag)
			assert.Equal(t, "field", fe.JsonName)
		})
	}
}

func TestVarWithValue(t *testing.T) {
	v := New()

	assert.Nil(t, v.VarWithValue("password_confirmation", "123456", "123456", "eqcsfield"))

	fe := v.VarWithValue("password_confirmation", "123999", "123456", "eqcsfield")
	require.NotNil(t, fe)
	assert.Equal(t, "eqcsfield", fe.Tag)
}

func TestValidate_Scene(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		obj        *testSignup
		scene      ValidateScene
		wantFields []string
	}{
		{
			name:  "有效的注册数据",
			obj:   &testSignup{Name: "John", Email: "johndoe@doe.com", Password: "123456", Confirm: "123456"},
			scene: SceneCreate,
		},
		{
			name:       "名字太短且密码不一致",
			obj:        &testSignup{Name: "joe", Email: "johndoe@doe.com", Password: "123456", Confirm: "123999"},
			scene:      SceneCreate,
			wantFields: []string{"name", "password_confirmation"},
		},
		{
			name:       "通过 json tag 匹配规则",
			obj:        &testSignup{Name: "John", Email: "nope", Password: "123456", Confirm: "123456"},
			scene:      SceneCreate,
			wantFields: []string{"email"},
		},
		{
			name:  "更新场景允许空名字",
			obj:   &testSignup{},
			scene: SceneUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.obj, tt.scene)
			var fields []string
			for _, fe := range errs {
				fields = append(fields, fe.JsonName)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidate_Tags(t *testing.T) {
	errs := Validate(&taggedUser{Name: "joe", Email: "x"}, SceneCreate)
	require.Len(t, errs, 2)

	msgs := Messages(errs)
	assert.Contains(t, msgs, "name")
	assert.Contains(t, msgs, "email")

	assert.Nil(t, Validate(&taggedUser{Name: "John", Email: "johndoe@doe.com"}, SceneCreate))
}

func TestValidate_Nil(t *testing.T) {
	errs := New().Validate(nil, SceneCreate)
	require.Len(t, errs, 1)
	assert.Equal(t, "required", errs[0].Tag)
}

func TestValidationContext_Error(t *testing.T) {
	ctx := NewValidationContext(SceneCreate)
	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "validation passed: no errors", ctx.Error())

	ctx.AddError(NewFieldError("joe", "Name", "name", "min", "4"))
	ctx.AddError(nil)
	ctx.AddError(NewFieldError(nil, "Email", "email", "email", "").WithMessage("bad email"))

	assert.True(t, ctx.HasErrors())
	assert.Equal(t, "field 'name' validation failed on tag 'min'; field 'email': bad email", ctx.Error())

	data, err := ctx.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "joe")
}
