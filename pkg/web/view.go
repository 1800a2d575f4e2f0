package web

import (
	"katydid-account-register/pkg/client"
	"katydid-account-register/pkg/form"
)

// MessageListFailed 用户列表加载失败的通知文案
const MessageListFailed = "Não foi possível carregar os usuários."

type fieldView struct {
	Name         string
	Label        string
	Type         string
	Autocomplete string
	Value        string
	Error        form.FieldError
}

type formView struct {
	Title         string
	Fields        []fieldView
	CanSubmit     bool
	Loading       bool
	Notifications []form.Notification
	ActionPath    string
	ValidatePath  string
	CancelPath    string
}

type usersView struct {
	Title         string
	Users         []client.User
	Notifications []form.Notification
	NewPath       string
}

// fieldMeta 输入框的标签和类型，顺序即渲染顺序
var fieldMeta = []struct {
	name, label, typ, autocomplete string
}{
	{form.FieldName, "Nome", "text", "name"},
	{form.FieldEmail, "Email", "email", "email"},
	{form.FieldPassword, "Senha", "password", "new-password"},
	{form.FieldPasswordConfirmation, "Confirmar senha", "password", "new-password"},
}

func newFormView(tr *form.Tracker, loading bool, notifications []form.Notification) formView {
	v := formView{
		Title:         "Cadastrar usuário",
		CanSubmit:     tr.IsValid() && !loading,
		Loading:       loading,
		Notifications: notifications,
		ActionPath:    PathNewUser,
		ValidatePath:  PathValidate,
		CancelPath:    PathUsers,
	}
	for _, m := range fieldMeta {
		v.Fields = append(v.Fields, fieldView{
			Name:         m.name,
			Label:        m.label,
			Type:         m.typ,
			Autocomplete: m.autocomplete,
			Value:        tr.Value(m.name),
			Error:        tr.Error(m.name),
		})
	}
	return v
}
