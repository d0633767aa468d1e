package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/permbase/pkg/errors"
)

// identPattern 标识符规则：字母开头，后接字母/数字/下划线
var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
}

// IsIdent 检查字符串是否为合法标识符
func IsIdent(s string) bool {
	return identPattern.MatchString(s)
}

// Struct 校验命令结构体，失败返回验证错误
func Struct(data interface{}) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Validation(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperrors.Validation(strings.Join(msgs, "; "))
}

// fieldMessage 生成单字段错误消息
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("字段 %s 不能为空", fe.Field())
	case "ident":
		return fmt.Sprintf("字段 %s 必须以字母开头，仅含字母/数字/下划线", fe.Field())
	case "oneof":
		return fmt.Sprintf("字段 %s 必须为 [%s] 之一", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("字段 %s 长度不能超过 %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("字段 %s 不能小于 %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("字段 %s 校验失败(%s)", fe.Field(), fe.Tag())
	}
}
