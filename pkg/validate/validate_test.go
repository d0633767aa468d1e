package validate

import (
	"testing"

	apperrors "github.com/permbase/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIdent(t *testing.T) {
	valid := []string{"a", "ADMIN", "sales_manager", "Menu2", "a_1_b"}
	for _, s := range valid {
		assert.True(t, IsIdent(s), s)
	}

	invalid := []string{"", "1abc", "_abc", "has space", "中文", "a-b", "a.b"}
	for _, s := range invalid {
		assert.False(t, IsIdent(s), s)
	}
}

func TestStruct(t *testing.T) {
	type req struct {
		Name  string `validate:"required,ident,max=10"`
		Count int    `validate:"min=1"`
	}

	require.NoError(t, Struct(&req{Name: "role_a", Count: 1}))

	err := Struct(&req{Name: "", Count: 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	err = Struct(&req{Name: "9bad", Count: 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
