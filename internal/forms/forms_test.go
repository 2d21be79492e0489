package forms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
)

type priced struct {
	Name  string       `json:"name" validate:"required"`
	Price crmapi.Money `json:"unitPrice" validate:"min=1"`
	Note  string       `json:"-" validate:"max=3"`
}

func TestFieldsUseJSONNames(t *testing.T) {
	err := New().Struct(priced{Price: crmapi.NewMoney(0.5), Note: "too long"})
	fields := Fields(err, map[string]string{"name": "Name is required"})

	assert.Equal(t, "Name is required", fields["name"])
	assert.Equal(t, "Invalid value", fields["unitPrice"])
	assert.Contains(t, fields, "Note")
}

func TestMoneyPassesMinimum(t *testing.T) {
	assert.NoError(t, New().Struct(priced{Name: "Fibre", Price: crmapi.NewMoney(1)}))
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Fields(errors.New("boom"), nil))
}
