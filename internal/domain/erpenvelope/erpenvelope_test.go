package erpenvelope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
)

func TestBuild_PrefersExternalIDOverNumberAsRef(t *testing.T) {
	externalID := "SENIOR-OC-000011"
	po := purchaseorder.PurchaseOrder{
		TenantID:     uuid.New(),
		Number:       "PO-11",
		SupplierName: "Acme",
		Currency:     "",
		TotalAmount:  decimal.NewFromInt(100),
		ExternalID:   &externalID,
	}

	env := Build(po, []purchaseorder.Line{{LineNo: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(50)}})

	assert.Equal(t, externalID, env.ExternalRef)
	assert.Equal(t, "PO-11", env.Number)
	assert.Equal(t, "BRL", env.Currency, "empty currency defaults to BRL")
	assert.Equal(t, SchemaName, env.SchemaName)
	assert.Equal(t, SchemaVersion, env.SchemaVersion)
	require.Len(t, env.Lines, 1)
}

func TestBuild_FallsBackToNumberWhenNoExternalID(t *testing.T) {
	po := purchaseorder.PurchaseOrder{
		TenantID:     uuid.New(),
		Number:       "PO-22",
		SupplierName: "Acme",
		Currency:     "USD",
		TotalAmount:  decimal.NewFromInt(1),
	}

	env := Build(po, nil)

	assert.Equal(t, "PO-22", env.ExternalRef)
	assert.Equal(t, "USD", env.Currency)
	assert.Empty(t, env.Lines)
}

func TestValidate(t *testing.T) {
	valid := func() Envelope {
		return Envelope{
			SchemaName:    SchemaName,
			SchemaVersion: SchemaVersion,
			SupplierName:  "Acme",
			Lines:         []Line{{LineNo: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		}
	}

	t.Run("accepts a well-formed envelope", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects unknown schema name", func(t *testing.T) {
		e := valid()
		e.SchemaName = "something.else"
		assert.ErrorContains(t, e.Validate(), "unknown schema_name")
	})

	t.Run("rejects unknown schema version", func(t *testing.T) {
		e := valid()
		e.SchemaVersion = 2
		assert.ErrorContains(t, e.Validate(), "unknown schema_version")
	})

	t.Run("rejects missing supplier name", func(t *testing.T) {
		e := valid()
		e.SupplierName = ""
		assert.ErrorContains(t, e.Validate(), "missing supplier_name")
	})

	t.Run("rejects empty lines", func(t *testing.T) {
		e := valid()
		e.Lines = nil
		assert.ErrorContains(t, e.Validate(), "lines must not be empty")
	})

	t.Run("rejects a non-positive line quantity", func(t *testing.T) {
		e := valid()
		e.Lines = []Line{{LineNo: 1, Quantity: 0, UnitPrice: decimal.NewFromInt(1)}}
		assert.ErrorContains(t, e.Validate(), "line quantity must be positive")
	})
}
