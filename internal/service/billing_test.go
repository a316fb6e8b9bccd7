package service

import (
	"testing"

	"example.com/backstage/services/fieldservice/internal/model"

	"github.com/stretchr/testify/require"
)

func TestBuildInvoiceLines(t *testing.T) {
	serviceType := &model.ServiceType{
		Code:          "PREV",
		Name:          "Preventive Maintenance",
		BasePrice:     350,
		IncomeAccount: "4001",
	}
	order := &model.ServiceOrder{
		RefactionLines: []model.RefactionLine{
			{
				ProductID:  "prod-1",
				Quantity:   2,
				UnitPrice:  80,
				TotalPrice: 160,
				Product:    &model.Product{Code: "FLT-01", Name: "Filter", IncomeAccount: "4100"},
			},
			{
				ProductID:  "prod-2",
				Quantity:   1,
				UnitPrice:  45,
				TotalPrice: 45,
				Product:    &model.Product{Code: "GSK-02", Name: "Gasket", CategoryIncomeAccount: "4200"},
			},
		},
	}

	lines, total, err := buildInvoiceLines(order, serviceType)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, 555.0, total)

	// Base price line carries the service type's income account
	require.Equal(t, "Preventive Maintenance", lines[0].Description)
	require.Equal(t, 350.0, lines[0].UnitPrice)
	require.Equal(t, "4001", lines[0].AccountCode)
	require.Nil(t, lines[0].ProductID)

	// Part line uses the product account
	require.Equal(t, "4100", lines[1].AccountCode)
	require.Equal(t, 2.0, lines[1].Quantity)
	require.NotNil(t, lines[1].ProductID)
	require.Equal(t, "prod-1", *lines[1].ProductID)

	// A product without its own account falls back to the category account
	require.Equal(t, "4200", lines[2].AccountCode)
}

func TestBuildInvoiceLinesZeroBasePrice(t *testing.T) {
	// Warranty work carries no base price line at all
	serviceType := &model.ServiceType{Code: "WARR", Name: "Warranty", BasePrice: 0}
	order := &model.ServiceOrder{}

	lines, total, err := buildInvoiceLines(order, serviceType)
	require.NoError(t, err)
	require.Empty(t, lines)
	require.Equal(t, 0.0, total)
}

func TestBuildInvoiceLinesMissingServiceTypeAccount(t *testing.T) {
	serviceType := &model.ServiceType{Code: "PREV", Name: "Preventive", BasePrice: 100}
	order := &model.ServiceOrder{}

	_, _, err := buildInvoiceLines(order, serviceType)
	require.Error(t, err)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "income_account", validation.Field)
}

func TestBuildInvoiceLinesMissingProductAccount(t *testing.T) {
	serviceType := &model.ServiceType{Code: "PREV", Name: "Preventive", BasePrice: 100, IncomeAccount: "4001"}
	order := &model.ServiceOrder{
		RefactionLines: []model.RefactionLine{
			{
				ProductID: "prod-1",
				Quantity:  1,
				UnitPrice: 50,
				Product:   &model.Product{Code: "NOACCT", Name: "Unmapped Part"},
			},
		},
	}

	_, _, err := buildInvoiceLines(order, serviceType)
	require.Error(t, err)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}
