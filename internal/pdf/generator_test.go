package pdf

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/plan"
)

func testDocument() AgreementDocument {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	return AgreementDocument{
		Agreement: &agreement.ServiceAgreement{
			AgreementNumber:  "SA-01HTEST",
			Status:           agreement.StatusActive,
			StartDate:        start,
			EndDate:          start.AddDate(1, 0, 0),
			BillingFrequency: agreement.BillingMonthly,
			AutoRenew:        true,
			VisitsUsed:       1,
			LastVisitDate:    sql.NullTime{Time: start.AddDate(0, 2, 0), Valid: true},
		},
		Plan: &plan.AgreementPlan{
			Name:             "Gold HVAC Plan",
			Trade:            plan.TradeHVAC,
			MonthlyPrice:     29.99,
			AnnualPrice:      299,
			DiscountPct:      15,
			VisitsIncluded:   2,
			PriorityService:  true,
			NoDiagnosticFee:  true,
			IncludedServices: []string{"Spring tune-up", "Fall tune-up"},
		},
		Customer: &customer.Customer{
			Name:        "Dana Whitfield",
			Phone:       sql.NullString{String: "555-0142", Valid: true},
			AddressLine: sql.NullString{String: "12 Birch Lane", Valid: true},
			City:        sql.NullString{String: "Springfield", Valid: true},
			State:       sql.NullString{String: "OH", Valid: true},
		},
		Visits: []agreement.Visit{
			{
				VisitedAt:    start.AddDate(0, 2, 0),
				JobReference: sql.NullString{String: "JOB-1201", Valid: true},
				Technician:   sql.NullString{String: "M. Reyes", Valid: true},
				Notes:        sql.NullString{String: "Replaced filter", Valid: true},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	data, err := NewGenerator().Generate(testDocument())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerateWithoutVisits(t *testing.T) {
	doc := testDocument()
	doc.Visits = nil

	data, err := NewGenerator().Generate(doc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerateZeroIncludedVisits(t *testing.T) {
	doc := testDocument()
	doc.Plan.VisitsIncluded = 0

	data, err := NewGenerator().Generate(doc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
