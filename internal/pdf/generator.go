package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/domain/customer"
	"fieldserve-service/internal/domain/plan"
)

// AgreementDocument bundles everything the summary PDF renders.
type AgreementDocument struct {
	Agreement *agreement.ServiceAgreement
	Plan      *plan.AgreementPlan
	Customer  *customer.Customer
	Visits    []agreement.Visit
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the agreement summary handed to customers and kept
// on file by the office.
func (g *Generator) Generate(doc AgreementDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Service Agreement Summary", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Agreement %s", doc.Agreement.AgreementNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Term: %s through %s", formatDate(doc.Agreement.StartDate), formatDate(doc.Agreement.EndDate)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	g.addCustomerBlock(pdf, doc.Customer)
	pdf.Ln(2)
	g.addPlanBlock(pdf, doc.Plan)
	pdf.Ln(2)
	g.addStatusBlock(pdf, doc.Agreement, doc.Plan)

	if len(doc.Visits) > 0 {
		pdf.Ln(4)
		g.addVisitTable(pdf, doc.Visits)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render agreement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) addCustomerBlock(pdf *gofpdf.Fpdf, c *customer.Customer) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Customer", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, c.Name, "", 1, "L", false, 0, "")

	var addr []string
	for _, part := range []string{c.AddressLine.String, c.City.String, c.State.String, c.PostalCode.String} {
		if part != "" {
			addr = append(addr, part)
		}
	}
	if len(addr) > 0 {
		pdf.CellFormat(0, 6, strings.Join(addr, ", "), "", 1, "L", false, 0, "")
	}
	if c.Phone.Valid {
		pdf.CellFormat(0, 6, c.Phone.String, "", 1, "L", false, 0, "")
	}
}

func (g *Generator) addPlanBlock(pdf *gofpdf.Fpdf, p *plan.AgreementPlan) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Plan: %s (%s)", p.Name, strings.ToUpper(string(p.Trade))), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("$%.2f/month or $%.2f/year, %d maintenance visits included", p.MonthlyPrice, p.AnnualPrice, p.VisitsIncluded), "", 1, "L", false, 0, "")

	var benefits []string
	if p.DiscountPct > 0 {
		benefits = append(benefits, fmt.Sprintf("%.0f%% repair discount", p.DiscountPct))
	}
	if p.PriorityService {
		benefits = append(benefits, "priority service")
	}
	if p.NoDiagnosticFee {
		benefits = append(benefits, "no diagnostic fee")
	}
	if len(benefits) > 0 {
		pdf.CellFormat(0, 6, "Benefits: "+strings.Join(benefits, ", "), "", 1, "L", false, 0, "")
	}
	for _, svc := range p.IncludedServices {
		pdf.CellFormat(0, 6, "- "+svc, "", 1, "L", false, 0, "")
	}
}

func (g *Generator) addStatusBlock(pdf *gofpdf.Fpdf, a *agreement.ServiceAgreement, p *plan.AgreementPlan) {
	usage := a.UsageAgainst(p)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Status", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s, billed %s, auto-renew %s", a.Status, a.BillingFrequency, onOff(a.AutoRenew)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Visits: %d used, %d remaining of %d", usage.Used, usage.Remaining, usage.Included), "", 1, "L", false, 0, "")
	if a.LastVisitDate.Valid {
		pdf.CellFormat(0, 6, "Last visit: "+formatDate(a.LastVisitDate.Time), "", 1, "L", false, 0, "")
	}
	if a.NextVisitDue.Valid {
		pdf.CellFormat(0, 6, "Next visit due: "+formatDate(a.NextVisitDue.Time), "", 1, "L", false, 0, "")
	}
}

func (g *Generator) addVisitTable(pdf *gofpdf.Fpdf, visits []agreement.Visit) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Visit History", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 10)
	widths := []float64{30, 45, 45, 60}
	headers := []string{"Date", "Job", "Technician", "Notes"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, v := range visits {
		cells := []string{
			formatDate(v.VisitedAt),
			v.JobReference.String,
			v.Technician.String,
			v.Notes.String,
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
