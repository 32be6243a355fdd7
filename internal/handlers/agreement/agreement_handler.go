package agreement

import (
	"fmt"
	"net/http"
	"strconv"

	"fieldserve-service/internal/domain/agreement"
	"fieldserve-service/internal/middleware"
	"fieldserve-service/internal/pdf"
	"fieldserve-service/internal/pkg/response"
	service "fieldserve-service/internal/service/agreement"

	"github.com/gin-gonic/gin"
)

type AgreementHandler struct {
	agreementService *service.Service
	pdfGenerator     *pdf.Generator
}

func NewAgreementHandler(agreementService *service.Service, pdfGenerator *pdf.Generator) *AgreementHandler {
	return &AgreementHandler{
		agreementService: agreementService,
		pdfGenerator:     pdfGenerator,
	}
}

// CreateAgreement signs a customer up for a plan
func (h *AgreementHandler) CreateAgreement(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	var req agreement.CreateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.agreementService.Create(c.Request.Context(), companyID, &req)
	if err != nil {
		response.FromError(c, "failed to create agreement", err)
		return
	}

	response.Success(c, http.StatusCreated, "agreement created successfully", result)
}

// GetAgreement retrieves an agreement with plan, customer and usage
func (h *AgreementHandler) GetAgreement(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	result, err := h.agreementService.Get(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "agreement not found", err)
		return
	}

	response.Success(c, http.StatusOK, "agreement retrieved", result)
}

// ListAgreements retrieves agreements with filters
func (h *AgreementHandler) ListAgreements(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	var filters agreement.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}

	result, err := h.agreementService.List(c.Request.Context(), companyID, &filters)
	if err != nil {
		response.FromError(c, "failed to list agreements", err)
		return
	}

	response.Success(c, http.StatusOK, "agreements retrieved", result)
}

// ListCustomerAgreements retrieves every agreement held by one customer
func (h *AgreementHandler) ListCustomerAgreements(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	customerID, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid customer ID", err)
		return
	}

	var filters agreement.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid query parameters", err)
		return
	}
	filters.CustomerID = &customerID

	result, err := h.agreementService.List(c.Request.Context(), companyID, &filters)
	if err != nil {
		response.FromError(c, "failed to list customer agreements", err)
		return
	}

	response.Success(c, http.StatusOK, "customer agreements retrieved", result)
}

// UpdateAgreement applies a partial edit. The request must carry the
// version the client read; a stale version is rejected with 409.
func (h *AgreementHandler) UpdateAgreement(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	var req agreement.UpdateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.agreementService.Update(c.Request.Context(), companyID, id, &req)
	if err != nil {
		response.FromError(c, "failed to update agreement", err)
		return
	}

	response.Success(c, http.StatusOK, "agreement updated successfully", result)
}

// RenewAgreement extends an active agreement inside the renew window
func (h *AgreementHandler) RenewAgreement(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	result, err := h.agreementService.Renew(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "failed to renew agreement", err)
		return
	}

	response.Success(c, http.StatusOK, "agreement renewed successfully", result)
}

// CancelAgreement cancels an agreement, idempotently
func (h *AgreementHandler) CancelAgreement(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	result, err := h.agreementService.Cancel(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "failed to cancel agreement", err)
		return
	}

	response.Success(c, http.StatusOK, "agreement cancelled", result)
}

// RecordVisit books a completed maintenance visit against the quota
func (h *AgreementHandler) RecordVisit(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	var req agreement.RecordVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.agreementService.RecordVisit(c.Request.Context(), companyID, id, &req)
	if err != nil {
		response.FromError(c, "failed to record visit", err)
		return
	}

	response.Success(c, http.StatusCreated, "visit recorded", result)
}

// ListVisits retrieves the visit history for an agreement
func (h *AgreementHandler) ListVisits(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	visits, err := h.agreementService.Visits(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "failed to list visits", err)
		return
	}

	response.Success(c, http.StatusOK, "visits retrieved", visits)
}

// GetSummary returns per-status agreement counts for the dashboard
func (h *AgreementHandler) GetSummary(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	result, err := h.agreementService.Summary(c.Request.Context(), companyID)
	if err != nil {
		response.FromError(c, "failed to load summary", err)
		return
	}

	response.Success(c, http.StatusOK, "summary retrieved", result)
}

// DownloadPDF renders the agreement summary document
func (h *AgreementHandler) DownloadPDF(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := parseID(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	detail, err := h.agreementService.Get(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "agreement not found", err)
		return
	}

	visits, err := h.agreementService.Visits(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "failed to load visits", err)
		return
	}

	data, err := h.pdfGenerator.Generate(pdf.AgreementDocument{
		Agreement: detail.Agreement,
		Plan:      detail.Plan,
		Customer:  detail.Customer,
		Visits:    visits,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to render pdf", err)
		return
	}

	filename := fmt.Sprintf("%s.pdf", detail.Agreement.AgreementNumber)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
