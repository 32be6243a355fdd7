package advisor

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"fieldserve-service/internal/domain/advisor"
	"fieldserve-service/internal/middleware"
	"fieldserve-service/internal/pkg/response"
	service "fieldserve-service/internal/service/advisor"

	"github.com/gin-gonic/gin"
)

// maxAdviceBody caps the raw input forwarded to the advisory model.
const maxAdviceBody = 64 * 1024

type AdvisorHandler struct {
	advisorService *service.AdvisorService
}

func NewAdvisorHandler(advisorService *service.AdvisorService) *AdvisorHandler {
	return &AdvisorHandler{advisorService: advisorService}
}

// Advise forwards caller-supplied input to the advisory model for one
// advisory kind and returns the reply verbatim
func (h *AdvisorHandler) Advise(c *gin.Context) {
	kind := advisor.Kind(c.Param("kind"))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAdviceBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to read request body", err)
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		response.Error(c, http.StatusBadRequest, "request body must be valid JSON", nil)
		return
	}

	result, err := h.advisorService.Advise(c.Request.Context(), kind, body)
	if err != nil {
		response.FromError(c, "advisory request failed", err)
		return
	}

	response.Success(c, http.StatusOK, "advice retrieved", result)
}

// AgreementMaintenance runs a predictive-maintenance forecast over an
// agreement's plan, customer and visit history
func (h *AdvisorHandler) AgreementMaintenance(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid agreement ID", err)
		return
	}

	result, err := h.advisorService.AgreementMaintenance(c.Request.Context(), companyID, id)
	if err != nil {
		response.FromError(c, "forecast failed", err)
		return
	}

	response.Success(c, http.StatusOK, "forecast retrieved", result)
}
