package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/univ-admin-api/internal/service"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
	"github.com/noah-isme/univ-admin-api/pkg/response"
)

// GradeHandler exposes grade recording, bulk import and export endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Record godoc
// @Summary Record a grade
// @Description Upserts the student's grade for the evaluation.
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body service.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations/{id}/grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	var req service.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	grade, err := h.grades.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// ListByEvaluation godoc
// @Summary List an evaluation's grades
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/grades [get]
func (h *GradeHandler) ListByEvaluation(c *gin.Context) {
	grades, err := h.grades.ListByEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Get godoc
// @Summary Get grade detail
// @Tags Grades
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [get]
func (h *GradeHandler) Get(c *gin.Context) {
	grade, err := h.grades.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ListByStudent godoc
// @Summary List a student's grades
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grades/student/{id} [get]
func (h *GradeHandler) ListByStudent(c *gin.Context) {
	grades, err := h.grades.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Delete godoc
// @Summary Delete grade
// @Tags Grades
// @Param id path string true "Grade ID"
// @Success 204
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.grades.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Bulk import grades from CSV
// @Description Reconciles rows of matricule,value against the class roster. Row errors are reported, the rest of the file proceeds.
// @Tags Grades
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/grades/import [post]
func (h *GradeHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing csv file"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable csv file"))
		return
	}
	defer file.Close()

	result, err := h.grades.ImportCSV(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportCSV godoc
// @Summary Export an evaluation's grades as CSV
// @Tags Grades
// @Produce text/csv
// @Param id path string true "Evaluation ID"
// @Success 200 {file} file
// @Router /evaluations/{id}/grades/export/csv [get]
func (h *GradeHandler) ExportCSV(c *gin.Context) {
	out, err := h.grades.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="grades.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}

// ExportPDF godoc
// @Summary Export an evaluation's grades as PDF
// @Tags Grades
// @Produce application/pdf
// @Param id path string true "Evaluation ID"
// @Success 200 {file} file
// @Router /evaluations/{id}/grades/export/pdf [get]
func (h *GradeHandler) ExportPDF(c *gin.Context) {
	out, err := h.grades.ExportPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="grades.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}
