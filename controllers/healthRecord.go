package controllers

import (
	"bytes"
	"net/http"
	"strconv"

	"ElderCare360/apperr"
	"ElderCare360/models"
	"ElderCare360/role"
	"ElderCare360/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (ctl *Controller) HealthRecord(router gin.IRouter) {
	record := router.Group("/patients/:patientId/healthRecords")
	{
		record.GET("", ctl.Authorize(role.ResourceHealthRecord, role.ActionView), ctl.ListHealthRecords)
		record.POST("", ctl.Authorize(role.ResourceHealthRecord, role.ActionCreate), ctl.AddHealthRecord)
		record.GET("/summary", ctl.Authorize(role.ResourceHealthRecord, role.ActionView), ctl.HealthSummary)
		record.GET("/stream", ctl.Authorize(role.ResourceHealthRecord, role.ActionView), ctl.StreamHealthRecords)
		record.GET("/export", ctl.Authorize(role.ResourceHealthRecord, role.ActionExport), ctl.ExportHealthRecords)
		record.PATCH("/:recordId", ctl.Authorize(role.ResourceHealthRecord, role.ActionUpdate), ctl.UpdateHealthRecord)
		record.DELETE("/:recordId", ctl.Authorize(role.ResourceHealthRecord, role.ActionDelete), ctl.RemoveHealthRecord)
	}
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (ctl *Controller) ListHealthRecords(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		ctl.fail(c, err)
		return
	}
	list, err := ctl.Care.ListHealthRecords(c.Request.Context(), c.Param("patientId"), limit)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(list))
}

// healthRecordRequest takes either the metric fields or one metric typed as text, e.g. {"metric":"bloodPressure","value":"120/80"}.
type healthRecordRequest struct {
	models.Measurement
	Metric models.Metric `json:"metric"`
	Value  string        `json:"value"`
}

func (ctl *Controller) AddHealthRecord(c *gin.Context) {
	var req healthRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctl.badRequest(c, err)
		return
	}
	m := req.Measurement
	if req.Metric != "" {
		parsed, err := models.ParseMeasurement(req.Metric, req.Value)
		if err != nil {
			ctl.fail(c, err)
			return
		}
		m = parsed
	}
	rec, err := ctl.Care.AddHealthRecord(c.Request.Context(), c.Param("patientId"), m)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse(rec))
}

func (ctl *Controller) UpdateHealthRecord(c *gin.Context) {
	var u models.HealthRecordUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		ctl.badRequest(c, err)
		return
	}
	rec, err := ctl.Care.UpdateHealthRecord(c.Request.Context(), c.Param("patientId"), c.Param("recordId"), u)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(rec))
}

func (ctl *Controller) RemoveHealthRecord(c *gin.Context) {
	if err := ctl.Care.RemoveHealthRecord(c.Request.Context(), c.Param("patientId"), c.Param("recordId")); err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("health record removed"))
}

func (ctl *Controller) HealthSummary(c *gin.Context) {
	sum, err := ctl.Care.HealthSummary(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(sum))
}

func (ctl *Controller) StreamHealthRecords(c *gin.Context) {
	window, err := queryInt(c, "window")
	if err != nil {
		ctl.fail(c, err)
		return
	}
	ch, err := ctl.Care.WatchHealthRecords(c.Request.Context(), c.Param("patientId"), window)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	stream(c, ch)
}

/*
* Build the workbook in memory so a failure can still answer with JSON
* Send it as an attachment named after the patient code
 */
func (ctl *Controller) ExportHealthRecords(c *gin.Context) {
	var buf bytes.Buffer
	p, err := ctl.Care.ExportHealthRecords(c.Request.Context(), c.Param("patientId"), &buf)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+services.ExportFileName(p)+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
