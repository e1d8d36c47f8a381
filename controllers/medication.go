package controllers

import (
	"net/http"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Medication(router gin.IRouter) {
	medication := router.Group("/patients/:patientId/medications")
	{
		medication.GET("", ctl.Authorize(role.ResourceMedication, role.ActionView), ctl.ListMedications)
		medication.POST("", ctl.Authorize(role.ResourceMedication, role.ActionCreate), ctl.AssignMedication)
		medication.GET("/today", ctl.Authorize(role.ResourceMedication, role.ActionView), ctl.MedicationsToday)
		medication.PATCH("/:medicationId", ctl.Authorize(role.ResourceMedication, role.ActionUpdate), ctl.UpdateMedication)
		medication.DELETE("/:medicationId", ctl.Authorize(role.ResourceMedication, role.ActionDelete), ctl.RemoveMedication)
	}
	router.GET("/medications/suggestions", ctl.Authorize(role.ResourceLookup, role.ActionView), ctl.SuggestMedications)
}

func (ctl *Controller) ListMedications(c *gin.Context) {
	list, err := ctl.Care.ListMedications(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(list))
}

func (ctl *Controller) AssignMedication(c *gin.Context) {
	var in models.MedicationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		ctl.badRequest(c, err)
		return
	}
	m, err := ctl.Care.AssignMedication(c.Request.Context(), c.Param("patientId"), in)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse(m))
}

/*
* The day defaults to today in the process time zone
* An explicit day is passed as ?day=YYYY-MM-DD
 */
func (ctl *Controller) MedicationsToday(c *gin.Context) {
	day := time.Now()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			ctl.fail(c, apperr.Invalid("day must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	doses, err := ctl.Care.MedicationsDueOn(c.Request.Context(), c.Param("patientId"), day)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(doses))
}

func (ctl *Controller) UpdateMedication(c *gin.Context) {
	var u models.MedicationUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		ctl.badRequest(c, err)
		return
	}
	m, err := ctl.Care.UpdateMedication(c.Request.Context(), c.Param("patientId"), c.Param("medicationId"), u)
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(m))
}

func (ctl *Controller) RemoveMedication(c *gin.Context) {
	if err := ctl.Care.RemoveMedication(c.Request.Context(), c.Param("patientId"), c.Param("medicationId")); err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("medication removed"))
}

func (ctl *Controller) SuggestMedications(c *gin.Context) {
	names, err := ctl.Lookup.Suggest(c.Request.Context(), c.Query("term"))
	if err != nil {
		ctl.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse(names))
}
