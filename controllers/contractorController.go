package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"civicresolve/models"
	"civicresolve/service"
)

type ContractorController struct {
	contractors *service.ContractorService
}

func NewContractorController(contractors *service.ContractorService) *ContractorController {
	return &ContractorController{contractors: contractors}
}

// RegisterContractor creates the caller's contractor profile, pending approval.
func (cc *ContractorController) RegisterContractor(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var input struct {
		FullName       string `json:"fullName"`
		PhoneNumber    string `json:"phoneNumber"`
		Address        string `json:"address"`
		AssignedArea   string `json:"assignedArea"`
		Specialization string `json:"specialization"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	contractor, err := cc.contractors.Register(c.Request.Context(), sess, models.Contractor{
		FullName:       input.FullName,
		PhoneNumber:    input.PhoneNumber,
		Address:        input.Address,
		AssignedArea:   input.AssignedArea,
		Specialization: input.Specialization,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contractor)
}

func (cc *ContractorController) GetProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	contractor, err := cc.contractors.Profile(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contractor)
}

// GetContractors lists every contractor. ?approved=true|false narrows it.
func (cc *ContractorController) GetContractors(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var (
		list []models.Contractor
		err  error
	)
	switch c.Query("approved") {
	case "true":
		list, err = cc.contractors.ApprovedContractors(c.Request.Context(), sess)
	case "false":
		list, err = cc.contractors.PendingContractors(c.Request.Context(), sess)
	default:
		list, err = cc.contractors.ListContractors(c.Request.Context(), sess)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (cc *ContractorController) GetPendingContractors(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	list, err := cc.contractors.PendingContractors(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (cc *ContractorController) ApproveContractor(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	contractor, err := cc.contractors.Approve(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contractor)
}

func (cc *ContractorController) DeleteContractor(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	if err := cc.contractors.Remove(c.Request.Context(), sess, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contractor removed successfully"})
}
