package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hosteldesk/hostel-api/internal/dto"
	"github.com/hosteldesk/hostel-api/internal/service"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
	"github.com/hosteldesk/hostel-api/pkg/response"
)

// AllocationHandler exposes the room assignment endpoints.
type AllocationHandler struct {
	allocations *service.AllocationService
}

// NewAllocationHandler constructs AllocationHandler.
func NewAllocationHandler(allocations *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// Allocate godoc
// @Summary Allocate a room to an approved enrollment
// @Tags Allocations
// @Accept json
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Param payload body dto.AllocateRoomRequest true "Target room and override flag"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /rooms/allocate/{enrollmentId} [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req dto.AllocateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.allocations.Allocate(c.Request.Context(), c.Param("enrollmentId"), req.RoomID, req.Override, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AutoAllocate godoc
// @Summary Automatically place all approved unallocated enrollments
// @Tags Allocations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms/auto-allocate [post]
func (h *AllocationHandler) AutoAllocate(c *gin.Context) {
	report, err := h.allocations.AutoAllocate(c.Request.Context(), actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Deallocate godoc
// @Summary Remove an enrollment's room assignment
// @Tags Allocations
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Success 204 "No Content"
// @Failure 409 {object} response.Envelope
// @Router /rooms/deallocate/{enrollmentId} [delete]
func (h *AllocationHandler) Deallocate(c *gin.Context) {
	if err := h.allocations.Deallocate(c.Request.Context(), c.Param("enrollmentId"), actorIDFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
