package controller

import (
	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/serverutils"
	"coach-membership-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminController serves the back-office cancellation queue.
type AdminController struct {
	cancellationService service.ICancellationService
}

func NewAdminController(cancellationService service.ICancellationService) *AdminController {
	return &AdminController{
		cancellationService: cancellationService,
	}
}

func (c *AdminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/cancellations", serverutils.JwtMiddleware, serverutils.RequireAdmin)
	h.Get("/pending", c.GetPendingCancellations)
	h.Get("/history", c.GetCancellationHistory)
	h.Post("/:id/approve", c.ApproveCancellation)
	h.Post("/:id/reject", c.RejectCancellation)
	h.Post("/:id/confirm-transfer", c.ConfirmTransfer)
}

func (c *AdminController) GetPendingCancellations(ctx *fiber.Ctx) error {
	requests, err := c.cancellationService.GetPendingCancellations(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pending cancellations retrieved", requests))
}

func (c *AdminController) GetCancellationHistory(ctx *fiber.Ctx) error {
	requests, err := c.cancellationService.GetCancellationHistory(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation history retrieved", requests))
}

func (c *AdminController) ApproveCancellation(ctx *fiber.Ctx) error {
	adminId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	requestId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid request id")
	}

	var req dto.ApproveCancellationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.cancellationService.ApproveCancellation(ctx.Context(), adminId, requestId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation approved", res))
}

func (c *AdminController) RejectCancellation(ctx *fiber.Ctx) error {
	adminId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	requestId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid request id")
	}

	var req dto.RejectCancellationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.cancellationService.RejectCancellation(ctx.Context(), adminId, requestId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation rejected", res))
}

func (c *AdminController) ConfirmTransfer(ctx *fiber.Ctx) error {
	adminId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	requestId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid request id")
	}

	var req dto.ConfirmTransferRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}

	res, err := c.cancellationService.ConfirmTransfer(ctx.Context(), adminId, requestId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Transfer confirmed", res))
}
