package controller

import (
	"coach-membership-be/internal/dto"
	"coach-membership-be/internal/pkg/apperror"
	"coach-membership-be/internal/pkg/serverutils"
	"coach-membership-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MembershipController serves the member-facing surface: plans, own
// membership status, cancellation filing, own requests, notifications, and
// the payment-gateway webhook.
type MembershipController struct {
	membershipService   service.IMembershipService
	cancellationService service.ICancellationService
	notificationService service.INotificationService
}

func NewMembershipController(
	membershipService service.IMembershipService,
	cancellationService service.ICancellationService,
	notificationService service.INotificationService,
) *MembershipController {
	return &MembershipController{
		membershipService:   membershipService,
		cancellationService: cancellationService,
		notificationService: notificationService,
	}
}

func (c *MembershipController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/membership")
	h.Get("/plans", c.GetPlans)
	h.Post("/gateway/notification", c.HandleGatewayNotification)

	// Protected Routes
	h.Get("/status", serverutils.JwtMiddleware, c.GetMembershipStatus)
	h.Post("/cancellation", serverutils.JwtMiddleware, c.RequestCancellation)
	h.Get("/cancellation", serverutils.JwtMiddleware, c.GetRefundRequests)

	n := r.Group("/notifications", serverutils.JwtMiddleware)
	n.Get("/", c.GetNotifications)
	n.Patch("/:id/read", c.MarkNotificationRead)
}

func (c *MembershipController) GetPlans(ctx *fiber.Ctx) error {
	plans, err := c.membershipService.GetPlans(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Plans retrieved", plans))
}

func (c *MembershipController) GetMembershipStatus(ctx *fiber.Ctx) error {
	userId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	status, err := c.membershipService.GetMembershipStatus(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Membership status retrieved", status))
}

func (c *MembershipController) RequestCancellation(ctx *fiber.Ctx) error {
	userId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}

	var req dto.RequestCancellationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.cancellationService.RequestCancellation(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Cancellation request submitted", res))
}

func (c *MembershipController) GetRefundRequests(ctx *fiber.Ctx) error {
	userId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	requests, err := c.cancellationService.GetRefundRequests(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund requests retrieved", requests))
}

func (c *MembershipController) GetNotifications(ctx *fiber.Ctx) error {
	userId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	notifications, err := c.notificationService.GetNotifications(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notifications retrieved", notifications))
}

func (c *MembershipController) MarkNotificationRead(ctx *fiber.Ctx) error {
	userId, err := serverutils.CallerId(ctx)
	if err != nil {
		return err
	}
	notificationId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("invalid notification id")
	}
	if err := c.notificationService.MarkRead(ctx.Context(), userId, notificationId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notification marked as read", fiber.Map{}))
}

// HandleGatewayNotification is unauthenticated; trust comes from the
// signature inside the payload.
func (c *MembershipController) HandleGatewayNotification(ctx *fiber.Ctx) error {
	var req dto.GatewayNotificationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid notification payload")
	}
	if err := c.membershipService.HandleGatewayNotification(ctx.Context(), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notification processed", fiber.Map{}))
}
