package bootstrap

import (
	"context"

	"coach-membership-be/internal/config"
	"coach-membership-be/internal/controller"
	"coach-membership-be/internal/pkg/logger"
	"coach-membership-be/internal/pkg/mailer"
	"coach-membership-be/internal/repository/unitofwork"
	"coach-membership-be/internal/scheduler"
	"coach-membership-be/internal/service"
	"coach-membership-be/pkg/database"
	pktNats "coach-membership-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

// Container wires every component once at startup. Construction order is
// infrastructure, repositories, services, controllers.
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Logger logger.ILogger

	PubSub   *gochannel.GoChannel
	EventPub *pktNats.Publisher

	MembershipController *controller.MembershipController
	AdminController      *controller.AdminController

	NotificationService service.INotificationService
	Reconciler          *scheduler.Reconciler
}

func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		return nil, err
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NopLogger{})

	// External events are optional; the workflow never blocks on them.
	var eventPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		eventPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Warn("BOOTSTRAP", "NATS unavailable, external events disabled", map[string]interface{}{
				"error": err.Error(),
			})
			eventPub = nil
		}
	}

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.Email, cfg.SMTP.Password,
			cfg.SMTP.Email, cfg.SMTP.SenderName,
		)
	}

	membershipService := service.NewMembershipService(uowFactory, log, eventPub, cfg.Gateway.ServerKey, cfg.Database.QueryTimeout)
	cancellationService := service.NewCancellationService(uowFactory, log, pubSub, eventPub, cfg.Database.QueryTimeout)
	notificationService := service.NewNotificationService(uowFactory, log, pubSub, emailService, cfg.Database.QueryTimeout)

	reconciler := scheduler.NewReconciler(
		uowFactory, log, scheduler.SystemClock(),
		cfg.Scheduler.SweepInterval,
		cfg.Database.QueryTimeout*10,
	)

	return &Container{
		Config:               cfg,
		DB:                   db,
		Logger:               log,
		PubSub:               pubSub,
		EventPub:             eventPub,
		MembershipController: controller.NewMembershipController(membershipService, cancellationService, notificationService),
		AdminController:      controller.NewAdminController(cancellationService),
		NotificationService:  notificationService,
		Reconciler:           reconciler,
	}, nil
}

// Start launches the background pieces: the bus consumer and the
// reconciliation scheduler.
func (c *Container) Start(ctx context.Context) error {
	if err := c.NotificationService.StartConsumer(ctx); err != nil {
		return err
	}
	c.Reconciler.Start()
	return nil
}

// Shutdown stops background work and closes connections in reverse order.
func (c *Container) Shutdown() {
	c.Reconciler.Stop()
	if c.PubSub != nil {
		_ = c.PubSub.Close()
	}
	if c.EventPub != nil {
		c.EventPub.Close()
	}
	_ = c.Logger.Sync()
}
