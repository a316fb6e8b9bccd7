package cmd

import (
	"example.com/backstage/services/fieldservice/config"
	"example.com/backstage/services/fieldservice/internal/cache"
	"example.com/backstage/services/fieldservice/internal/db"
	"example.com/backstage/services/fieldservice/internal/inventory"
	"example.com/backstage/services/fieldservice/internal/messaging"
	"example.com/backstage/services/fieldservice/internal/metrics"
	"example.com/backstage/services/fieldservice/internal/notify"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/search"
	"example.com/backstage/services/fieldservice/internal/service"
	"example.com/backstage/services/fieldservice/internal/tracing"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// dependencies bundles everything the api and worker commands share
type dependencies struct {
	db       *gorm.DB
	cache    cache.CacheClient
	tracer   tracing.Tracer
	bus      messaging.ServiceBusClient
	metrics  *metrics.Metrics
	orders   *service.OrderService
	billing  *service.BillingService
	catalog  *service.CatalogService
	registry *service.RegistryService
}

// buildDependencies wires the full service graph from configuration
func buildDependencies(cfg config.Config) (*dependencies, error) {
	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	redisCache, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache, _ = cache.NewRedisClient(&config.RedisConfig{Enabled: false})
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search")
		elasticClient, _ = search.NewElasticClient(config.ElasticConfig{Enabled: false})
	}

	bus, err := messaging.NewAzureServiceBus(cfg.Azure, tracer)
	if err != nil {
		return nil, err
	}

	metricsCollector := metrics.NewMetrics()
	notifier := notify.NewNotifier(bus)
	inventoryService := inventory.NewService()

	orderRepo := repository.NewOrderRepository(gdb)
	customerRepo := repository.NewCustomerRepository(gdb)
	equipmentRepo := repository.NewEquipmentRepository(gdb)
	technicianRepo := repository.NewTechnicianRepository(gdb)
	serviceTypeRepo := repository.NewServiceTypeRepository(gdb)
	productRepo := repository.NewProductRepository(gdb)
	invoiceRepo := repository.NewInvoiceRepository(gdb)
	sequences := repository.NewSequenceGenerator(gdb)

	registry := service.NewRegistryService(technicianRepo, orderRepo, redisCache)
	orders := service.NewOrderService(
		gdb, orderRepo, customerRepo, equipmentRepo, serviceTypeRepo, productRepo,
		sequences, registry, inventoryService, notifier, elasticClient,
		redisCache, metricsCollector, tracer,
	)
	billing := service.NewBillingService(
		gdb, orderRepo, invoiceRepo, serviceTypeRepo, sequences, notifier,
		metricsCollector, tracer,
	)
	catalog := service.NewCatalogService(
		gdb, customerRepo, equipmentRepo, technicianRepo, serviceTypeRepo,
		productRepo, sequences, cfg.Scheduling,
	)

	return &dependencies{
		db:       gdb,
		cache:    redisCache,
		tracer:   tracer,
		bus:      bus,
		metrics:  metricsCollector,
		orders:   orders,
		billing:  billing,
		catalog:  catalog,
		registry: registry,
	}, nil
}

// close releases external connections
func (d *dependencies) close() {
	if err := d.bus.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close service bus client")
	}
	d.tracer.Close()
}
