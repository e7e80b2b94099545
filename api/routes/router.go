package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmarceau/storefront-backend/api/controllers"
	"github.com/dmarceau/storefront-backend/api/middleware"
	cartsvc "github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/internal/cartsync"
	checkoutsvc "github.com/dmarceau/storefront-backend/internal/checkout"
	orderssvc "github.com/dmarceau/storefront-backend/internal/orders"
	pkgauth "github.com/dmarceau/storefront-backend/pkg/auth"
	"github.com/dmarceau/storefront-backend/pkg/config"
	"github.com/dmarceau/storefront-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	Probes          map[string]controllers.Pinger
	SessionChecker  pkgauth.AccessSessionChecker
	CartService     cartsvc.Service
	CartValidator   *checkoutsvc.Validator
	SyncManager     *cartsync.Manager
	CheckoutService checkoutsvc.Service
	OrdersService   orderssvc.Service
	Metrics         prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Probes))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Delete("/", controllers.CartClear(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Put("/items", controllers.CartSetQuantity(deps.CartService, logg))
			r.Delete("/items", controllers.CartRemoveItem(deps.CartService, logg))
			r.Post("/validate", controllers.CartValidate(deps.CartService, deps.CartValidator, logg))
			r.Post("/sync/start", controllers.CartSyncStart(deps.SyncManager, logg))
			r.Post("/sync/stop", controllers.CartSyncStop(deps.SyncManager, logg))
		})

		r.Post("/checkout", controllers.CheckoutCommit(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.OrdersService, logg))
			r.Get("/{orderID}", controllers.OrdersFetch(deps.OrdersService, logg))
			r.Patch("/{orderID}/status", controllers.OrdersUpdateStatus(deps.OrdersService, logg))
		})
	})

	return r
}
