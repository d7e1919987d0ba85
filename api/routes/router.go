package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commercezen/engine/api/controllers"
	"github.com/commercezen/engine/api/middleware"
	assistsvc "github.com/commercezen/engine/internal/assist"
	cartsvc "github.com/commercezen/engine/internal/cart"
	"github.com/commercezen/engine/internal/catalog"
	checkoutsvc "github.com/commercezen/engine/internal/checkout"
	"github.com/commercezen/engine/internal/identity"
	orderssvc "github.com/commercezen/engine/internal/orders"
	"github.com/commercezen/engine/internal/recent"
	wishlistsvc "github.com/commercezen/engine/internal/wishlist"
	"github.com/commercezen/engine/pkg/config"
	"github.com/commercezen/engine/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry

	Provider    *identity.Provider
	IdentitySvc *identity.Service
	Catalog     *catalog.Repository
	Cart        *cartsvc.Manager
	Wishlist    *wishlistsvc.Manager
	Recent      *recent.Tracker
	Orders      *orderssvc.Engine
	Checkout    *checkoutsvc.Service
	Assist      *assistsvc.Service

	StoreCheck func(ctx context.Context) error
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(deps.Config.App.CORSOrigins),
	)

	r.Get("/healthz", controllers.Healthz(deps.StoreCheck, logg))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	requireIdentity := middleware.RequireIdentity(deps.Config.JWT, deps.Provider, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", controllers.Signup(deps.IdentitySvc, deps.Provider, logg))
			r.Post("/login", controllers.Login(deps.IdentitySvc, deps.Provider, logg))
			r.Post("/logout", controllers.Logout(deps.IdentitySvc, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, logg))
			r.Get("/{id}", controllers.ProductGet(deps.Catalog, deps.Recent, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAdd(deps.Cart, deps.Catalog, logg))
			r.Put("/items/{productId}", controllers.CartSetQuantity(deps.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemove(deps.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistGet(deps.Wishlist, logg))
			r.With(requireIdentity).Post("/toggle", controllers.WishlistToggle(deps.Wishlist, logg))
		})

		r.Get("/recently-viewed", controllers.RecentlyViewed(deps.Recent, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Get("/checkout/pending", controllers.PendingOrder(deps.Checkout, logg))
			r.Post("/payment", controllers.Payment(deps.Checkout, logg))
			r.Get("/orders", controllers.OrdersList(deps.Orders, logg))
			r.Get("/orders/{id}", controllers.OrderGet(deps.Orders, logg))
		})

		if deps.Assist != nil {
			r.Route("/assist", func(r chi.Router) {
				r.Post("/chat", controllers.AssistChat(deps.Assist, logg))
				r.Post("/recommendations", controllers.AssistRecommendations(deps.Assist, deps.Cart, logg))
			})
		}
	})

	return r
}
