package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Images   *ImageHandler
}

// NewRouter mounts every route. The cart event stream stays outside the
// request timeout, it is held open for as long as the page is.
func NewRouter(h Handlers, requestTimeout time.Duration, maxBodySize int64) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/v1/cart/events", h.Cart.Events)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.Compress(5))

		r.Get("/images/{name}", h.Images.Serve)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.List)
				r.Get("/{id}", h.Products.Get)
				r.With(limitBody(maxBodySize)).Post("/{id}/cart", h.Products.AddToCart)
				r.With(limitBody(maxBodySize)).Post("/{id}/buy-now", h.Products.BuyNow)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Get("/count", h.Cart.Count)
				r.Get("/contact", h.Cart.Contact)
				r.Post("/items/{index}/increment", h.Cart.Increment)
				r.Post("/items/{index}/decrement", h.Cart.Decrement)
				r.Delete("/items/{index}", h.Cart.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Use(limitBody(maxBodySize))
				r.Get("/countries", h.Checkout.Countries)
				r.Post("/start", h.Checkout.Start)
				r.Get("/{checkoutID}", h.Checkout.GetOrder)
				r.Post("/{checkoutID}/summary", h.Checkout.Summary)
				r.Post("/{checkoutID}", h.Checkout.Proceed)
			})

			r.Post("/images", h.Images.Upload)
		})
	})

	return r
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
