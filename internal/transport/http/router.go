package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/khangpt2k6/bullroom/internal/clock"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Bookings  BookingService
	Rooms     RoomService
	Slots     SlotReader
	Observers Observers
	Clock     clock.Clock
	Log       *zap.Logger

	CORSOrigins []string
	// CreateLimitPerMinute caps booking creations per client IP. Zero
	// disables the limit.
	CreateLimitPerMinute int
	Ready                map[string]Check
}

// NewRouter wires every route of the reservation API.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))
	r.Use(Identity)

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler(d.Observers, clk))
	r.Get("/ready", ReadyHandler(d.Ready))
	r.Handle("/metrics", promhttp.Handler())
	if d.Observers != nil {
		r.Get("/ws", HandleWebsocket(d.Observers, d.CORSOrigins, log))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", HandleListRooms(d.Rooms, d.Slots))
			r.Get("/buildings", HandleListBuildings())
			r.Get("/{id}", HandleGetRoom(d.Rooms))
			r.Get("/{id}/availability", HandleRoomAvailability(d.Rooms, d.Slots))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(RequireUser)
			r.With(RateLimit(d.CreateLimitPerMinute, time.Minute)).Post("/", HandleCreateBooking(d.Bookings))
			r.Get("/", HandleListBookings(d.Bookings))
			r.Get("/{id}", HandleGetBooking(d.Bookings))
			r.Post("/{id}/confirm", HandleConfirmBooking(d.Bookings))
			r.Post("/{id}/cancel", HandleCancelBooking(d.Bookings))
			r.Delete("/{id}", HandleCancelBooking(d.Bookings))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/rooms", HandleCreateRoom(d.Rooms))
		})
	})

	return r
}
