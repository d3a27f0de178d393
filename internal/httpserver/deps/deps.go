package deps

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/marks/internal/bookmarks"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
)

type Deps struct {
	Logger             logger.Logger
	StartTime          time.Time
	Version            string
	Commit             string
	BuildDate          string
	GoVersion          string
	TimeNow            func() time.Time    // for testing, defaults to time.Now
	Store              *bookmarks.Store    // Bookmark collection
	Storage            string              // Storage backend name, reported by /healthz
	Validate           *validator.Validate // Request DTO validation
	Metrics            *metrics.Metrics    // nil disables HTTP metrics
	Gatherer           prometheus.Gatherer // Source for /metrics (nil disables the route)
	MaxUploadBytes     int64               // Max size of an uploaded bookmark file
	ImportBurst        int                 // Rate limit burst on /api/import
	ImportRefillPerMin int                 // Rate limit refill per client IP on /api/import
	AllowedHosts       []string            // Host headers allowed to access /api
	AllowedCIDRS       []string            // IPs allowed to access operational endpoints
	TrustProxy         bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	SeedReloadTrigger  chan struct{}       // Channel to trigger a manual seed import (nil if seeding disabled)
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
