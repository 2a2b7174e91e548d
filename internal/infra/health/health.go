// Package health probes the stores the service depends on.
package health

import (
	"context"
	"database/sql"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const (
	StatusUp   = "up"
	StatusDown = "down"
)

type Probe func(ctx context.Context) error

func SQL(db *sql.DB) Probe {
	return db.PingContext
}

func Redis(client redis.UniversalClient) Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func Mongo(client *mongo.Client) Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}

type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   int64             `json:"time"`
}

func (r Report) Healthy() bool { return r.Status == StatusUp }

type Checker struct {
	timeout time.Duration
	names   []string
	probes  map[string]Probe
	now     func() time.Time
}

func NewChecker(timeout time.Duration) *Checker {
	return &Checker{timeout: timeout, probes: map[string]Probe{}, now: time.Now}
}

// Add registers probe under name. Not safe to call once Check is in use.
func (h *Checker) Add(name string, probe Probe) {
	if _, ok := h.probes[name]; !ok {
		h.names = append(h.names, name)
		sort.Strings(h.names)
	}
	h.probes[name] = probe
}

// Check runs every probe concurrently, each bounded by the checker timeout.
func (h *Checker) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(h.names))
		up     = true
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range h.names {
		probe := h.probes[name]
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, h.timeout)
			defer cancel()
			err := probe(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = StatusDown + ": " + err.Error()
				up = false
				return nil
			}
			checks[name] = StatusUp
			return nil
		})
	}
	_ = g.Wait()

	r := Report{Status: StatusUp, Checks: checks, Time: h.now().Unix()}
	if !up {
		r.Status = StatusDown
	}
	return r
}

// Handler answers 200 when every probe passes and 503 otherwise.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := h.Check(c.Request.Context())
		code := http.StatusOK
		if !r.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, r)
	}
}
