package stratum

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	redisadapter "github.com/strataconf/stratum/internal/adapters/redis"
	"github.com/strataconf/stratum/internal/adapters/yamlfs"
	"github.com/strataconf/stratum/internal/logging"
	"github.com/strataconf/stratum/pkg/config"
	"github.com/strataconf/stratum/pkg/inventory"
	"github.com/strataconf/stratum/pkg/observability"
	"github.com/strataconf/stratum/pkg/ports"
)

// Service is the high-level entry point for the Stratum library. It wires
// a document source, a configuration, and the resolution core behind a
// simplified API.
type Service struct {
	cfg      *config.Config
	source   ports.DocumentSource
	logger   *slog.Logger
	resolver *inventory.Resolver
	metrics  *observability.Metrics

	base string
	Name string
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithSource injects a custom document source, bypassing the default
// filesystem discovery.
func WithSource(src ports.DocumentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithConfig injects an explicit configuration instead of loading
// stratum-config.yml from the inventory directory.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithLogger sets a custom structured logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New initializes a Service over the inventory at basePath. By default
// the configuration is read from basePath and documents come from its
// nodes/ and classes/ directories; WithSource allows basePath to be
// empty.
func New(basePath string, opts ...Option) (*Service, error) {
	svc := &Service{}
	for _, opt := range opts {
		opt(svc)
	}

	if basePath != "" {
		abs, err := filepath.Abs(basePath)
		if err != nil {
			return nil, fmt.Errorf("invalid inventory path: %w", err)
		}
		svc.base = abs
		svc.Name = filepath.Base(abs)
	}

	if svc.cfg == nil {
		if svc.base == "" {
			return nil, fmt.Errorf("an inventory path is required when no config is provided")
		}
		cfg, err := config.FromInventory(svc.base)
		if err != nil {
			return nil, err
		}
		svc.cfg = cfg
	}
	if err := svc.cfg.Validate(); err != nil {
		return nil, err
	}

	if svc.logger == nil {
		svc.logger = logging.NewNop()
	}
	if svc.Name != "" {
		svc.logger = svc.logger.With("inventory", svc.Name)
	}
	svc.metrics = observability.NewMetrics()

	if err := svc.reload(); err != nil {
		return nil, err
	}
	return svc, nil
}

// reload (re)creates the document source snapshot and the resolver.
func (s *Service) reload() error {
	if s.source == nil {
		switch {
		case s.cfg.UsesRedisSource():
			src, err := redisadapter.New(context.Background(), s.cfg.NodesURI)
			if err != nil {
				return err
			}
			s.source = src
		default:
			if s.base == "" {
				return fmt.Errorf("an inventory path is required when no source is provided")
			}
			src, err := yamlfs.New(s.cfg.NodesRoot(), s.cfg.ClassesRoot())
			if err != nil {
				return err
			}
			s.source = src
		}
	}
	resolver, err := inventory.NewResolver(s.cfg, s.source, s.logger)
	if err != nil {
		return err
	}
	s.resolver = resolver
	return nil
}

// NodeInfo resolves a single node by its full name.
func (s *Service) NodeInfo(name string) (*inventory.NodeInfo, error) {
	start := time.Now()
	info, err := s.resolver.NodeInfo(name)
	s.metrics.ObserveNodeResolve(time.Since(start), err)
	return info, err
}

// Inventory resolves every node and returns the global aggregate.
func (s *Service) Inventory() (*inventory.Inventory, error) {
	start := time.Now()
	inv, err := s.resolver.Build()
	nodes := 0
	if inv != nil {
		nodes = len(inv.Nodes)
	}
	s.metrics.ObserveBuild(time.Since(start), nodes, err)
	return inv, err
}

// Metrics returns the Prometheus metrics for this service.
func (s *Service) Metrics() *observability.Metrics {
	return s.metrics
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// SetCompatFlag activates a compatibility flag and rebuilds the resolver
// so no resolution state survives the configuration change.
func (s *Service) SetCompatFlag(name string) error {
	s.cfg.SetCompatFlag(name)
	return s.reload()
}

// UnsetCompatFlag deactivates a compatibility flag and rebuilds the
// resolver.
func (s *Service) UnsetCompatFlag(name string) error {
	s.cfg.UnsetCompatFlag(name)
	return s.reload()
}

// Source returns the underlying document source.
func (s *Service) Source() ports.DocumentSource {
	return s.source
}
