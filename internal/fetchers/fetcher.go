// Package fetchers acquires datasets for the dashboards: remote collections
// from a VirES-compatible server and uploaded files read from disk. Every
// acquisition produces a paldata.DataTree with one group per dataset.
package fetchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Provider names accepted in DataParams.
const (
	ProviderVires = "vires"
	ProviderFile  = "file"
)

// Options configures the fetcher's remote client.
type Options struct {
	ViresURL   string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

// Fetcher dispatches dataset acquisition by provider.
type Fetcher struct {
	vires *ViresClient
	log   *logger.Logger
}

// New creates a fetcher with a shared remote client.
func New(opts Options) *Fetcher {
	return &Fetcher{
		vires: NewViresClient(opts),
		log:   logger.Component("fetchers"),
	}
}

// Fetch acquires every dataset in params and merges them into a single tree,
// one group per dataset. An empty params list, an unknown provider or an
// empty combined result is a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, params []models.DataParams) (*paldata.DataTree, error) {
	if len(params) == 0 {
		return nil, &FetchError{Source: "config", Err: fmt.Errorf("no data parameters given")}
	}

	tree := paldata.New()
	for _, p := range params {
		switch strings.ToLower(p.Provider) {
		case ProviderVires:
			if err := f.vires.FetchInto(ctx, tree, p); err != nil {
				return nil, err
			}
		case ProviderFile:
			if err := readFileInto(tree, p); err != nil {
				return nil, err
			}
		default:
			return nil, &FetchError{Source: p.Provider, Err: fmt.Errorf("unknown provider")}
		}
	}

	if tree.IsEmpty() {
		return nil, &FetchError{Source: sourceLabel(params), Err: fmt.Errorf("no data returned")}
	}

	f.log.Infof("fetched %d dataset(s)", len(params))
	return tree, nil
}

func sourceLabel(params []models.DataParams) string {
	labels := make([]string, 0, len(params))
	for _, p := range params {
		switch {
		case p.Collection != "":
			labels = append(labels, p.Collection)
		case p.Filename != "":
			labels = append(labels, p.Filename)
		default:
			labels = append(labels, p.Provider)
		}
	}
	return strings.Join(labels, ", ")
}
