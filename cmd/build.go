package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/approval"
	"github.com/spigell/jobapplier/internal/config"
	"github.com/spigell/jobapplier/internal/filtering"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/sources"
	"github.com/spigell/jobapplier/internal/sources/adzuna"
	"github.com/spigell/jobapplier/internal/sources/headhunter"
	"github.com/spigell/jobapplier/internal/sources/mock"
	"github.com/spigell/jobapplier/internal/state"
	"github.com/spigell/jobapplier/internal/workflow"
)

// newRegistry lists every adapter the binary ships with.
func newRegistry() *sources.Registry {
	r := sources.NewRegistry()
	r.Register(mock.Type, mock.New)
	r.Register(headhunter.Type, headhunter.New)
	r.Register(adzuna.Type, adzuna.New)
	return r
}

type buildOptions struct {
	// autoApprove replaces the configured channel with the auto gate.
	autoApprove bool
}

// buildWorkflow wires the cycle from the config. Sources and the gate are
// built before the store, so a bad adapter config fails without touching state.
// The caller owns the returned store.
func buildWorkflow(ctx context.Context, cfg *config.Config, prof *profile.Profile, opts buildOptions, logger *zap.Logger) (*workflow.Workflow, state.Store, error) {
	srcs, err := buildSources(newRegistry(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	channel, options := cfg.Notifications.Channel, cfg.Notifications.Options
	if opts.autoApprove {
		channel, options = approval.ChannelAuto, nil
	}

	gate, err := approval.New(ctx, channel, options, approval.Deps{Logger: logger.With(zap.String("channel", channel))})
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s approval gate: %w", channel, err)
	}

	weights, err := cfg.Weights()
	if err != nil {
		return nil, nil, err
	}

	store, err := state.Open(ctx, cfg.StateConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}

	wf, err := workflow.New(workflow.Context{
		Profile:  prof,
		Sources:  srcs,
		Gate:     gate,
		Store:    store,
		Weights:  weights,
		MinScore: cfg.Approvals.MinScore,
		Filters: []filtering.Filter{
			filtering.NewExcludedCompanies(cfg.Approvals.ExcludeCompanies, logger),
			filtering.NewRedFlags(cfg.Approvals.RedFlags, logger),
		},
		Limit:  cfg.Limit,
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return wf, store, nil
}

func buildSources(registry *sources.Registry, cfg *config.Config, logger *zap.Logger) ([]sources.Source, error) {
	srcs := make([]sources.Source, 0, len(cfg.JobSources))
	for _, sc := range cfg.JobSources {
		name := sc.SourceName()
		src, err := registry.Create(sc.Type, sc.Options, sources.Deps{
			Name:   name,
			Logger: logger.With(zap.String("source", name)),
		})
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}
