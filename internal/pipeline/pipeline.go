// Package pipeline orchestrates the merge: load the six source datasets,
// align them on the altimetry grid, fill observation gaps, and serialize the
// merged container plus the standalone model-thickness record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/arcticdata/icemerge/internal/domain"
	"github.com/arcticdata/icemerge/internal/observability"
)

// MonthlyLoader reads a set of months from one source into a dataset on the
// source's native grid.
type MonthlyLoader interface {
	Load(ctx context.Context, months []time.Time) (*domain.Dataset, error)
}

// RegionLoader reads the static region mask and its coordinates.
type RegionLoader interface {
	Load(ctx context.Context) (*domain.RegionMask, *domain.Grid, error)
}

// YearRangeLoader reads every month of a span of calendar years.
type YearRangeLoader interface {
	Load(ctx context.Context, startYear, endYear int) (*domain.Dataset, error)
}

// ContainerWriter serializes a dataset.
type ContainerWriter interface {
	Write(path string, ds *domain.Dataset) error
}

// Sources are the six upstream datasets feeding the merge.
type Sources struct {
	Altimetry      MonthlyLoader
	Concentration  MonthlyLoader
	Regions        RegionLoader
	Reanalysis     MonthlyLoader
	ModelThickness YearRangeLoader
	Drift          MonthlyLoader
}

// Options fixes the study period and output locations for one run.
type Options struct {
	StartYear      int
	EndYear        int
	ModelStartYear int
	MergedPath     string
	ModelOutPath   string
}

// Pipeline runs the load-align-fill-merge sequence once per invocation.
type Pipeline struct {
	src     Sources
	writer  ContainerWriter
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	done    atomic.Bool
}

// New creates a Pipeline with the given sources, sink and observability.
func New(src Sources, w ContainerWriter, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{src: src, writer: w, opts: opts, logger: logger, metrics: metrics}
}

// CheckReadiness returns nil once the merged container has been written, or
// an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.done.Load() {
		return errors.New("merged container has not been written yet")
	}
	return nil
}

// Run executes the full merge once. It is not restartable; construct a new
// Pipeline for another run.
func (p *Pipeline) Run(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	winters, err := domain.WinterRange(p.opts.StartYear, p.opts.EndYear)
	if err != nil {
		return err
	}
	p.logger.Info("pipeline started",
		"winters", fmt.Sprintf("%d-%d", p.opts.StartYear, p.opts.EndYear),
		"months", len(winters))

	ds, regridder, err := p.load(ctx, winters)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := p.align(ctx, ds, regridder, winters); err != nil {
		return fmt.Errorf("align: %w", err)
	}
	if err := p.fill(ds); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	if err := p.write(ds); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	p.done.Store(true)
	p.logger.Info("pipeline finished", "fields", len(ds.FieldNames()), "path", p.opts.MergedPath)
	return nil
}

// load reads the altimetry record, which defines the target grid, then the
// concentration record and region mask that share it.
func (p *Pipeline) load(ctx context.Context, winters []time.Time) (*domain.Dataset, *domain.Regridder, error) {
	start := time.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues("load").Observe(time.Since(start).Seconds()) }()

	ds, err := p.src.Altimetry.Load(ctx, winters)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.MonthsLoaded.WithLabelValues("altimetry").Add(float64(len(winters)))
	p.logger.Info("altimetry loaded", "grid", ds.Grid.Shape(), "fields", ds.FieldNames())

	srid := ds.Attrs.String("srid")
	if srid == "" {
		srid = domain.DefaultSRID
	}
	proj, err := domain.NewProjection(srid)
	if err != nil {
		return nil, nil, err
	}
	regridder, err := domain.NewRegridder(ds.Grid, proj)
	if err != nil {
		return nil, nil, err
	}

	conc, err := p.src.Concentration.Load(ctx, winters)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.MonthsLoaded.WithLabelValues("concentration").Add(float64(len(winters)))
	if err := p.adopt(ds, conc, regridder); err != nil {
		return nil, nil, err
	}

	mask, maskGrid, err := p.src.Regions.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if maskGrid.Nx() != ds.Grid.Nx() || maskGrid.Ny() != ds.Grid.Ny() {
		return nil, nil, &domain.ShapeMismatchError{Field: "region_mask", Got: maskGrid.Shape(), Want: ds.Grid.Shape()}
	}
	if err := ds.SetRegionMask(mask); err != nil {
		return nil, nil, err
	}
	p.logger.Info("region mask attached")

	return ds, regridder, nil
}

// align brings the off-grid sources onto the target grid and merges their
// fields in. The model record is also written out in full as its own
// container before being cut down to the study winters.
func (p *Pipeline) align(ctx context.Context, ds *domain.Dataset, regridder *domain.Regridder, winters []time.Time) error {
	start := time.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues("regrid").Observe(time.Since(start).Seconds()) }()

	rean, err := p.src.Reanalysis.Load(ctx, winters)
	if err != nil {
		return err
	}
	p.metrics.MonthsLoaded.WithLabelValues("reanalysis").Add(float64(len(winters)))
	if err := p.adopt(ds, rean, regridder); err != nil {
		return err
	}

	model, err := p.src.ModelThickness.Load(ctx, p.opts.ModelStartYear, p.opts.EndYear)
	if err != nil {
		return err
	}
	p.metrics.MonthsLoaded.WithLabelValues("model").Add(float64(len(model.Time)))
	aligned := domain.NewDataset(ds.Grid, model.Time)
	aligned.Attrs = model.Attrs.Copy()
	aligned.Region = ds.Region
	for _, f := range model.Fields() {
		rf, err := regridder.Regrid(f, model.Grid)
		if err != nil {
			return err
		}
		p.metrics.FieldsRegridded.Inc()
		if err := aligned.AddField(rf); err != nil {
			return err
		}
	}
	aligned.StampProvenance("PIOMAS mean monthly ice thickness regridded to the ICESat-2 grid")
	if err := p.writer.Write(p.opts.ModelOutPath, aligned); err != nil {
		return err
	}
	p.metrics.FieldsWritten.Add(float64(len(aligned.FieldNames())))
	p.logger.Info("model thickness container written",
		"path", p.opts.ModelOutPath, "months", len(aligned.Time))

	wintersOnly, err := aligned.SelectMonths(winters)
	if err != nil {
		return err
	}
	for _, f := range wintersOnly.Fields() {
		if err := ds.AddField(f); err != nil {
			return err
		}
	}

	drift, err := p.src.Drift.Load(ctx, winters)
	if err != nil {
		return err
	}
	p.metrics.MonthsLoaded.WithLabelValues("drift").Add(float64(len(winters)))
	return p.adopt(ds, drift, regridder)
}

// adopt merges src's fields into ds, regridding them first unless src
// already sits on the target grid.
func (p *Pipeline) adopt(ds *domain.Dataset, src *domain.Dataset, regridder *domain.Regridder) error {
	onTarget := src.Grid.Nx() == ds.Grid.Nx() && src.Grid.Ny() == ds.Grid.Ny()
	for _, f := range src.Fields() {
		if !onTarget {
			rf, err := regridder.Regrid(f, src.Grid)
			if err != nil {
				return err
			}
			p.metrics.FieldsRegridded.Inc()
			f = rf
		}
		if err := ds.AddField(f); err != nil {
			return err
		}
		p.logger.Debug("field merged", "name", f.Name, "regridded", !onTarget)
	}
	return nil
}

// fill derives the gap-filled companion of every altimetry field.
func (p *Pipeline) fill(ds *domain.Dataset) error {
	start := time.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues("fill").Observe(time.Since(start).Seconds()) }()

	conc, ok := ds.Field("seaice_conc_monthly_cdr")
	if !ok {
		return errors.New("concentration field missing from merged dataset")
	}

	for _, name := range domain.AltimetryVariables {
		f, ok := ds.Field(name)
		if !ok {
			return fmt.Errorf("altimetry field %s missing from merged dataset", name)
		}
		opts := domain.DefaultFillOptions()
		opts.ZeroBelowConcentration = name == "ice_thickness"

		missing := countNaN(f)
		filled, err := domain.FillMissing(f, conc, ds.Region, ds.Grid, opts)
		if err != nil {
			return err
		}
		if err := ds.AddField(filled); err != nil {
			return err
		}
		n := missing - countNaN(filled)
		p.metrics.CellsFilled.Add(float64(n))
		p.logger.Info("field gap-filled", "name", filled.Name, "cells", n)
	}
	return nil
}

// write stamps provenance and serializes the merged container.
func (p *Pipeline) write(ds *domain.Dataset) error {
	start := time.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues("write").Observe(time.Since(start).Seconds()) }()

	ds.StampProvenance("sea ice data monthly merged dataset for the ICESat-2 period")
	if err := p.writer.Write(p.opts.MergedPath, ds); err != nil {
		return err
	}
	p.metrics.FieldsWritten.Add(float64(len(ds.FieldNames())))
	return nil
}

func countNaN(f *domain.Field) int {
	n := 0
	for _, v := range f.Data.Elements {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
