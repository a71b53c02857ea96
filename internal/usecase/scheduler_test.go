package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain"
)

type fakeDriver struct {
	specs   map[string]string
	jobs    map[string]func(context.Context)
	started bool
	stopped bool
}

func (d *fakeDriver) Schedule(name, spec string, job func(ctx context.Context)) error {
	if d.specs == nil {
		d.specs = map[string]string{}
		d.jobs = map[string]func(context.Context){}
	}
	d.specs[name] = spec
	d.jobs[name] = job
	return nil
}

func (d *fakeDriver) Start(context.Context) error { d.started = true; return nil }
func (d *fakeDriver) Stop(context.Context) error  { d.stopped = true; return nil }

func TestSchedulerRegistersJobs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newStore(t)
	insertArticle(t, store, "https://n.test/ancient", "Fed", testNow.AddDate(0, 0, -60))

	driver := &fakeDriver{}
	sched := NewScheduler(SchedulerDeps{
		Driver: driver,
		Pipeline: NewPipeline(PipelineDeps{
			Collector:    NewCollector(CollectorDeps{Store: store, Source: &stubSource{}, Now: fixedClock}),
			Consolidator: NewConsolidator(ConsolidatorDeps{Store: store, Now: fixedClock}),
			Briefing:     NewBriefingGenerator(BriefingDeps{Store: store, Now: fixedClock}),
			Now:          fixedClock,
		}),
		Cleaner: NewCleaner(store, nil, fixedClock),
		Sessions: []SessionJob{
			{Session: domain.SessionMorning, Spec: "30 7 * * *"},
			{Session: domain.SessionEvening, Spec: "0 18 * * *"},
		},
		CleanupSpec:   "0 3 * * *",
		RetentionDays: 30,
	})

	require.NoError(t, sched.Start(ctx))
	assert.True(t, driver.started)
	assert.Equal(t, map[string]string{
		"morning_pipeline":  "30 7 * * *",
		"evening_pipeline":  "0 18 * * *",
		"retention_cleanup": "0 3 * * *",
	}, driver.specs)

	driver.jobs["retention_cleanup"](ctx)
	backlog, err := store.UnprocessedArticles(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, backlog)

	driver.jobs["morning_pipeline"](ctx)

	require.NoError(t, sched.Stop(ctx))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()
	sched := NewScheduler(SchedulerDeps{})
	assert.NoError(t, sched.Start(context.Background()))
	assert.NoError(t, sched.Stop(context.Background()))
}
