package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/anyproto/any-sync/util/periodicsync"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/catalog"
	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/publish/reportrepo"
	"github.com/openlearn/course-publish-server/taskqueue"
	"github.com/openlearn/course-publish-server/uploader"
)

const CName = "publish.service"

var log = logger.NewNamed(CName)

func New() Service {
	return new(publishService)
}

type Service interface {
	// OnPrePublish receives the pre-publish signal and queues a republish
	// of the course. The work happens in background. Unknown courses are
	// rejected with contentstore.ErrNotFound.
	OnPrePublish(ctx context.Context, courseKey string) error
	// Publish republishes the course synchronously.
	Publish(ctx context.Context, courseKey string) (domain.PublishReport, error)
	LastReport(ctx context.Context, courseKey string) (domain.PublishReport, error)
	app.ComponentRunnable
}

type publishService struct {
	config  Config
	content contentstore.ContentStore
	orch    *orchestrator
	queue   taskqueue.Queue
	reports reportrepo.ReportRepo
	catalog catalog.Catalog
	ticker  periodicsync.PeriodicSync
}

func (p *publishService) Init(a *app.App) (err error) {
	p.config = a.MustComponent("config").(configGetter).GetPublish()
	if p.config.Actor == "" {
		p.config.Actor = "staff@example.com"
	}
	if p.config.DrainPeriodSeconds <= 0 {
		p.config.DrainPeriodSeconds = 5
	}
	p.content = a.MustComponent(contentstore.CName).(contentstore.ContentStore)
	p.orch = &orchestrator{
		content: p.content,
		swapper: a.MustComponent(uploader.CName).(uploader.AssetUploader),
		actor:   p.config.Actor,
	}
	p.queue = a.MustComponent(taskqueue.CName).(taskqueue.Queue)
	p.reports = a.MustComponent(reportrepo.CName).(reportrepo.ReportRepo)
	p.catalog = a.MustComponent(catalog.CName).(catalog.Catalog)
	p.ticker = periodicsync.NewPeriodicSync(p.config.DrainPeriodSeconds, 0, p.drain, log)
	return
}

func (p *publishService) Name() (name string) {
	return CName
}

func (p *publishService) Run(ctx context.Context) (err error) {
	p.ticker.Run()
	return
}

func (p *publishService) OnPrePublish(ctx context.Context, courseKey string) error {
	key, err := domain.ParseCourseKey(courseKey)
	if err != nil {
		return err
	}
	exists, err := p.content.HasCourse(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: course %s", contentstore.ErrNotFound, courseKey)
	}
	task := taskqueue.NewTask(key.Canonical().String())
	if err = p.queue.Push(ctx, task); err != nil {
		return err
	}
	log.Info("publish queued", zap.String("course", task.CourseKey), zap.String("task", task.Id))
	return nil
}

func (p *publishService) Publish(ctx context.Context, courseKey string) (domain.PublishReport, error) {
	return p.orch.run(ctx, courseKey)
}

func (p *publishService) LastReport(ctx context.Context, courseKey string) (domain.PublishReport, error) {
	key, err := domain.ParseCourseKey(courseKey)
	if err != nil {
		return domain.PublishReport{}, err
	}
	return p.reports.LastForCourse(ctx, key.Canonical().String())
}

// drain runs queued tasks one by one until the queue is empty.
func (p *publishService) drain(ctx context.Context) error {
	for {
		task, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, taskqueue.ErrEmpty) {
				return nil
			}
			return err
		}
		p.process(ctx, task)
	}
}

func (p *publishService) process(ctx context.Context, task taskqueue.Task) {
	report, err := p.Publish(ctx, task.CourseKey)
	if err != nil {
		log.Error("publish task failed", zap.String("task", task.Id), zap.String("course", task.CourseKey), zap.Error(err))
	}
	if key, kerr := domain.ParseCourseKey(task.CourseKey); kerr == nil {
		p.catalog.Invalidate(ctx, key)
	}
	if _, serr := p.reports.Save(ctx, report); serr != nil {
		log.Error("can't save publish report", zap.String("task", task.Id), zap.Error(serr))
	}
}

func (p *publishService) Close(ctx context.Context) (err error) {
	p.ticker.Close()
	return
}
