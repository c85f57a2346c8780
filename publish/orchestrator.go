package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/uploader"
)

var ErrCycle = errors.New("node is already visited")

type nodeStore interface {
	GetItem(ctx context.Context, key domain.UsageKey) (*domain.Node, error)
	GetCourse(ctx context.Context, key domain.CourseKey) (*domain.Node, error)
	UpdateItem(ctx context.Context, node *domain.Node, actor string, isPublish bool) (*domain.Node, error)
	Publish(ctx context.Context, key domain.UsageKey, actor string) error
}

type bufferSwapper interface {
	SwapBuffer(ctx context.Context, node *domain.Node) uploader.SwapResult
}

// orchestrator republishes a course tree depth-first, children before their
// parent and siblings in stored order. It is single-threaded.
type orchestrator struct {
	content nodeStore
	swapper bufferSwapper
	actor   string
}

type traversal struct {
	course  domain.CourseKey
	visited map[string]struct{}
	report  *domain.PublishReport
}

func (o *orchestrator) run(ctx context.Context, courseId string) (report domain.PublishReport, err error) {
	report.CourseKey = courseId
	report.StartedAt = time.Now().Unix()
	defer func() {
		report.FinishedAt = time.Now().Unix()
		if err != nil {
			report.Error = err.Error()
		}
	}()

	key, err := domain.ParseCourseKey(courseId)
	if err != nil {
		return
	}
	report.CourseKey = key.Canonical().String()

	root, err := o.content.GetCourse(ctx, key)
	if err != nil {
		err = fmt.Errorf("load course: %w", err)
		return
	}
	if !root.HasChildren() {
		log.Info("course has no children, nothing to publish", zap.String("course", report.CourseKey))
		return
	}

	tr := &traversal{
		course:  key.Canonical(),
		visited: map[string]struct{}{root.Id: {}},
		report:  &report,
	}
	for _, child := range root.Children {
		o.visit(ctx, tr, child)
	}

	if err = o.content.Publish(ctx, root.Location, o.actor); err != nil {
		err = fmt.Errorf("publish course root: %w", err)
		return
	}
	report.RootPublished = true
	log.Info("publish completed",
		zap.String("course", report.CourseKey),
		zap.Int("republished", len(report.Republished())),
		zap.Int("skipped", len(report.Filter(domain.NodeStateSkipped))),
		zap.Int("failed", len(report.Filter(domain.NodeStateFailed))),
	)
	return
}

func (o *orchestrator) visit(ctx context.Context, tr *traversal, childId string) {
	res := domain.NodeResult{Key: childId, State: domain.NodeStateUnvisited}
	defer func() {
		tr.report.Nodes = append(tr.report.Nodes, res)
	}()

	loc, err := domain.ParseUsageKey(childId)
	if err != nil {
		o.skip(&res, err)
		return
	}
	if loc.Course.Deprecated || loc.Course.Run == "" {
		loc = loc.MapIntoCourse(tr.course)
	}
	node, err := o.content.GetItem(ctx, loc)
	if err != nil {
		o.skip(&res, err)
		return
	}
	res.Key = node.Id
	if _, seen := tr.visited[node.Id]; seen {
		o.skip(&res, ErrCycle)
		return
	}
	tr.visited[node.Id] = struct{}{}
	log.Debug("visiting node", zap.String("key", node.Id), zap.Int("children", len(node.Children)))

	for _, grandChild := range node.Children {
		o.visit(ctx, tr, grandChild)
	}
	res.State = domain.NodeStateVisitedChildren

	swap := o.swapper.SwapBuffer(ctx, node)
	res.Swapped = swap.Swapped
	for _, serr := range swap.Errors {
		res.Errors = append(res.Errors, serr.Error())
	}
	res.State = domain.NodeStateSwappedUrls

	if node, err = o.content.UpdateItem(ctx, node, o.actor, true); err != nil {
		o.fail(&res, "can't update node", err)
		return
	}
	if err = o.content.Publish(ctx, node.Location, o.actor); err != nil {
		o.fail(&res, "can't publish node", err)
		return
	}
	res.State = domain.NodeStateRepublished
	log.Info("node published", zap.String("key", res.Key), zap.Int("swapped", len(res.Swapped)))
}

func (o *orchestrator) skip(res *domain.NodeResult, err error) {
	res.State = domain.NodeStateSkipped
	res.Errors = append(res.Errors, err.Error())
	if errors.Is(err, contentstore.ErrNotFound) {
		log.Warn("node not found, skipped", zap.String("key", res.Key))
	} else {
		log.Warn("node skipped", zap.String("key", res.Key), zap.Error(err))
	}
}

func (o *orchestrator) fail(res *domain.NodeResult, msg string, err error) {
	res.State = domain.NodeStateFailed
	res.Errors = append(res.Errors, err.Error())
	log.Error(msg, zap.String("key", res.Key), zap.Error(err))
}
