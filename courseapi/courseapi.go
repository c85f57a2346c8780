package courseapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/catalog"
	"github.com/openlearn/course-publish-server/completion"
	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/courseapi/apiconfig"
	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/publish"
	"github.com/openlearn/course-publish-server/uploader"
)

const CName = "courseapi"

var log = logger.NewNamed(CName)

func New() CourseApi {
	return new(courseApi)
}

type CourseApi interface {
	Handler() http.Handler
	app.ComponentRunnable
}

type courseApi struct {
	router      chi.Router
	server      *http.Server
	config      apiconfig.Config
	publish     publish.Service
	catalog     catalog.Catalog
	content     contentstore.ContentStore
	uploader    uploader.AssetUploader
	completions completion.Repo
}

func (c *courseApi) Name() (name string) {
	return CName
}

func (c *courseApi) Init(a *app.App) (err error) {
	c.publish = a.MustComponent(publish.CName).(publish.Service)
	c.catalog = a.MustComponent(catalog.CName).(catalog.Catalog)
	c.content = a.MustComponent(contentstore.CName).(contentstore.ContentStore)
	c.uploader = a.MustComponent(uploader.CName).(uploader.AssetUploader)
	c.completions = a.MustComponent(completion.CName).(completion.Repo)
	c.config = a.MustComponent("config").(apiconfig.ConfigGetter).GetApi()
	if c.config.LookupUpperBound <= 0 {
		c.config.LookupUpperBound = 100
	}
	if c.config.MaxUploadMb <= 0 {
		c.config.MaxUploadMb = 32
	}
	if c.config.DefaultActor == "" {
		c.config.DefaultActor = "author@example.com"
	}

	c.router = chi.NewRouter()
	c.router.Use(middleware.RequestID)
	c.router.Use(middleware.Recoverer)
	publish.NewHTTPHandler(c.publish, c.config.LookupUpperBound).Mount(c.router)
	c.router.Get("/api/courses", c.courseListHandler)
	c.router.Get("/api/courses/{courseKey}", c.courseHandler)
	c.router.Get("/api/courses/{courseKey}/completions", c.completionListHandler)
	c.router.Post("/api/courses/{courseKey}/completions", c.completionCreateHandler)
	c.router.Post("/api/blocks/{usageKey}/assets/{fileType}", c.uploadHandler)
	c.server = &http.Server{Addr: c.config.Addr, Handler: c.router}
	return
}

func (c *courseApi) Handler() http.Handler {
	return c.router
}

func (c *courseApi) Run(ctx context.Context) (err error) {
	var errCh = make(chan error)
	go func() {
		errCh <- c.server.ListenAndServe()
	}()
	select {
	case err = <-errCh:
		return err
	case <-time.After(200 * time.Millisecond):
		log.Info("course api server started", zap.String("addr", c.config.Addr))
		return
	}
}

func (c *courseApi) courseHandler(w http.ResponseWriter, r *http.Request) {
	key, err := domain.ParseCourseKey(pathParam(r, "courseKey"))
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	summary, err := c.catalog.Course(r.Context(), key)
	if err != nil {
		if errors.Is(err, catalog.ErrCourseNotFound) {
			writeErr(w, r, http.StatusNotFound, err)
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	render.JSON(w, r, summary)
}

func (c *courseApi) courseListHandler(w http.ResponseWriter, r *http.Request) {
	courses, err := c.catalog.List(r.Context(), r.URL.Query().Get("org"))
	if err != nil {
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, courses)
}

func (c *courseApi) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usageKey, err := domain.ParseUsageKey(pathParam(r, "usageKey"))
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	if usageKey.Course.Deprecated || usageKey.Course.Run == "" {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("%w: usage key without course run", domain.ErrInvalidKey))
		return
	}
	fileType, err := domain.ParseFileType(chi.URLParam(r, "fileType"))
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	field := r.URL.Query().Get("field")
	if field == "" {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("field parameter is required"))
		return
	}
	if err = r.ParseMultipartForm(c.config.MaxUploadMb << 20); err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	defer file.Close()

	node, err := c.content.GetItem(ctx, usageKey)
	if err != nil {
		if errors.Is(err, contentstore.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, err)
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	if node.Buffer == nil {
		node.Buffer = domain.UploadBuffer{}
	}
	res, err := c.uploader.Upload(ctx, uploader.UploadRequest{
		FieldName: field,
		FileType:  fileType,
		Name:      header.Filename,
		Owner:     node.Location,
		Data:      file,
		Size:      header.Size,
	}, node.Buffer)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownFileType) {
			writeErr(w, r, http.StatusBadRequest, err)
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	// the stored buffer keeps pointing at the replaced asset until this succeeds
	if _, err = c.content.UpdateItem(ctx, node, c.actor(r), false); err != nil {
		log.Error("can't save upload buffer", zap.String("key", node.Id), zap.Error(err))
		c.uploader.Discard(ctx, node.Location, res.Url)
		if errors.Is(err, contentstore.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, err)
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	c.uploader.Discard(ctx, node.Location, res.Replaced)
	render.JSON(w, r, map[string]string{"url": res.Url})
}

func (c *courseApi) actor(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return c.config.DefaultActor
}

// pathParam returns the unescaped url param, legacy keys arrive with escaped slashes.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func writeErr(w http.ResponseWriter, r *http.Request, status int, err error) {
	type errResp struct {
		Error string `json:"error"`
	}
	render.Status(r, status)
	render.JSON(w, r, errResp{Error: err.Error()})
}

func (c *courseApi) Close(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}
