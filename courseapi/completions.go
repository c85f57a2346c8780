package courseapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/openlearn/course-publish-server/completion"
	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/publish"
)

var errCourseNotFound = errors.New("course not found")

type completionList struct {
	Count   int                 `json:"count"`
	Results []domain.Completion `json:"results"`
}

type completionRequest struct {
	ContentId string `json:"content_id"`
	UserId    int64  `json:"user_id"`
	Stage     string `json:"stage"`
}

func (c *courseApi) completionListHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course, ok := c.courseFromPath(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	userIds, err := parseIds(query.Get("user_id"), c.config.LookupUpperBound)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid user_id parameter value: %w", err))
		return
	}
	filter := completion.Filter{
		CourseKey: course.String(),
		UserIds:   userIds,
		Stage:     query.Get("stage"),
	}
	if contentId := query.Get("content_id"); contentId != "" {
		if filter.ContentId, ok = c.contentFromCourse(w, r, course, contentId); !ok {
			return
		}
	}
	list, err := c.completions.List(ctx, filter)
	if err != nil {
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, completionList{Count: len(list), Results: list})
}

func (c *courseApi) completionCreateHandler(w http.ResponseWriter, r *http.Request) {
	course, ok := c.courseFromPath(w, r)
	if !ok {
		return
	}
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserId <= 0 || req.ContentId == "" {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("user_id and content_id are required"))
		return
	}
	contentId, ok := c.contentFromCourse(w, r, course, req.ContentId)
	if !ok {
		return
	}
	created, err := c.completions.Create(r.Context(), domain.Completion{
		UserId:    req.UserId,
		CourseKey: course.String(),
		ContentId: contentId,
		Stage:     req.Stage,
	})
	if err != nil {
		if errors.Is(err, completion.ErrDuplicate) {
			writeErr(w, r, http.StatusConflict, err)
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

// courseFromPath resolves the course of the url to its canonical key and
// writes the error response when it is invalid or unknown.
func (c *courseApi) courseFromPath(w http.ResponseWriter, r *http.Request) (domain.CourseKey, bool) {
	key, err := domain.ParseCourseKey(pathParam(r, "courseKey"))
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return key, false
	}
	key = key.Canonical()
	exists, err := c.catalog.CourseExists(r.Context(), key.String())
	if err != nil {
		writeErr(w, r, http.StatusInternalServerError, err)
		return key, false
	}
	if !exists {
		writeErr(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", errCourseNotFound, key))
		return key, false
	}
	return key, true
}

// contentFromCourse returns the canonical id of a node of the course.
func (c *courseApi) contentFromCourse(w http.ResponseWriter, r *http.Request, course domain.CourseKey, contentId string) (string, bool) {
	key, err := resolveContent(r.Context(), c.content, course, contentId)
	switch {
	case err == nil:
		return key.String(), true
	case errors.Is(err, domain.ErrInvalidKey):
		writeErr(w, r, http.StatusBadRequest, err)
	case errors.Is(err, contentstore.ErrNotFound):
		writeErr(w, r, http.StatusNotFound, err)
	default:
		writeErr(w, r, http.StatusInternalServerError, err)
	}
	return "", false
}

func resolveContent(ctx context.Context, content contentstore.ContentStore, course domain.CourseKey, contentId string) (domain.UsageKey, error) {
	key, err := domain.ParseUsageKey(contentId)
	if err != nil {
		return key, err
	}
	if key.Course.Deprecated || key.Course.Run == "" {
		key = key.MapIntoCourse(course)
	}
	if key.Course != course {
		return key, fmt.Errorf("%w: %s is not part of %s", contentstore.ErrNotFound, contentId, course)
	}
	if _, err = content.GetItem(ctx, key); err != nil {
		return key, err
	}
	return key, nil
}

func parseIds(value string, upperBound int) ([]int64, error) {
	var ids []int64
	for _, v := range publish.ListParam(value, upperBound) {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
