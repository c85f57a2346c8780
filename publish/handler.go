package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/domain"
	"github.com/openlearn/course-publish-server/publish/reportrepo"
)

// HTTPHandler exposes the pre-publish signal and publish reports.
type HTTPHandler struct {
	s Service
	// lookupUpperBound caps the number of values accepted in list params
	lookupUpperBound int
}

func NewHTTPHandler(s Service, lookupUpperBound int) *HTTPHandler {
	return &HTTPHandler{s: s, lookupUpperBound: lookupUpperBound}
}

func (h *HTTPHandler) Mount(r chi.Router) {
	r.Post("/api/signals/pre-publish", h.PrePublish)
	r.Get("/api/courses/{courseKey}/publish-report", h.Report)
}

type prePublishRequest struct {
	CourseKey string `json:"course_key"`
}

func (h *HTTPHandler) PrePublish(w http.ResponseWriter, r *http.Request) {
	var req prePublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	key, err := domain.ParseCourseKey(req.CourseKey)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	courseKey := key.Canonical().String()
	if err = h.s.OnPrePublish(r.Context(), courseKey); err != nil {
		if errors.Is(err, contentstore.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, err)
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"course_key": courseKey})
}

type reportResponse struct {
	domain.PublishReport
	Nodes []nodeResponse `json:"nodes"`
}

type nodeResponse struct {
	domain.NodeResult
	State string `json:"state"`
}

func (h *HTTPHandler) Report(w http.ResponseWriter, r *http.Request) {
	states, err := parseStates(r.URL.Query().Get("state"), h.lookupUpperBound)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	report, err := h.s.LastReport(r.Context(), pathParam(r, "courseKey"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidKey):
			writeErr(w, r, http.StatusBadRequest, err)
		case errors.Is(err, reportrepo.ErrNotFound):
			writeErr(w, r, http.StatusNotFound, err)
		default:
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	resp := reportResponse{PublishReport: report, Nodes: []nodeResponse{}}
	for _, n := range report.Filter(states...) {
		resp.Nodes = append(resp.Nodes, nodeResponse{NodeResult: n, State: n.State.String()})
	}
	render.JSON(w, r, resp)
}

// ListParam splits a comma separated query value, keeping at most upperBound items.
func ListParam(value string, upperBound int) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var res []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	if upperBound > 0 && len(res) > upperBound {
		res = res[:upperBound]
	}
	return res
}

func parseStates(value string, upperBound int) ([]domain.NodeState, error) {
	var states []domain.NodeState
	for _, s := range ListParam(value, upperBound) {
		state, err := domain.ParseNodeState(s)
		if err != nil {
			return nil, fmt.Errorf("invalid state parameter value: %w", err)
		}
		states = append(states, state)
	}
	return states, nil
}

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
