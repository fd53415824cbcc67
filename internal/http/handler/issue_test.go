package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"civicpulse.app/sla/internal/http/handler"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/policy"
	"civicpulse.app/sla/internal/service"
	"civicpulse.app/sla/internal/sla"
	"civicpulse.app/sla/internal/store"
)

var _ = Describe("IssueHandler", func() {
	var (
		router  *gin.Engine
		svc     *mockIssueService
		created time.Time
	)

	BeforeEach(func() {
		router = gin.New()
		svc = &mockIssueService{}
		h := handler.NewIssueHandler(svc)
		router.POST("/issues", h.Register)
		router.GET("/issues/:id/sla", h.GetSLA)
		router.PATCH("/issues/:id/status", h.TransitionStatus)
		created = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Register", func() {
		It("returns 201 with the computed deadline", func() {
			var got service.RegisterIssueParams
			svc.registerFn = func(_ context.Context, p service.RegisterIssueParams) (*service.RegisteredIssue, error) {
				got = p
				deadline := p.CreatedAt.Add(72 * time.Hour)
				return &service.RegisteredIssue{
					Issue: model.IssueSLARecord{
						ID: "42", Category: p.Category, Priority: p.Priority, AreaID: p.AreaID,
						Status: model.StatusPending, CreatedAt: p.CreatedAt, SLADeadline: &deadline,
					},
					Resolution: policy.Resolution{Deadline: deadline, TargetHours: 72, EscalationHours: 24, Source: policy.SourceDefaultTable},
				}, nil
			}

			w := do(http.MethodPost, "/issues",
				`{"category":"pothole","priority":"medium","area_id":"ward-3","created_at":"2024-03-01T09:00:00Z"}`)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(got.Category).To(Equal(model.CategoryPothole))
			Expect(got.Priority).To(Equal(model.PriorityMedium))
			Expect(got.CreatedAt.Equal(created)).To(BeTrue())

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["target_hours"]).To(BeNumerically("==", 72))
			Expect(resp["source"]).To(Equal("default_table"))
			issue := resp["issue"].(map[string]any)
			Expect(issue["sla_deadline"]).To(Equal("2024-03-04T09:00:00Z"))
		})

		It("returns 400 when required fields are missing", func() {
			w := do(http.MethodPost, "/issues", `{"category":"pothole"}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for unknown enum values", func() {
			svc.registerFn = func(_ context.Context, p service.RegisterIssueParams) (*service.RegisteredIssue, error) {
				return nil, fmt.Errorf("%w: unknown category %q", service.ErrInvalidInput, p.Category)
			}
			w := do(http.MethodPost, "/issues", `{"category":"graffiti","priority":"low","area_id":"a"}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when created_at is in the future", func() {
			svc.registerFn = func(_ context.Context, p service.RegisterIssueParams) (*service.RegisteredIssue, error) {
				return nil, fmt.Errorf("%w: created_at %s is in the future", service.ErrInvalidInput, p.CreatedAt.Format(time.RFC3339))
			}
			w := do(http.MethodPost, "/issues",
				`{"category":"pothole","priority":"low","area_id":"a","created_at":"2999-01-01T00:00:00Z"}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("in the future"))
		})

		It("returns 409 when the id is taken", func() {
			svc.registerFn = func(context.Context, service.RegisterIssueParams) (*service.RegisteredIssue, error) {
				return nil, fmt.Errorf("registering issue: %w", store.ErrConflict)
			}
			w := do(http.MethodPost, "/issues", `{"id":"1","category":"pothole","priority":"low","area_id":"a"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("returns 500 when the service fails", func() {
			svc.registerFn = func(context.Context, service.RegisterIssueParams) (*service.RegisteredIssue, error) {
				return nil, errors.New("boom")
			}
			w := do(http.MethodPost, "/issues", `{"category":"pothole","priority":"low","area_id":"a"}`)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GetSLA", func() {
		It("returns the issue with its live status", func() {
			svc.getFn = func(_ context.Context, id string) (*service.IssueSLA, error) {
				deadline := created.Add(24 * time.Hour)
				return &service.IssueSLA{
					Issue:           model.IssueSLARecord{ID: id, Status: model.StatusPending, CreatedAt: created, SLADeadline: &deadline},
					SLA:             &sla.Assessment{Status: sla.StatusWarning, Deadline: deadline, HoursRemaining: 10},
					EscalationHours: 12,
				}, nil
			}

			w := do(http.MethodGet, "/issues/7/sla", "")

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["sla"].(map[string]any)["status"]).To(Equal("warning"))
			Expect(resp["issue"].(map[string]any)["id"]).To(Equal("7"))
		})

		It("returns 404 for an unknown issue", func() {
			svc.getFn = func(context.Context, string) (*service.IssueSLA, error) {
				return nil, fmt.Errorf("getting issue: %w", store.ErrNotFound)
			}
			w := do(http.MethodGet, "/issues/missing/sla", "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("TransitionStatus", func() {
		It("passes the requested status through", func() {
			var to model.Status
			svc.transitionFn = func(_ context.Context, id string, s model.Status) (*model.IssueSLARecord, error) {
				to = s
				return &model.IssueSLARecord{ID: id, Status: s, CreatedAt: created}, nil
			}

			w := do(http.MethodPatch, "/issues/7/status", `{"status":"in_progress"}`)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(to).To(Equal(model.StatusInProgress))
		})

		It("returns 422 for a disallowed transition", func() {
			svc.transitionFn = func(context.Context, string, model.Status) (*model.IssueSLARecord, error) {
				return nil, fmt.Errorf("%w: closed -> pending", service.ErrInvalidTransition)
			}
			w := do(http.MethodPatch, "/issues/7/status", `{"status":"pending"}`)
			Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("returns 409 when the status changed underneath", func() {
			svc.transitionFn = func(context.Context, string, model.Status) (*model.IssueSLARecord, error) {
				return nil, fmt.Errorf("%w: expected pending", service.ErrStaleStatus)
			}
			w := do(http.MethodPatch, "/issues/7/status", `{"status":"resolved"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("returns 400 without a status", func() {
			w := do(http.MethodPatch, "/issues/7/status", `{}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
