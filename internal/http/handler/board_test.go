package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"vibecoder.app/console/internal/http/handler"
	"vibecoder.app/console/internal/model"
	"vibecoder.app/console/internal/store"
)

var _ = Describe("BoardHandler", func() {
	var (
		router *gin.Engine
		boards *mockBoardStore
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		boards = &mockBoardStore{}
		h := handler.NewBoardHandler(boards)
		router.GET("/boards/:thread_id", h.Get)
		router.PUT("/boards/:thread_id", h.Put)
		router.DELETE("/boards/:thread_id", h.Delete)
	})

	serve := func(method, path string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Get", func() {
		It("returns the board", func() {
			boards.getFn = func(_ context.Context, thread model.ThreadID) (model.BoardDocument, error) {
				Expect(thread.String()).To(Equal("web-client-1"))
				return model.BoardDocument{
					Revision: 4,
					Snapshot: &model.BoardSnapshot{Phase: "Build", Status: "Writing API", Tasks: []string{"schema"}},
				}, nil
			}

			w := serve(http.MethodGet, "/boards/web-client-1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["thread_id"]).To(Equal("web-client-1"))
			Expect(resp["revision"]).To(BeNumerically("==", 4))
			Expect(resp["phase"]).To(Equal("Build"))
			Expect(resp["tasks"]).To(ConsistOf("schema"))
		})

		It("returns 404 when the thread has no board", func() {
			boards.getFn = func(context.Context, model.ThreadID) (model.BoardDocument, error) {
				return model.AbsentBoard(0), store.ErrNotFound
			}

			w := serve(http.MethodGet, "/boards/web-client-1", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 500 when the store fails", func() {
			boards.getFn = func(context.Context, model.ThreadID) (model.BoardDocument, error) {
				return model.BoardDocument{}, errors.New("boom")
			}

			w := serve(http.MethodGet, "/boards/web-client-1", nil)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})

		It("rejects a blank thread id", func() {
			w := serve(http.MethodGet, "/boards/%20", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Put", func() {
		It("writes the snapshot and returns the new revision", func() {
			var got model.BoardSnapshot
			boards.putFn = func(_ context.Context, _ model.ThreadID, s model.BoardSnapshot) (int64, error) {
				got = s
				return 7, nil
			}

			body, _ := json.Marshal(map[string]any{
				"phase":  "Test",
				"status": "Running suite",
				"tasks":  []string{"unit", "e2e"},
			})
			w := serve(http.MethodPut, "/boards/web-client-1", body)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got).To(Equal(model.BoardSnapshot{Phase: "Test", Status: "Running suite", Tasks: []string{"unit", "e2e"}}))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["revision"]).To(BeNumerically("==", 7))
		})

		It("returns 400 on invalid request body", func() {
			w := serve(http.MethodPut, "/boards/web-client-1", []byte(`{`))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for blank tasks", func() {
			w := serve(http.MethodPut, "/boards/web-client-1", []byte(`{"tasks":["ok",""]}`))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error"]).To(Equal("invalid request: body must be a board with non-empty tasks"))
			Expect(w.Body.String()).NotTo(ContainSubstring("Key:"))
		})

		It("returns 500 when the store fails", func() {
			boards.putFn = func(context.Context, model.ThreadID, model.BoardSnapshot) (int64, error) {
				return 0, errors.New("boom")
			}

			w := serve(http.MethodPut, "/boards/web-client-1", []byte(`{"phase":"Build"}`))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Delete", func() {
		It("returns the revision of the deletion", func() {
			boards.deleteFn = func(context.Context, model.ThreadID) (int64, error) {
				return 3, nil
			}

			w := serve(http.MethodDelete, "/boards/web-client-1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 404 for a missing board", func() {
			boards.deleteFn = func(context.Context, model.ThreadID) (int64, error) {
				return 0, store.ErrNotFound
			}

			w := serve(http.MethodDelete, "/boards/web-client-1", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
