package employee_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/apitest"
	"github.com/frahmantamala/employee-portal/internal/employee"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEmployeeService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Employee Service Suite")
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var _ = Describe("Employee Service", func() {
	var (
		ctx     context.Context
		srv     *apitest.Server
		service *employee.Service
	)

	roster := []map[string]interface{}{
		{"userCode": "E1", "username": "alice", "active": true},
		{"userCode": "E2", "username": "bob", "active": true},
	}

	BeforeEach(func() {
		ctx = context.Background()
		srv = apitest.New()
		DeferCleanup(srv.Close)
		client := apiclient.NewClient(apiclient.Config{Endpoint: srv.Endpoint(), Timeout: 2 * time.Second}, testLogger)
		client.SetTokenSource(staticToken("tok"))
		service = employee.NewService(client, testLogger)
	})

	AfterEach(func() {
		Expect(srv.Violations()).To(BeEmpty())
	})

	Describe("List", func() {
		It("caches the roster", func() {
			srv.Handle(http.MethodGet, "/employee", srv.JSON(http.StatusOK, roster))

			employees, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(employees).To(HaveLen(2))
			Expect(service.Records().Items()[1].Username).To(Equal("bob"))
		})

		It("accepts numeric user codes", func() {
			srv.Handle(http.MethodGet, "/employee", srv.JSON(http.StatusOK, []map[string]interface{}{{"userCode": 42, "username": "n"}}))

			employees, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(employees[0].UserCode).To(Equal(internal.Code("42")))
		})

		It("treats a null body as an empty roster", func() {
			srv.Handle(http.MethodGet, "/employee", srv.JSON(http.StatusOK, nil))

			employees, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(employees).To(BeEmpty())
		})

		It("keeps the previous roster when a reload fails", func() {
			var fail atomic.Bool
			srv.Handle(http.MethodGet, "/employee", func(w http.ResponseWriter, r *http.Request) {
				if fail.Load() {
					srv.Error(http.StatusInternalServerError, "db unavailable")(w, r)
					return
				}
				srv.JSON(http.StatusOK, roster)(w, r)
			})
			_, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())

			fail.Store(true)
			_, err = service.List(ctx)
			Expect(err).To(MatchError("db unavailable"))
			Expect(service.Records().Err()).To(Equal("db unavailable"))
			Expect(service.Records().Items()).To(HaveLen(2))

			fail.Store(false)
			_, err = service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Records().Err()).To(BeEmpty())
		})
	})

	Describe("Get", func() {
		It("fills the selected employee", func() {
			srv.Handle(http.MethodGet, "/employee/{userCode}", srv.JSON(http.StatusOK, roster[0]))

			e, err := service.Get(ctx, "E1")
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Username).To(Equal("alice"))

			sel, ok := service.Records().Selected()
			Expect(ok).To(BeTrue())
			Expect(sel.UserCode).To(Equal(internal.Code("E1")))
			Expect(srv.Requests(http.MethodGet, "/employee/{userCode}")[0].Path).To(Equal("/api/employee/E1"))
		})
	})

	Describe("Create", func() {
		It("posts the employee and reloads the roster", func() {
			srv.Handle(http.MethodPost, "/employee", srv.JSON(http.StatusCreated, map[string]interface{}{"userCode": "E3", "username": "carol", "active": true}))
			srv.Handle(http.MethodGet, "/employee", srv.JSON(http.StatusOK, append(roster, map[string]interface{}{"userCode": "E3", "username": "carol"})))

			created, err := service.Create(ctx, employee.CreateEmployeeDTO{Username: "carol", Password: "pw", RoleID: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.UserCode).To(Equal(internal.Code("E3")))
			Expect(srv.Calls(http.MethodGet, "/employee")).To(Equal(1))
			Expect(service.Records().Items()).To(HaveLen(3))
		})

		It("still reports success when the reload fails", func() {
			srv.Handle(http.MethodPost, "/employee", srv.JSON(http.StatusCreated, map[string]interface{}{"userCode": "E3"}))
			srv.Handle(http.MethodGet, "/employee", srv.Error(http.StatusBadGateway, "upstream"))

			_, err := service.Create(ctx, employee.CreateEmployeeDTO{Username: "carol", Password: "pw"})
			Expect(err).NotTo(HaveOccurred())
			Expect(service.Records().Err()).To(Equal("upstream"))
		})

		It("validates before calling the API", func() {
			_, err := service.Create(ctx, employee.CreateEmployeeDTO{Username: "carol"})
			Expect(err).To(MatchError("password is required"))
			Expect(srv.Calls(http.MethodPost, "/employee")).To(Equal(0))
		})

		It("records server rejections", func() {
			srv.Handle(http.MethodPost, "/employee", srv.Error(http.StatusBadRequest, "username taken"))

			_, err := service.Create(ctx, employee.CreateEmployeeDTO{Username: "alice", Password: "pw"})
			Expect(err).To(MatchError("username taken"))
			Expect(service.Records().Err()).To(Equal("username taken"))
		})
	})

	Describe("UpdateStatus", func() {
		BeforeEach(func() {
			srv.Handle(http.MethodGet, "/employee", srv.JSON(http.StatusOK, roster))
			_, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("changes only the active flag of the named employee", func() {
			srv.Handle(http.MethodPut, "/employee/{userCode}/status", srv.JSON(http.StatusOK, map[string]string{"message": "ok"}))

			Expect(service.UpdateStatus(ctx, "E1", false)).To(Succeed())

			items := service.Records().Items()
			Expect(items[0]).To(Equal(employee.Employee{UserCode: "E1", Username: "alice", Active: false}))
			Expect(items[1]).To(Equal(employee.Employee{UserCode: "E2", Username: "bob", Active: true}))

			var body map[string]interface{}
			Expect(srv.Requests(http.MethodPut, "/employee/{userCode}/status")[0].JSONBody(&body)).To(Succeed())
			Expect(body).To(Equal(map[string]interface{}{"active": false}))
		})

		It("leaves the roster alone when the server refuses", func() {
			srv.Handle(http.MethodPut, "/employee/{userCode}/status", srv.Error(http.StatusForbidden, "admins only"))

			Expect(service.UpdateStatus(ctx, "E1", false)).To(MatchError("admins only"))
			e1, _ := service.Records().Find("E1")
			Expect(e1.Active).To(BeTrue())
		})
	})

	Describe("UploadAvatar", func() {
		It("sends the file as the avatar field", func() {
			var received string
			srv.Handle(http.MethodPost, "/employee/{userCode}/avatar", func(w http.ResponseWriter, r *http.Request) {
				if f, _, err := r.FormFile("avatar"); err == nil {
					b, _ := io.ReadAll(f)
					received = string(b)
				}
				srv.JSON(http.StatusOK, map[string]string{"message": "uploaded"})(w, r)
			})

			Expect(service.UploadAvatar(ctx, "E1", "me.png", strings.NewReader("img"))).To(Succeed())
			Expect(received).To(Equal("img"))
		})

		It("requires a file", func() {
			Expect(service.UploadAvatar(ctx, "E1", "me.png", nil)).To(MatchError("avatar is required"))
			Expect(service.UploadAvatar(ctx, "E1", "", strings.NewReader("x"))).To(MatchError("filename is required"))
			err := service.UploadAvatar(ctx, "E1", "  ", strings.NewReader("x"))
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
			Expect(srv.Calls(http.MethodPost, "/employee/{userCode}/avatar")).To(Equal(0))
		})
	})
})
