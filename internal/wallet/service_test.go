package wallet_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/apitest"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/session"
	"github.com/frahmantamala/employee-portal/internal/wallet"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWallet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Wallet Suite")
}

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// MockSessions hands out a fixed user and a real one-at-a-time guard.
type MockSessions struct {
	user       *session.UserRecord
	submitting atomic.Bool
}

func (m *MockSessions) RequireUser() (*session.UserRecord, error) {
	if m.user == nil {
		return nil, internal.NewAuthError(internal.ErrNoSession.Message, internal.ErrCodeNoSession)
	}
	return m.user, nil
}

func (m *MockSessions) BeginSubmit() (func(), error) {
	if !m.submitting.CompareAndSwap(false, true) {
		return nil, internal.NewConflictError(internal.ErrSubmissionInProgress.Message, internal.ErrCodeSubmissionInProgress)
	}
	return func() { m.submitting.Store(false) }, nil
}

var _ = Describe("Wallet Service", func() {
	var (
		ctx      context.Context
		srv      *apitest.Server
		sessions *MockSessions
		service  *wallet.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		srv = apitest.New()
		DeferCleanup(srv.Close)

		client := apiclient.NewClient(apiclient.Config{Endpoint: srv.Endpoint(), Timeout: 5 * time.Second}, testLogger)
		client.SetTokenSource(staticToken("tok"))
		sessions = &MockSessions{user: &session.UserRecord{ID: "E7", Username: "alice", PrivateKey: "0xstored"}}
		service = wallet.NewService(client, sessions, testLogger)

		srv.Handle(http.MethodPost, "/employee/balance", srv.JSON(http.StatusOK, map[string]interface{}{
			"balance": "1.5",
			"address": "0xabc",
		}))
	})

	AfterEach(func() {
		Expect(srv.Violations()).To(BeEmpty())
	})

	Describe("Overview", func() {
		It("loads balance and history together", func() {
			srv.Handle(http.MethodGet, "/employee/{userCode}/logs", srv.JSON(http.StatusOK, map[string]interface{}{
				"logs": []map[string]interface{}{
					{"timestamp": 1704880800, "action": "deposit", "amountEth": "2"},
					{"timestamp": 1704884400, "action": "withdraw", "amountEth": 0.5},
				},
				"bookBalance": 1.5,
				"logCount":    2,
			}))

			ov, err := service.Overview(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ov.Balance.Balance.String()).To(Equal("1.5"))
			Expect(ov.Balance.Address).To(Equal("0xabc"))
			Expect(ov.Logs.Logs).To(HaveLen(2))
			Expect(ov.Logs.Logs[1].SignedAmount().String()).To(Equal("-0.5"))
			Expect(ov.Logs.BookBalance.String()).To(Equal("1.5"))
			Expect(ov.Logs.LogCount).To(Equal(2))
			Expect(srv.Requests(http.MethodGet, "/employee/{userCode}/logs")[0].Path).To(Equal("/api/employee/E7/logs"))
		})

		It("fails when either request fails", func() {
			srv.Handle(http.MethodGet, "/employee/{userCode}/logs", srv.Error(http.StatusInternalServerError, "ledger offline"))

			_, err := service.Overview(ctx)
			Expect(err).To(MatchError("ledger offline"))
		})

		It("requires a session user", func() {
			sessions.user = nil
			_, err := service.Overview(ctx)
			Expect(errors.Is(err, internal.ErrNoSession)).To(BeTrue())
		})

		It("tolerates float noise in amounts computed by the server", func() {
			srv.Handle(http.MethodGet, "/employee/{userCode}/logs", srv.JSON(http.StatusOK, map[string]interface{}{
				"logs": []map[string]interface{}{
					{"timestamp": 1704880800, "action": "deposit", "amountEth": 0.1},
					{"timestamp": 1704884400, "action": "withdraw", "amountEth": 0.1},
				},
				"bookBalance": 5.551115123125783e-17,
				"logCount":    2,
			}))

			ov, err := service.Overview(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ov.Logs.BookBalance.Wei().String()).To(Equal("56"))
			Expect(ov.Logs.Logs).To(HaveLen(2))
		})

		It("returns an empty history when the server sends none", func() {
			srv.Handle(http.MethodGet, "/employee/{userCode}/logs", srv.JSON(http.StatusOK, map[string]interface{}{"logCount": 0}))

			logs, err := service.Logs(ctx, "E7")
			Expect(err).NotTo(HaveOccurred())
			Expect(logs.Logs).To(BeEmpty())
			Expect(logs.Logs).NotTo(BeNil())
		})
	})

	Describe("Withdraw", func() {
		BeforeEach(func() {
			srv.Handle(http.MethodPost, "/employee/withdraw", srv.JSON(http.StatusOK, map[string]interface{}{
				"message":    "Withdraw success",
				"transferTx": "0xdead",
				"fiatValue":  map[string]interface{}{"usd": 3000},
			}))
		})

		It("rejects non-positive amounts without calling the API", func() {
			for _, amount := range []string{"0", "-1"} {
				_, err := service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse(amount)})
				Expect(errors.Is(err, internal.ErrInvalidAmount)).To(BeTrue())
				Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
			}
			Expect(srv.Calls(http.MethodPost, "/employee/balance")).To(Equal(0))
			Expect(srv.Calls(http.MethodPost, "/employee/withdraw")).To(Equal(0))
		})

		It("fetches the balance first and rejects amounts above it", func() {
			_, err := service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse("1.500000000000000001")})
			Expect(errors.Is(err, internal.ErrInsufficientBalance)).To(BeTrue())
			Expect(srv.Calls(http.MethodPost, "/employee/balance")).To(Equal(1))
			Expect(srv.Calls(http.MethodPost, "/employee/withdraw")).To(Equal(0))
		})

		It("submits the amount as an exact number and returns the receipt verbatim", func() {
			receipt, err := service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse("1.5"), PrivateKey: "0xtyped"})
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.Message).To(Equal("Withdraw success"))
			Expect(receipt.TransferTx).To(Equal("0xdead"))
			Expect(receipt.FiatValue).To(MatchJSON(`{"usd":3000}`))

			var body map[string]interface{}
			Expect(srv.Requests(http.MethodPost, "/employee/withdraw")[0].JSONBody(&body)).To(Succeed())
			Expect(body).To(Equal(map[string]interface{}{"userCode": "E7", "privateKey": "0xtyped", "amount": 1.5}))

			// initial fetch plus refresh
			Expect(srv.Calls(http.MethodPost, "/employee/balance")).To(Equal(2))
		})

		It("falls back to the stored private key", func() {
			_, err := service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse("1")})
			Expect(err).NotTo(HaveOccurred())

			var body map[string]interface{}
			Expect(srv.Requests(http.MethodPost, "/employee/withdraw")[0].JSONBody(&body)).To(Succeed())
			Expect(body["privateKey"]).To(Equal("0xstored"))
		})

		It("refuses a second withdrawal while one is in flight", func() {
			release, err := sessions.BeginSubmit()
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse("1")})
			Expect(errors.Is(err, internal.ErrSubmissionInProgress)).To(BeTrue())
			Expect(srv.Calls(http.MethodPost, "/employee/withdraw")).To(Equal(0))

			release()
			_, err = service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse("1")})
			Expect(err).NotTo(HaveOccurred())
		})

		It("passes server rejections through and releases the guard", func() {
			srv.Handle(http.MethodPost, "/employee/withdraw", srv.Error(http.StatusBadRequest, "gas too low"))

			_, err := service.Withdraw(ctx, wallet.WithdrawInput{Amount: ethunit.MustParse("1")})
			Expect(err).To(MatchError("gas too low"))
			Expect(internal.IsType(err, internal.ErrorTypeRemote)).To(BeTrue())
			Expect(sessions.submitting.Load()).To(BeFalse())
		})
	})

	It("forgets cached data when the session changes", func() {
		bus := events.NewEventBus(testLogger)
		service.RegisterEventHandlers(bus)

		_, err := service.Balance(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, ok := service.CachedBalance()
		Expect(ok).To(BeTrue())

		Expect(bus.PublishSync(ctx, events.NewSessionEndedEvent(events.SessionEndReasonLogout))).To(Succeed())
		_, ok = service.CachedBalance()
		Expect(ok).To(BeFalse())
	})

	It("does not cache a balance that arrives after the session changed", func() {
		bus := events.NewEventBus(testLogger)
		service.RegisterEventHandlers(bus)

		replied := make(chan struct{})
		srv.Handle(http.MethodPost, "/employee/balance", func(w http.ResponseWriter, r *http.Request) {
			<-replied
			srv.JSON(http.StatusOK, map[string]interface{}{"balance": "9", "address": "0xold"})(w, r)
		})

		fetched := make(chan wallet.Balance, 1)
		go func() {
			defer GinkgoRecover()
			b, err := service.Balance(ctx)
			Expect(err).NotTo(HaveOccurred())
			fetched <- b
		}()
		Eventually(func() int { return srv.Calls(http.MethodPost, "/employee/balance") }).Should(Equal(1))

		Expect(bus.PublishSync(ctx, events.NewSessionStartedEvent("E8", "bob"))).To(Succeed())
		close(replied)

		var b wallet.Balance
		Eventually(fetched).Should(Receive(&b))
		Expect(b.Address).To(Equal("0xold"))
		_, ok := service.CachedBalance()
		Expect(ok).To(BeFalse())
	})
})

type staticToken string

func (t staticToken) Token() string { return string(t) }
