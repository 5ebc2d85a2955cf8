package product_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/apitest"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/product"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProduct(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Product Suite")
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var catalogue = []map[string]interface{}{
	{"id": 1, "productCode": "P-1", "name": "Espresso", "category": "Coffee", "priceWei": "1000000000000000000", "image": "QmA"},
	{"id": 2, "productCode": "P-2", "name": "Green Tea", "category": "Tea", "priceWei": 500000000000000000},
	{"id": 3, "productCode": "P-3", "name": "Iced Coffee", "category": "", "priceWei": "2000000000000000000"},
}

var _ = Describe("Product Service", func() {
	var (
		ctx     context.Context
		srv     *apitest.Server
		service *product.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		srv = apitest.New()
		DeferCleanup(srv.Close)
		client := apiclient.NewClient(apiclient.Config{Endpoint: srv.Endpoint(), Timeout: 2 * time.Second}, testLogger)
		client.SetTokenSource(staticToken("tok"))
		service = product.NewService(client, testLogger)
	})

	AfterEach(func() {
		Expect(srv.Violations()).To(BeEmpty())
	})

	Describe("List", func() {
		It("decodes wei prices sent as strings or numbers", func() {
			srv.Handle(http.MethodGet, "/products", srv.JSON(http.StatusOK, catalogue))

			products, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(products).To(HaveLen(3))
			Expect(products[0].PriceWei.Ether()).To(Equal("1"))
			Expect(products[1].PriceWei.Ether()).To(Equal("0.5"))
			Expect(products[0].ID).To(Equal(internal.Code("1")))
		})

		It("treats a non-array body as an empty catalogue", func() {
			srv.Handle(http.MethodGet, "/products", srv.JSON(http.StatusOK, map[string]string{"message": "no products"}))

			products, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(products).To(BeEmpty())
			Expect(service.Records().Err()).To(BeEmpty())
		})
	})

	Describe("Create and Update", func() {
		BeforeEach(func() {
			srv.Handle(http.MethodGet, "/products", srv.JSON(http.StatusOK, catalogue))
		})

		It("uploads the form and reloads the catalogue", func() {
			var name, price, image string
			srv.Handle(http.MethodPost, "/products", func(w http.ResponseWriter, r *http.Request) {
				name = r.FormValue("name")
				price = r.FormValue("priceWei")
				if _, hdr, err := r.FormFile("image"); err == nil {
					image = hdr.Filename
				}
				srv.JSON(http.StatusCreated, catalogue[0])(w, r)
			})

			wei := ethunit.WeiFromInt64(1000)
			_, err := service.Create(ctx, product.ProductInput{
				Name:      "Espresso",
				Category:  "Coffee",
				PriceWei:  &wei,
				ImageName: "espresso.png",
				Image:     strings.NewReader("png"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("Espresso"))
			Expect(price).To(Equal("1000"))
			Expect(image).To(Equal("espresso.png"))
			Expect(srv.Calls(http.MethodGet, "/products")).To(Equal(1))
			Expect(service.Records().Items()).To(HaveLen(3))
		})

		It("rejects a product without a positive price", func() {
			zero := ethunit.WeiFromInt64(0)
			_, err := service.Create(ctx, product.ProductInput{Name: "Free", PriceWei: &zero})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
			_, err = service.Create(ctx, product.ProductInput{Name: "NoPrice"})
			Expect(err).To(MatchError("priceWei is required"))
		})

		It("sends only the changed fields on update", func() {
			var form map[string][]string
			srv.Handle(http.MethodPut, "/products/{productCode}", func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseMultipartForm(1 << 20)
				form = r.MultipartForm.Value
				srv.JSON(http.StatusOK, catalogue[0])(w, r)
			})

			_, err := service.Update(ctx, "P-1", product.ProductInput{Name: "Double Espresso"})
			Expect(err).NotTo(HaveOccurred())
			Expect(form).To(Equal(map[string][]string{"name": {"Double Espresso"}}))
			Expect(srv.Requests(http.MethodPut, "/products/{productCode}")[0].Path).To(Equal("/api/products/P-1"))
		})
	})

	Describe("Buy", func() {
		req := product.BuyRequest{
			UserCode:        "7",
			BuyerPrivateKey: "0xkey",
			Products:        []product.BuyLine{{ProductCode: "P-1", Quantity: 2}},
			TotalAmount:     json.Number("2.5"),
		}

		It("returns the server receipt verbatim", func() {
			srv.Handle(http.MethodPost, "/products/buy", srv.JSON(http.StatusOK, map[string]interface{}{
				"message": "ok", "transferTx": "0xabc", "fiatValue": 12.5, "extra": "kept",
			}))

			receipt, err := service.Buy(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.TransferTx).To(Equal("0xabc"))
			Expect(string(receipt.FiatValue)).To(Equal("12.5"))
			Expect(string(receipt.Raw)).To(ContainSubstring(`"extra":"kept"`))
			Expect(srv.Calls(http.MethodGet, "/products")).To(Equal(0))
		})

		It("records a rejected purchase", func() {
			srv.Handle(http.MethodPost, "/products/buy", srv.Error(http.StatusBadRequest, "insufficient funds"))

			_, err := service.Buy(ctx, req)
			Expect(err).To(MatchError("insufficient funds"))
			Expect(service.Records().Err()).To(Equal("insufficient funds"))
		})

		It("refuses an empty order", func() {
			empty := req
			empty.Products = nil
			_, err := service.Buy(ctx, empty)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})
})

var _ = Describe("Menu views", func() {
	var products []product.Product

	BeforeEach(func() {
		raw, err := json.Marshal(catalogue)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(raw, &products)).To(Succeed())
	})

	It("lists All first, then distinct categories with a fallback", func() {
		Expect(product.Categories(products)).To(Equal([]string{"All", "Coffee", "Tea", "Other"}))
	})

	It("matches names case-insensitively within a category", func() {
		names := func(ps []product.Product) []string {
			out := []string{}
			for _, p := range ps {
				out = append(out, p.Name)
			}
			return out
		}

		Expect(names(product.FilterMenu(products, "coffee", "All"))).To(Equal([]string{"Iced Coffee"}))
		Expect(names(product.FilterMenu(products, "", "Tea"))).To(Equal([]string{"Green Tea"}))
		Expect(names(product.FilterMenu(products, "", "Other"))).To(Equal([]string{"Iced Coffee"}))
		Expect(names(product.FilterMenu(products, "ESP", ""))).To(Equal([]string{"Espresso"}))
		Expect(product.FilterMenu(products, "latte", "All")).To(BeEmpty())
	})

	It("resolves image hashes against the gateway", func() {
		Expect(product.ImageURL("https://gw.example/", products[0])).To(Equal("https://gw.example/ipfs/QmA"))
		Expect(product.ImageURL("https://gw.example", products[1])).To(BeEmpty())
	})
})
