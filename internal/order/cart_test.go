package order_test

import (
	"math/big"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/order"
	"github.com/frahmantamala/employee-portal/internal/product"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func priced(id string, wei int64) product.Product {
	return product.Product{
		ID:          internal.Code(id),
		ProductCode: internal.Code("P-" + id),
		Name:        "item " + id,
		PriceWei:    ethunit.NewWei(big.NewInt(wei)),
	}
}

const oneEther = int64(1000000000000000000)

var _ = Describe("Cart", func() {
	var cart *order.Cart

	BeforeEach(func() {
		cart = order.NewCart()
	})

	It("totals 1 ETH x2 plus 0.5 ETH x1 as 2.5 ETH", func() {
		cart.Add(priced("1", oneEther))
		cart.Add(priced("1", oneEther))
		cart.Add(priced("2", oneEther/2))

		Expect(cart.TotalEther().String()).To(Equal("2.5"))
		Expect(cart.TotalWei().String()).To(Equal("2500000000000000000"))
	})

	It("increments the existing line when the same product is added twice", func() {
		cart.Add(priced("1", 10))
		cart.Add(priced("1", 10))

		lines := cart.Lines()
		Expect(lines).To(HaveLen(1))
		Expect(lines[0].Quantity).To(Equal(2))
	})

	It("never decrements a line below one", func() {
		cart.Add(priced("1", 10))
		cart.UpdateQuantity("1", -1)

		Expect(cart.Lines()[0].Quantity).To(Equal(1))
	})

	It("applies quantity changes that stay positive", func() {
		cart.Add(priced("1", 10))
		cart.UpdateQuantity("1", 3)
		cart.UpdateQuantity("1", -2)
		cart.UpdateQuantity("missing", 5)

		Expect(cart.Lines()).To(HaveLen(1))
		Expect(cart.Lines()[0].Quantity).To(Equal(2))
	})

	It("removes and clears lines", func() {
		cart.Add(priced("1", 10))
		cart.Add(priced("2", 10))
		cart.Remove("1")
		Expect(cart.Len()).To(Equal(1))
		Expect(cart.Lines()[0].Product.ID).To(Equal(internal.Code("2")))

		cart.Clear()
		Expect(cart.IsEmpty()).To(BeTrue())
		Expect(cart.TotalWei().Sign()).To(Equal(0))
	})

	It("keeps exact totals beyond float precision", func() {
		cart.Add(priced("1", 1))
		cart.Add(priced("2", oneEther*1000))
		Expect(cart.TotalEther().String()).To(Equal("1000.000000000000000001"))
	})
})
