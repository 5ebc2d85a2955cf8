package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/order"
	"github.com/frahmantamala/employee-portal/internal/product"
	"github.com/spf13/cobra"
)

var orderItems []string

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Buy products with the session wallet",
}

var orderCheckoutCmd = &cobra.Command{
	Use:   "checkout --item CODE=QTY [--item CODE=QTY ...]",
	Short: "Fill a cart and check it out",
	RunE: func(cmd *cobra.Command, args []string) error {
		wanted, err := parseItems(orderItems)
		if err != nil {
			return err
		}

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if _, err := deps.Sessions.RequireUser(); err != nil {
				return err
			}
			products, err := deps.Products.List(ctx)
			if err != nil {
				return err
			}
			cart, err := fillCart(products, wanted)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := newTable(out, "CODE", "NAME", "QTY", "SUBTOTAL (ETH)")
			for _, l := range cart.Lines() {
				row(tw, l.Product.ProductCode, l.Product.Name, l.Quantity, l.Subtotal().Ether())
			}
			row(tw, "", "", "TOTAL", cart.TotalEther())
			if err := tw.Flush(); err != nil {
				return err
			}

			receipt, err := deps.Orders.Checkout(ctx, cart)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return printJSON(out, receipt.Raw)
		})
	},
}

type orderItem struct {
	code     internal.Code
	quantity int
}

func parseItems(items []string) ([]orderItem, error) {
	out := make([]orderItem, 0, len(items))
	for _, item := range items {
		code, qty, ok := strings.Cut(item, "=")
		if !ok {
			qty = "1"
		}
		n, err := strconv.Atoi(qty)
		if err != nil || n < 1 || code == "" {
			return nil, internal.NewValidationFieldError("item", fmt.Sprintf("invalid item %q, expected CODE=QTY", item), internal.ErrCodeInvalidQuantity)
		}
		out = append(out, orderItem{code: internal.Code(code), quantity: n})
	}
	return out, nil
}

// fillCart adds each requested product to a new cart, matching on the
// product code.
func fillCart(products []product.Product, items []orderItem) (*order.Cart, error) {
	byCode := make(map[internal.Code]product.Product, len(products))
	for _, p := range products {
		byCode[p.ProductCode] = p
	}

	cart := order.NewCart()
	for _, item := range items {
		p, ok := byCode[item.code]
		if !ok {
			return nil, internal.NewValidationFieldError("item", fmt.Sprintf("unknown product %q", item.code), internal.ErrCodeValidationFailed)
		}
		cart.Add(p)
		cart.UpdateQuantity(p.ID, item.quantity-1)
	}
	return cart, nil
}

func init() {
	orderCheckoutCmd.Flags().StringArrayVar(&orderItems, "item", nil, "product code and quantity, e.g. P-1=2")
	_ = orderCheckoutCmd.MarkFlagRequired("item")

	orderCmd.AddCommand(orderCheckoutCmd)
}
