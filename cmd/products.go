package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/ethunit"
	"github.com/frahmantamala/employee-portal/internal/product"
	"github.com/spf13/cobra"
)

var (
	productSearch   string
	productCategory string

	productName     string
	productCat      string
	productPriceWei string
	productPriceEth string
	productImage    string
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Browse and manage the product catalogue",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			products, err := deps.Products.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Categories: %v\n\n", product.Categories(products))
			tw := newTable(out, "ID", "CODE", "NAME", "CATEGORY", "PRICE (ETH)", "IMAGE")
			for _, p := range product.FilterMenu(products, productSearch, productCategory) {
				row(tw, p.ID, p.ProductCode, p.Name, p.DisplayCategory(), p.PriceWei.Ether(), product.ImageURL(deps.Config.API.ImageGateway(), p))
			}
			return tw.Flush()
		})
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeImage, err := productInput()
		if err != nil {
			return err
		}
		defer closeImage()

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			created, err := deps.Products.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", created.Name, created.ProductCode)
			return nil
		})
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update PRODUCT_CODE",
	Short: "Change a product; only the given fields are sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, closeImage, err := productInput()
		if err != nil {
			return err
		}
		defer closeImage()

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if _, err := deps.Products.Update(ctx, internal.Code(args[0]), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		})
	},
}

// productInput builds the form from flags. The price may be given in wei
// or in ether.
func productInput() (product.ProductInput, func(), error) {
	in := product.ProductInput{Name: productName, Category: productCat}
	noop := func() {}

	switch {
	case productPriceWei != "" && productPriceEth != "":
		return in, noop, internal.NewValidationFieldError("priceWei", "give either --price-wei or --price-eth", internal.ErrCodeValidationFailed)
	case productPriceWei != "":
		wei, err := ethunit.ParseWei(productPriceWei)
		if err != nil {
			return in, noop, internal.NewValidationFieldError("priceWei", err.Error(), internal.ErrCodeInvalidAmount)
		}
		in.PriceWei = &wei
	case productPriceEth != "":
		eth, err := ethunit.Parse(productPriceEth)
		if err != nil {
			return in, noop, internal.NewValidationFieldError("priceWei", err.Error(), internal.ErrCodeInvalidAmount)
		}
		wei := eth.Wei()
		in.PriceWei = &wei
	}

	if productImage == "" {
		return in, noop, nil
	}
	f, err := os.Open(productImage)
	if err != nil {
		return in, noop, fmt.Errorf("failed to open image: %w", err)
	}
	in.Image = f
	in.ImageName = filepath.Base(productImage)
	return in, func() { f.Close() }, nil
}

func init() {
	productsListCmd.Flags().StringVar(&productSearch, "search", "", "case-insensitive name filter")
	productsListCmd.Flags().StringVar(&productCategory, "category", product.AllCategories, "category filter")

	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		c.Flags().StringVar(&productName, "name", "", "product name")
		c.Flags().StringVar(&productCat, "category", "", "category")
		c.Flags().StringVar(&productPriceWei, "price-wei", "", "price in wei")
		c.Flags().StringVar(&productPriceEth, "price-eth", "", "price in ether")
		c.Flags().StringVar(&productImage, "image", "", "image file")
	}

	productsCmd.AddCommand(productsListCmd, productsCreateCmd, productsUpdateCmd)
}
