package cmd

import (
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal/catalog"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/product/pkg/request"
	productService "github.com/Alturino/storefront/product/service"
)

func productsCommand() *cobra.Command {
	query := map[string]*string{}
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products with the storefront filters applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg := initialize(cmd.Context())
			logger := zerolog.Ctx(c).With().Str(log.KeyTag, "main products").Logger()

			values := url.Values{}
			for key, value := range query {
				if *value != "" {
					values.Set(key, *value)
				}
			}
			param, err := request.ListProductsFromQuery(values)
			if err != nil {
				return err
			}

			svc := productService.NewProductService(catalog.NewClient(cfg.Catalog), retryConfig(cfg.Catalog))
			products, err := svc.ListProducts(logger.WithContext(c), param)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPRICE\tCATEGORY\tCREATED")
			for _, product := range products {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					product.ID, product.Title, product.Price.StringFixed(2), product.Category.Name, product.CreatedAt)
			}
			return w.Flush()
		},
	}
	query["search"] = cmd.Flags().String("search", "", "title search")
	query["category"] = cmd.Flags().String("category", "", "category id")
	query["minPrice"] = cmd.Flags().String("min-price", "", "inclusive minimum price")
	query["maxPrice"] = cmd.Flags().String("max-price", "", "inclusive maximum price")
	query["sortBy"] = cmd.Flags().String("sort-by", "", "none, price, title or createdAt")
	query["sortOrder"] = cmd.Flags().String("sort-order", "", "asc or desc")
	return cmd
}

func categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg := initialize(cmd.Context())
			logger := zerolog.Ctx(c).With().Str(log.KeyTag, "main categories").Logger()

			svc := productService.NewProductService(catalog.NewClient(cfg.Catalog), retryConfig(cfg.Catalog))
			categories, err := svc.ListCategories(logger.WithContext(c))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, category := range categories {
				fmt.Fprintf(w, "%d\t%s\n", category.ID, category.Name)
			}
			return w.Flush()
		},
	}
}
