package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/authstate/httpbackend"
)

var (
	searchCategory string
	searchStoreID  string
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search active products across verified stores",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List verified stores",
	RunE:  runStores,
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "filter by category")
	searchCmd.Flags().StringVar(&searchStoreID, "store", "", "filter by store id")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results")

	rootCmd.AddCommand(searchCmd, storesCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	query := httpbackend.SearchQuery{
		Category: searchCategory,
		StoreID:  searchStoreID,
		Limit:    searchLimit,
	}
	if len(args) == 1 {
		query.Query = args[0]
	}
	products, err := a.client.SearchProducts(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Println("no products found")
		return nil
	}
	for _, product := range products {
		line := fmt.Sprintf("%s  Rp%.0f  %s", product.ProductID, product.Price, product.Name)
		details := make([]string, 0, 3)
		if product.Category != "" {
			details = append(details, product.Category)
		}
		if product.StoreName != "" {
			details = append(details, product.StoreName)
		}
		details = append(details, fmt.Sprintf("stock %d", product.Stock))
		fmt.Printf("%s (%s)\n", line, strings.Join(details, ", "))
	}
	return nil
}

func runStores(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stores, err := a.client.ListStores(cmd.Context())
	if err != nil {
		return err
	}
	if len(stores) == 0 {
		fmt.Println("no stores yet")
		return nil
	}
	for _, sf := range stores {
		fmt.Printf("%s  %s", sf.StoreID, sf.Name)
		if sf.Address != "" {
			fmt.Printf("  (%s)", sf.Address)
		}
		fmt.Println()
	}
	return nil
}
