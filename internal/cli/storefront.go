package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/authstate/httpbackend"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

var (
	storeInput   httpbackend.StoreInput
	productInput httpbackend.ProductInput
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage your storefront (sellers)",
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your storefront",
	RunE:  runStoreShow,
}

var storeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open your storefront",
	RunE:  runStoreCreate,
}

var storeUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your storefront",
	RunE:  runStoreUpdate,
}

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage your products (sellers)",
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the products in your store",
	RunE:  runProductList,
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product to your store",
	RunE:  runProductAdd,
}

var productRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product from your store",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductRemove,
}

func init() {
	for _, cmd := range []*cobra.Command{storeCreateCmd, storeUpdateCmd} {
		cmd.Flags().StringVar(&storeInput.Name, "name", "", "store name")
		cmd.Flags().StringVar(&storeInput.Description, "description", "", "store description")
		cmd.Flags().StringVar(&storeInput.Address, "address", "", "store address")
		cmd.Flags().StringVar(&storeInput.Phone, "phone", "", "contact phone")
	}
	_ = storeCreateCmd.MarkFlagRequired("name")
	storeCmd.AddCommand(storeShowCmd, storeCreateCmd, storeUpdateCmd)

	productAddCmd.Flags().StringVar(&productInput.Name, "name", "", "product name")
	productAddCmd.Flags().StringVar(&productInput.Description, "description", "", "product description")
	productAddCmd.Flags().Float64Var(&productInput.Price, "price", 0, "price in rupiah")
	productAddCmd.Flags().StringVar(&productInput.Category, "category", "", "product category")
	productAddCmd.Flags().IntVar(&productInput.Stock, "stock", 0, "stock on hand")
	productAddCmd.Flags().StringVar(&productInput.ImageURL, "image", "", "image URL")
	_ = productAddCmd.MarkFlagRequired("name")
	_ = productAddCmd.MarkFlagRequired("price")
	productCmd.AddCommand(productListCmd, productAddCmd, productRemoveCmd)

	rootCmd.AddCommand(storeCmd, productCmd)
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleSeller); err != nil {
		return err
	}
	sf, err := a.client.MyStore(cmd.Context())
	if err != nil {
		return err
	}
	printStore(sf)
	return nil
}

func runStoreCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleSeller); err != nil {
		return err
	}
	sf, err := a.client.CreateStore(cmd.Context(), storeInput)
	if err != nil {
		return err
	}
	fmt.Println("store created; it becomes publicly visible once an admin verifies it")
	printStore(sf)
	return nil
}

func runStoreUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleSeller); err != nil {
		return err
	}
	if !cmd.Flags().Changed("name") || storeInput.Name == "" {
		current, err := a.client.MyStore(cmd.Context())
		if err != nil {
			return err
		}
		storeInput.Name = current.Name
	}
	sf, err := a.client.UpdateStore(cmd.Context(), storeInput)
	if err != nil {
		return err
	}
	printStore(sf)
	return nil
}

func runProductList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleSeller); err != nil {
		return err
	}
	products, err := a.client.MyProducts(cmd.Context())
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Println("no products yet")
		return nil
	}
	for _, product := range products {
		status := "active"
		if !product.Active {
			status = "hidden"
		}
		fmt.Printf("%s  Rp%.0f  %s (stock %d, %s)\n",
			product.ProductID, product.Price, product.Name, product.Stock, status)
	}
	return nil
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleSeller); err != nil {
		return err
	}
	productInput.Active = true
	product, err := a.client.CreateProduct(cmd.Context(), productInput)
	if err != nil {
		return err
	}
	fmt.Printf("product %s added as %s\n", product.Name, product.ProductID)
	return nil
}

func runProductRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireRole(cmd.Context(), models.RoleSeller); err != nil {
		return err
	}
	if err := a.client.DeleteProduct(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("product removed")
	return nil
}

func printStore(sf models.StoreFront) {
	fmt.Printf("id:       %s\n", sf.StoreID)
	fmt.Printf("name:     %s\n", sf.Name)
	if sf.Description != "" {
		fmt.Printf("about:    %s\n", sf.Description)
	}
	if sf.Address != "" {
		fmt.Printf("address:  %s\n", sf.Address)
	}
	if sf.Phone != "" {
		fmt.Printf("phone:    %s\n", sf.Phone)
	}
	if sf.Verified {
		fmt.Println("status:   verified")
	} else {
		fmt.Println("status:   pending verification")
	}
}
