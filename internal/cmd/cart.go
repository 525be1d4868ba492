package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fjod/cats-den/internal/cache"
	"github.com/fjod/cats-den/internal/cart"
	"github.com/fjod/cats-den/internal/checkout"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/pricing"
	"github.com/fjod/cats-den/internal/validation"
)

var (
	cartDir      string
	apiURL       string
	apiToken     string
	checkoutForm string
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage a local cart",
	Long: `Keeps a cart on this machine, the same way the storefront keeps one in
the browser. Kittens are looked up in the catalog by slug.`,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the kittens in the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openLocalCart(cmd.Context())
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <kitten-slug>",
	Short: "Add a kitten to the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <kitten-id>",
	Short: "Remove a kitten from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openLocalCart(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Remove(cmdContext(cmd), args[0]); err != nil {
			return fmt.Errorf("failed to remove kitten: %w", err)
		}
		return printCart(cmd.OutOrStdout(), c)
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openLocalCart(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Clear(cmdContext(cmd)); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
		return nil
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order for the kittens in the local cart",
	Long: `Reads the contact and shipping form from a JSON file, posts one order
to the storefront API and empties the cart once the order is accepted.`,
	Args: cobra.NoArgs,
	RunE: runCheckout,
}

func init() {
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(checkoutCmd)
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartRemoveCmd, cartClearCmd)

	cartCmd.PersistentFlags().StringVar(&cartDir, "cart-dir", defaultCartDir(), "Directory holding the local cart")
	checkoutCmd.Flags().StringVar(&cartDir, "cart-dir", defaultCartDir(), "Directory holding the local cart")
	checkoutCmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "Storefront API base URL")
	checkoutCmd.Flags().StringVar(&apiToken, "token", os.Getenv("CATSDEN_TOKEN"), "Bearer token from login")
	checkoutCmd.Flags().StringVar(&checkoutForm, "form", "", "Path to the checkout form JSON")
	checkoutCmd.MarkFlagRequired("form")
}

func defaultCartDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".catsden"
	}
	return filepath.Join(dir, "catsden")
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openLocalCart(ctx context.Context) (*cart.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	storage, err := cart.NewFileStorage(cartDir)
	if err != nil {
		return nil, err
	}
	c, err := cart.Open(ctx, storage, cart.StorageKey, cart.WithLogger(logger.Discard()))
	if err != nil {
		return nil, fmt.Errorf("failed to open cart: %w", err)
	}
	return c, nil
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdContext(cmd), 30*time.Second)
	defer cancel()

	quiet := logger.Discard()
	catalogSvc, err := newCatalog(cfg.CMS, cache.NewMemoryCache(time.Minute), quiet, nil)
	if err != nil {
		return err
	}
	kitten, err := catalogSvc.KittenBySlug(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to find kitten %q: %w", args[0], err)
	}
	if kitten.Availability != domain.AvailabilityAvailable {
		return fmt.Errorf("%s is no longer available", kitten.Name)
	}

	c, err := openLocalCart(ctx)
	if err != nil {
		return err
	}
	added, err := c.Add(ctx, *kitten)
	if err != nil {
		return fmt.Errorf("failed to add kitten: %w", err)
	}
	if !added {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already in your cart\n", kitten.Name)
	}
	return printCart(cmd.OutOrStdout(), c)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdContext(cmd), cfg.HTTP.RequestTimeout)
	defer cancel()

	form, err := readForm(checkoutForm)
	if err != nil {
		return err
	}
	c, err := openLocalCart(ctx)
	if err != nil {
		return err
	}

	policy := pricing.Policy{ShippingFlat: cfg.Pricing.ShippingFlat, TaxRate: cfg.Pricing.TaxRate}
	submitter := checkout.NewSubmitter(apiURL, nil, policy)
	number, err := submitter.Submit(ctx, apiToken, form, c)
	if err != nil {
		var fieldErr *validation.FieldError
		if errors.As(err, &fieldErr) {
			return fmt.Errorf("checkout form: %s", fieldErr.Message)
		}
		if number != "" {
			log.Warn("order placed but cart not cleared", "order_number", number, "error", err)
		} else {
			return fmt.Errorf("failed to place order: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Order %s placed\n", number)
	return nil
}

func readForm(path string) (checkout.Form, error) {
	var form checkout.Form
	data, err := os.ReadFile(path)
	if err != nil {
		return form, fmt.Errorf("failed to read checkout form: %w", err)
	}
	if err := json.Unmarshal(data, &form); err != nil {
		return form, fmt.Errorf("failed to parse checkout form: %w", err)
	}
	return form, nil
}

func printCart(w io.Writer, c *cart.Store) error {
	items := c.Items()
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Your cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBREED\tPRICE")
	for _, item := range items {
		k := item.Kitten
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", k.ID, k.Name, k.Breed.Name, k.Price)
	}
	fmt.Fprintf(tw, "\t\t%d item(s)\t%.2f\n", c.Count(), c.Total())
	return tw.Flush()
}
