package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/jbrasil/stockledger/internal/client"
	"github.com/jbrasil/stockledger/internal/ledger"
)

var errPasswordMismatch = errors.New("new password and confirmation do not match")

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "ledgerctl",
		Usage: "operate a stock ledger server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "ledger server base URL",
				Sources: cli.EnvVars("LEDGER_SERVER"),
			},
			&cli.StringFlag{
				Name:    "pin",
				Usage:   "PIN for admin commands",
				Sources: cli.EnvVars("LEDGER_PIN"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "products",
				Usage: "list products in display order",
				Flags: []cli.Flag{categoryFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					category, err := categoryArg(cmd)
					if err != nil {
						return err
					}
					products, err := clientFor(cmd).Products(ctx, category)
					if err != nil {
						return err
					}
					printProducts(out, products)
					return nil
				},
			},
			{
				Name:  "add-product",
				Usage: "register a new product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Required: true},
					&cli.IntFlag{Name: "quantity", Aliases: []string{"q"}},
					&cli.StringFlag{Name: "price", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					category, err := ledger.ParseCategory(cmd.String("category"))
					if err != nil {
						return err
					}
					price, err := decimal.NewFromString(strings.ReplaceAll(cmd.String("price"), ",", "."))
					if err != nil {
						return fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, cmd.String("price"))
					}
					p, err := clientFor(cmd).AddProduct(ctx, ledger.ProductDraft{
						Name:     cmd.String("name"),
						Category: category,
						Quantity: int(cmd.Int("quantity")),
						Price:    price,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "added %s (%s)\n", p.Name, p.ID)
					return nil
				},
			},
			{
				Name:      "sell",
				Usage:     "check out a cart",
				ArgsUsage: "PRODUCT_ID:QTY [PRODUCT_ID:QTY ...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					items, err := parseCartItems(cmd.Args().Slice())
					if err != nil {
						return err
					}
					sales, err := clientFor(cmd).Sell(ctx, items)
					if err != nil {
						return err
					}
					printSales(out, sales)
					return nil
				},
			},
			{
				Name:  "sales",
				Usage: "list sales, most recent first",
				Flags: []cli.Flag{
					categoryFlag(),
					&cli.BoolFlag{Name: "by-day", Usage: "group by day"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					category, err := categoryArg(cmd)
					if err != nil {
						return err
					}
					c := clientFor(cmd)
					if cmd.Bool("by-day") {
						days, err := c.SalesByDay(ctx, category)
						if err != nil {
							return err
						}
						for _, d := range days {
							fmt.Fprintf(out, "== %s\n", d.Label)
							printSales(out, d.Sales)
						}
						return nil
					}
					page, err := c.Sales(ctx, category)
					if err != nil {
						return err
					}
					printSales(out, page.Sales)
					fmt.Fprintf(out, "total: %s\n", page.Total.StringFixed(2))
					return nil
				},
			},
			{
				Name:      "cancel-sale",
				Usage:     "cancel a sale and restore its stock",
				ArgsUsage: "SALE_ID",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := singleArg(cmd, "SALE_ID")
					if err != nil {
						return err
					}
					sale, err := clientFor(cmd).CancelSale(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "cancelled %s: %d x %s returned to stock\n", sale.ID, sale.Quantity, sale.ProductName)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "close the register for one category, or for everything",
				Flags: []cli.Flag{categoryFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					category, err := categoryArg(cmd)
					if err != nil {
						return err
					}
					removed, err := clientFor(cmd).ResetSales(ctx, category)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "removed %d sales\n", removed)
					return nil
				},
			},
			{
				Name:  "cash",
				Usage: "show the till balance",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					balance, err := clientFor(cmd).Cash(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "cash: %s\n", balance.StringFixed(2))
					return nil
				},
			},
			cashCommand(out, "deposit", "put money in the till", (*client.Client).Deposit),
			cashCommand(out, "withdraw", "take money out of the till", (*client.Client).Withdraw),
			{
				Name:      "move",
				Usage:     "move a product one position",
				ArgsUsage: "PRODUCT_ID up|down",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("expected PRODUCT_ID and a direction")
					}
					direction, err := ledger.ParseDirection(cmd.Args().Get(1))
					if err != nil {
						return err
					}
					moved, err := clientFor(cmd).MoveProduct(ctx, cmd.Args().Get(0), direction)
					if err != nil {
						return err
					}
					if !moved {
						fmt.Fprintln(out, "already at the edge")
						return nil
					}
					fmt.Fprintln(out, "moved")
					return nil
				},
			},
			{
				Name:  "summary",
				Usage: "units sold per product of a category",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					category, err := categoryArg(cmd)
					if err != nil {
						return err
					}
					summary, err := clientFor(cmd).Summary(ctx, category)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "PRODUCT\tSTOCK\tSOLD")
					for _, ps := range summary.Products {
						fmt.Fprintf(w, "%s\t%d\t%d\n", ps.Product.Name, ps.Product.Quantity, ps.SoldCount)
					}
					_ = w.Flush()
					fmt.Fprintf(out, "total: %s\n", summary.Total.StringFixed(2))
					return nil
				},
			},
			{
				Name:  "password",
				Usage: "change the PIN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "current", Usage: "defaults to --pin"},
					&cli.StringFlag{Name: "new", Required: true},
					&cli.StringFlag{Name: "confirm", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					next := cmd.String("new")
					if next != cmd.String("confirm") {
						return errPasswordMismatch
					}
					if len(next) < ledger.MinPasswordLength {
						return fmt.Errorf("%w: need at least %d characters", ledger.ErrPasswordTooShort, ledger.MinPasswordLength)
					}
					current := cmd.String("current")
					if current == "" {
						current = cmd.String("pin")
					}
					if err := clientFor(cmd).UpdatePassword(ctx, current, next); err != nil {
						return err
					}
					fmt.Fprintln(out, "password changed")
					return nil
				},
			},
		},
	}
}

func cashCommand(out io.Writer, name, usage string, fn func(*client.Client, context.Context, string) (decimal.Decimal, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "AMOUNT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := singleArg(cmd, "AMOUNT")
			if err != nil {
				return err
			}
			if _, err := ledger.ParseAmount(raw); err != nil {
				return err
			}
			balance, err := fn(clientFor(cmd), ctx, raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cash: %s\n", balance.StringFixed(2))
			return nil
		},
	}
}

func categoryFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "water or ice_cream"}
}

func clientFor(cmd *cli.Command) *client.Client {
	return client.New(cmd.String("server"),
		client.WithPIN(cmd.String("pin")),
		client.WithTimeout(cmd.Duration("timeout")),
	)
}

func categoryArg(cmd *cli.Command) (ledger.Category, error) {
	raw := cmd.String("category")
	if raw == "" {
		return "", nil
	}
	return ledger.ParseCategory(raw)
}

func singleArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one %s", name)
	}
	return cmd.Args().First(), nil
}

// parseCartItems lê pares PRODUCT_ID:QTY; id sozinho vale uma unidade
func parseCartItems(args []string) ([]ledger.CartItem, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("nothing to sell")
	}
	items := make([]ledger.CartItem, 0, len(args))
	for _, arg := range args {
		id, qtyText, hasQty := strings.Cut(arg, ":")
		if id == "" {
			return nil, fmt.Errorf("missing product id in %q", arg)
		}
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(qtyText)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidQuantity, arg)
			}
			qty = n
		}
		items = append(items, ledger.CartItem{ProductID: id, Quantity: qty})
	}
	return items, nil
}

func printProducts(out io.Writer, products []ledger.Product) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTOCK\tPRICE")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Category, p.Quantity, p.Price.StringFixed(2))
	}
	_ = w.Flush()
}

func printSales(out io.Writer, sales []ledger.Sale) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tPRODUCT\tQTY\tTOTAL")
	for _, s := range sales {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Date.Local().Format("2006-01-02 15:04"), s.ProductName, s.Quantity, s.Total.StringFixed(2))
	}
	_ = w.Flush()
}
