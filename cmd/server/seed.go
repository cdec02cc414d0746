package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/models"
	"fixwala-backend/internal/repositories"
	"fixwala-backend/internal/services"
	"fixwala-backend/internal/timeutil"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample invoices",
	Example: `  # Add sample invoices, keeping existing data
  fixwala seed

  # Wipe every invoice, line item and payment first
  fixwala seed --reset --yes`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Bool("reset", false, "delete all invoices, line items and payments before seeding")
	seedCmd.Flags().Bool("yes", false, "skip the reset confirmation prompt")
}

// confirmReset asks the operator to type yes before data is wiped
func confirmReset(in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, "WARNING: this deletes every invoice, line item and payment.")
	fmt.Fprint(out, "Type 'yes' to confirm: ")

	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}

type sampleInvoice struct {
	number   string
	customer string
	lines    []models.CreateLineItemRequest
	payments []string
	archived bool
}

func sampleLine(description string, quantity int64, unitPrice int64) models.CreateLineItemRequest {
	return models.CreateLineItemRequest{
		Description: description,
		Quantity:    decimal.NewFromInt(quantity),
		UnitPrice:   decimal.NewFromInt(unitPrice),
	}
}

var sampleInvoices = []sampleInvoice{
	{
		number:   "FW-1001",
		customer: "Rahul Sharma",
		lines: []models.CreateLineItemRequest{
			sampleLine("AC Repair & Service", 1, 499),
			sampleLine("Gas refill", 1, 1200),
		},
		payments: []string{"500"},
	},
	{
		number:   "FW-1002",
		customer: "Priya Nair",
		lines: []models.CreateLineItemRequest{
			sampleLine("Plumbing Services", 2, 349),
		},
		payments: []string{"698"},
	},
	{
		number:   "FW-1003",
		customer: "Imran Qureshi",
		lines: []models.CreateLineItemRequest{
			sampleLine("Electrical Services", 1, 399),
			sampleLine("Geyser Installation & Repair", 1, 399),
		},
	},
	{
		number:   "FW-1004",
		customer: "Deepa Iyer",
		lines: []models.CreateLineItemRequest{
			sampleLine("Refrigerator Repair", 1, 599),
		},
		archived: true,
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirmReset(cmd.InOrStdin(), cmd.OutOrStdout()) {
			return errors.New("reset cancelled")
		}
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		lg := logger.WithComponent("seed")
		lg.Info().Msg("Cleared existing invoices")
	}

	created, err := seedInvoices(ctx, store, timeutil.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Added %d invoices\n", created)
	return nil
}

// seedInvoices stores the samples through the invoice service so totals and
// balances follow the normal rules. Numbers that already exist are skipped.
func seedInvoices(ctx context.Context, store repositories.InvoiceStore, now time.Time) (int, error) {
	log := logger.WithComponent("seed")
	svc := services.NewInvoiceService(store, nil, false)

	created := 0
	for i, sample := range sampleInvoices {
		issued := timeutil.StartOfDay(now.AddDate(0, 0, -7*(len(sampleInvoices)-i)))
		inv, err := svc.CreateInvoice(ctx, &models.CreateInvoiceRequest{
			InvoiceNumber: sample.number,
			CustomerName:  sample.customer,
			IssueDate:     models.NewDate(issued),
			DueDate:       models.NewDate(issued.AddDate(0, 0, 15)),
			LineItems:     sample.lines,
		})
		if err != nil {
			if errors.Is(err, models.ErrDuplicateInvoiceNumber) {
				log.Info().Str("invoice_number", sample.number).Msg("Already present, skipping")
				continue
			}
			return created, fmt.Errorf("seed %s: %w", sample.number, err)
		}
		created++

		for _, amount := range sample.payments {
			value := decimal.RequireFromString(amount)
			paidAt := models.NewTimestamp(issued.Add(48 * time.Hour))
			if _, err := svc.AddPayment(ctx, inv.ID, &models.AddPaymentRequest{Amount: &value, PaymentDate: &paidAt}); err != nil {
				return created, fmt.Errorf("seed payment for %s: %w", sample.number, err)
			}
		}
		if sample.archived {
			if _, err := svc.ArchiveInvoice(ctx, inv.ID); err != nil {
				return created, fmt.Errorf("archive %s: %w", sample.number, err)
			}
		}
	}
	return created, nil
}
