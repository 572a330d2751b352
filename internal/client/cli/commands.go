package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/reconciler"
	"github.com/dmitrijs2005/creditkeeper/internal/common"
)

var errUsage = errors.New("invalid arguments, type 'help' for usage")

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, errUsage
	}
	return n, nil
}

func (a *App) Balance(ctx context.Context, _ []string) error {
	fmt.Fprintf(a.out, "Balance: %d credits\n", a.svc.Balance(ctx))
	return nil
}

func (a *App) CanAnalyze(ctx context.Context, _ []string) error {
	av := a.svc.CanAnalyze(ctx)
	if !av.CanUse {
		fmt.Fprintln(a.out, "No analyses left. Buy credits with 'buy <product>'.")
		return nil
	}
	fmt.Fprintf(a.out, "Analysis available (%s), %d credits left\n", av.Type, av.CreditsLeft)
	return nil
}

func (a *App) Use(ctx context.Context, _ []string) error {
	ok, err := a.svc.UseAnalysis(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "No analyses left.")
		return nil
	}
	fmt.Fprintf(a.out, "Analysis used, balance: %d credits\n", a.svc.Balance(ctx))
	return nil
}

func (a *App) History(ctx context.Context, args []string) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}
	entries, err := a.svc.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No history yet.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tAMOUNT\tBALANCE\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%+d\t%d\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, e.Amount, e.BalanceAfter, e.Description)
	}
	return w.Flush()
}

func (a *App) Purchases(ctx context.Context, args []string) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}
	records, err := a.svc.Purchases(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No purchases yet.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPRODUCT\tCREDITS\tPRICE\tTRANSACTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s %s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.ProductID, r.Credits, r.Price, r.Currency, r.ID)
	}
	return w.Flush()
}

func (a *App) Products(ctx context.Context, _ []string) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCREDITS\tPRICE")
	for _, p := range a.svc.Products(ctx) {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s %s\n", p.ID, p.Title, p.Credits, p.Price, p.Currency)
	}
	return w.Flush()
}

// Buy runs a checkout. When the direct result could not be reconciled it
// falls back to polling the balance and a manual reconcile.
func (a *App) Buy(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	h, err := a.svc.InitiatePurchase(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Purchasing %s (%d credits)...\n", h.ProductID, h.Credits)

	outcome, err := h.Wait(ctx)
	switch {
	case err == nil && outcome == reconciler.OutcomeCancelled:
		fmt.Fprintln(a.out, "Purchase cancelled.")
		return nil
	case err == nil:
		fmt.Fprintf(a.out, "Purchase %s, balance: %d credits\n", outcome, a.svc.Balance(ctx))
		return nil
	case errors.Is(err, common.ErrUnknownProduct), errors.Is(err, common.ErrReceiptInvalid):
		return err
	}

	a.log.Warn(ctx, "purchase not confirmed directly, polling", "product_id", h.ProductID, "error", err)
	ok, cerr := h.Confirm(ctx)
	if cerr != nil {
		return errors.Join(err, cerr)
	}
	if !ok {
		fmt.Fprintln(a.out, "Purchase is pending. Run 'restore' later to collect the credits.")
		return nil
	}
	fmt.Fprintf(a.out, "Purchase confirmed, balance: %d credits\n", a.svc.Balance(ctx))
	return nil
}

func (a *App) Confirm(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	expected, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || expected <= 0 {
		return errUsage
	}
	ok, err := a.svc.CheckAndConfirm(ctx, args[0], expected)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(a.out, "Credits confirmed, balance: %d credits\n", a.svc.Balance(ctx))
	} else {
		fmt.Fprintln(a.out, "No matching purchase found.")
	}
	return nil
}

func (a *App) Restore(ctx context.Context, _ []string) error {
	res, err := a.svc.RestorePurchases(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Examined %d, restored %d, already credited %d, failed %d. Balance: %d credits\n",
		res.Examined, res.Restored, res.Duplicates, res.Failed, a.svc.Balance(ctx))
	return nil
}

func (a *App) Reset(ctx context.Context, _ []string) error {
	ok, err := Confirm(a.reader, "This wipes balance, history and purchases. Continue?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Reset aborted.")
		return nil
	}
	if err := a.svc.ResetForTesting(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Credit data reset.")
	return nil
}

func (a *App) Secret(ctx context.Context, _ []string) error {
	secret, err := GetSecret("Shared secret (empty to remove)", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	if err := a.svc.SetSharedSecret(ctx, string(secret)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Shared secret updated.")
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	sink, err := a.sinkFor(ctx, target)
	if err != nil {
		return err
	}
	loc, err := a.svc.Export(ctx, sink)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Snapshot written to %s\n", loc)
	return nil
}
