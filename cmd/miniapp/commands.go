package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/account"
	"kitsura-miniapp/internal/stories/autopay"
	"kitsura-miniapp/internal/stories/purchase"
	"kitsura-miniapp/internal/stories/settings"
	"kitsura-miniapp/internal/stories/userdata"
)

func newUserCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the current subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cli.fetchUser(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			heading(w, "Subscription")
			if user.User.Username != "" {
				field(w, "user", "@"+user.User.Username)
			} else {
				field(w, "user", user.User.FirstName)
			}
			field(w, "status", user.User.SubscriptionActualStatus)
			field(w, "active", user.HasActiveSubscription())
			field(w, "expires", user.ExpiresAt)
			if user.BalanceKopeks != nil {
				field(w, "balance", price(money.FromKopeks(*user.BalanceKopeks, user.Currency())))
			}
			if user.TrafficLimitGB != nil {
				field(w, "traffic", fmt.Sprintf("%.2f / %d GB", user.TrafficUsedGB, *user.TrafficLimitGB))
			} else {
				field(w, "traffic", fmt.Sprintf("%.2f GB", user.TrafficUsedGB))
			}
			field(w, "servers", fmt.Sprint(user.ConnectedServers))
			field(w, "devices", len(user.ConnectedDevices))
			field(w, "subscription url", user.SubscriptionURL)
			if user.SubscriptionMissing {
				field(w, "missing", user.SubscriptionMissingReason)
				field(w, "purchase url", user.SubscriptionPurchaseURL)
			}
			if user.TrialAvailable && user.TrialDurationDays != nil {
				field(w, "trial", fmt.Sprintf("%d days", *user.TrialDurationDays))
			}
			return nil
		},
	}
}

type selectionFlags struct {
	renewal bool
	period  string
	traffic int64
	servers []string
	devices int
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.renewal, "renewal", false, "Use the renewal flow even without an active subscription")
	cmd.Flags().StringVarP(&f.period, "period", "p", "", "Period id")
	cmd.Flags().Int64Var(&f.traffic, "traffic", 0, "Traffic tier in GB, 0 for unlimited")
	cmd.Flags().StringSliceVar(&f.servers, "server", nil, "Server uuid, repeatable")
	cmd.Flags().IntVar(&f.devices, "devices", 0, "Device limit")
}

// negotiate loads the catalogue and applies the requested selection.
func (cli *CLI) negotiate(cmd *cobra.Command, f *selectionFlags) (*purchase.Negotiator, error) {
	ctx := cmd.Context()
	user, err := cli.fetchUser(ctx)
	if err != nil {
		return nil, err
	}

	opts := []purchase.Option{
		purchase.WithLocalizer(cli.localizer),
		purchase.WithLanguage(cli.lang),
		purchase.WithLogger(cli.logger.WithGroup("purchase")),
		purchase.WithDebounce(cli.cfg.Purchase.Debounce),
		purchase.WithContext(ctx),
	}
	if f.renewal {
		opts = append(opts, purchase.WithMode(purchase.ModeRenewal))
	}
	n := purchase.NewNegotiator(cli.backend, user, opts...)

	if _, err := n.EnsureData(ctx, false); err != nil {
		n.Close()
		return nil, err
	}

	if f.period != "" {
		if sel := n.SelectPeriod(f.period); sel.PeriodID != f.period {
			n.Close()
			return nil, errors.Wrapf(purchase.ErrUnknownPeriod, "period %q", f.period)
		}
	}
	if cmd.Flags().Changed("traffic") {
		n.SelectTraffic(f.traffic)
	}
	if len(f.servers) > 0 {
		want := purchase.NewServerSet(f.servers...)
		for _, id := range want.Sorted() {
			if !n.Selection().Servers.Has(id) {
				n.ToggleServer(id)
			}
		}
		for _, id := range n.Selection().Servers.Sorted() {
			if !want.Has(id) {
				n.ToggleServer(id)
			}
		}
	}
	if f.devices > 0 {
		n.SetDevices(f.devices)
	}

	return n, nil
}

func newOptionsCommand(cli *CLI) *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List purchase periods and their configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.negotiate(cmd, &flags)
			if err != nil {
				return err
			}
			defer n.Close()

			w := cmd.OutOrStdout()
			opts := n.Options()
			heading(w, fmt.Sprintf("Periods (%s, balance %s)", n.Mode(), price(opts.Balance)))
			sel := n.Selection()
			for _, p := range opts.Periods {
				line := fmt.Sprintf("%s %-12s %-20s %s", mark(p.ID == sel.PeriodID), p.ID, p.Label, price(p.Price))
				if p.OriginalPrice.Known() && p.OriginalPrice.Value() > p.Price.Value() {
					line += " " + gray(price(p.OriginalPrice))
				}
				if p.Best {
					line += " " + green("best")
				}
				fmt.Fprintln(w, line)
			}

			period := opts.Period(sel.PeriodID)
			if period == nil {
				return nil
			}
			if period.Traffic.Selectable {
				heading(w, "Traffic")
				for _, t := range period.Traffic.Options {
					on := sel.TrafficValue != nil && *sel.TrafficValue == t.Value
					fmt.Fprintf(w, "%s %-12s %s\n", mark(on), t.Label, price(t.Price))
				}
			}
			if len(period.Servers.Options) > 0 {
				heading(w, "Servers")
				for _, s := range period.Servers.Options {
					label := lo.CoalesceOrEmpty(s.Name, s.UUID)
					if !s.Available {
						label = gray(label)
					}
					fmt.Fprintf(w, "%s %-12s %-20s %s\n", mark(sel.Servers.Has(s.UUID)), s.UUID, label, price(s.Price))
				}
			}
			if sel.Devices > 0 {
				heading(w, "Devices")
				field(w, "selected", sel.Devices)
				field(w, "max", period.Devices.Max)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newPreviewCommand(cli *CLI) *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Quote the selected configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.negotiate(cmd, &flags)
			if err != nil {
				return err
			}
			defer n.Close()

			preview := n.UpdatePreview(cmd.Context(), true)
			if preview == nil {
				preview = n.EstimatePreview()
			}
			if preview == nil {
				return errors.New("no preview available for this selection")
			}
			printPreview(cmd, preview)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printPreview(cmd *cobra.Command, p *purchase.Preview) {
	w := cmd.OutOrStdout()
	title := "Preview"
	if p.Estimated {
		title += " (estimate)"
	}
	heading(w, title)
	for _, line := range p.Breakdown {
		field(w, line.Label, line.Value)
	}
	for _, line := range p.DiscountLines {
		field(w, "discount", line)
	}
	field(w, "total", price(p.Total))
	if p.Original.Known() && p.Original.Value() > p.Total.Value() {
		field(w, "without discount", price(p.Original))
	}
	if !p.PerMonth.IsEmpty() {
		field(w, "per month", price(p.PerMonth))
	}
	field(w, "balance", price(p.Balance))
	if !p.CanPurchase {
		field(w, "missing", price(p.Missing))
	}
	field(w, "status", p.StatusMessage)
}

func newPurchaseCommand(cli *CLI) *cobra.Command {
	var flags selectionFlags

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy or renew with the selected configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.negotiate(cmd, &flags)
			if err != nil {
				return err
			}
			defer n.Close()

			raw, err := n.SubmitPurchase(cmd.Context(), "")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, success(fmt.Sprintf("%s completed", n.Mode())))
			if obj := payload.AsObject(raw); obj != nil {
				if msg := obj.FirstString("message", "detail"); msg != "" {
					field(w, "message", msg)
				}
			}
			if cli.verbose {
				fmt.Fprintln(w, gray(string(payload.Encode(raw))))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newAutopayCommand(cli *CLI) *cobra.Command {
	var (
		enable  bool
		disable bool
		days    int
	)

	cmd := &cobra.Command{
		Use:   "autopay",
		Short: "Show or change automatic renewal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable && disable {
				return errors.New("--enable and --disable are mutually exclusive")
			}

			ctx := cmd.Context()
			svc := autopay.NewService(cli.backend, cli.localizer, cli.lang, cli.logger.WithGroup("autopay"))
			svc.SetLoading()

			user, err := cli.fetchUser(ctx)
			if err != nil {
				return err
			}
			sources := lo.ToAnySlice(user.AutopaySources)
			if data, err := cli.settingsData(ctx, user); err != nil {
				cli.logger.Warn("Settings unavailable, autopay read from user data only", "error", err)
			} else if data != nil {
				sources = append(sources, autopay.EnvelopeSources(data.Raw)...)
			}
			state := svc.Ingest(sources...)

			var changes autopay.Changes
			switch {
			case enable:
				changes.Enabled = lo.ToPtr(true)
			case disable:
				changes.Enabled = lo.ToPtr(false)
			}
			if cmd.Flags().Changed("days") {
				changes.DaysBefore = lo.ToPtr(days)
			}

			if changes.Enabled != nil || changes.DaysBefore != nil {
				state, err = svc.Update(ctx, user.SubscriptionID, changes)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("autopay updated"))
			}

			printAutopay(cmd, state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enable, "enable", false, "Turn autopay on")
	cmd.Flags().BoolVar(&disable, "disable", false, "Turn autopay off")
	cmd.Flags().IntVar(&days, "days", 0, "Charge this many days before expiry")
	return cmd
}

func printAutopay(cmd *cobra.Command, st autopay.State) {
	w := cmd.OutOrStdout()
	heading(w, "Autopay")
	field(w, "enabled", st.IsEnabled())
	if st.DaysBefore != nil {
		field(w, "days before", *st.DaysBefore)
	}
	field(w, "options", fmt.Sprint(st.Options))
}

func newSettingsCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change subscription settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := cli.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd, svc.Data())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "servers <uuid>...",
		Short: "Replace the connected servers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.updateSettings(cmd, func(svc *settings.Service) (bool, error) {
				current := svc.Selections().Servers
				for _, id := range args {
					if !lo.Contains(current, id) {
						svc.ToggleServer(id)
					}
				}
				for _, id := range current {
					if !lo.Contains(args, id) {
						svc.ToggleServer(id)
					}
				}
				return svc.UpdateServers(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "traffic <gb>",
		Short: "Change the traffic tier, 0 for unlimited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrap(err, "traffic")
			}
			return cli.updateSettings(cmd, func(svc *settings.Service) (bool, error) {
				svc.SetTraffic(value)
				return svc.UpdateTraffic(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "devices <count>",
		Short: "Change the device limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || value <= 0 {
				return errors.Errorf("invalid device count %q", args[0])
			}
			return cli.updateSettings(cmd, func(svc *settings.Service) (bool, error) {
				svc.SetDevices(value)
				return svc.UpdateDevices(cmd.Context())
			})
		},
	})

	return cmd
}

func (cli *CLI) loadSettings(ctx context.Context) (*settings.Service, error) {
	user, err := cli.fetchUser(ctx)
	if err != nil {
		return nil, err
	}

	return cli.settingsFor(ctx, user)
}

func (cli *CLI) settingsFor(ctx context.Context, user *userdata.UserData) (*settings.Service, error) {
	svc := settings.NewService(cli.backend, cli.localizer, cli.lang, cli.logger.WithGroup("settings"))
	svc.SetUser(user)
	if _, err := svc.EnsureData(ctx, false); err != nil {
		return nil, err
	}
	return svc, nil
}

func (cli *CLI) settingsData(ctx context.Context, user *userdata.UserData) (*settings.Settings, error) {
	svc, err := cli.settingsFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return svc.Data(), nil
}

func (cli *CLI) updateSettings(cmd *cobra.Command, apply func(*settings.Service) (bool, error)) error {
	svc, err := cli.loadSettings(cmd.Context())
	if err != nil {
		return err
	}

	changed, err := apply(svc)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if changed {
		fmt.Fprintln(w, success("settings updated"))
	} else {
		fmt.Fprintln(w, gray("nothing to change"))
	}
	printSettings(cmd, svc.Data())
	return nil
}

func printSettings(cmd *cobra.Command, s *settings.Settings) {
	w := cmd.OutOrStdout()
	heading(w, "Servers")
	for _, srv := range s.Servers.Available {
		label := lo.CoalesceOrEmpty(srv.Name, srv.UUID)
		if !srv.Available {
			label = gray(label)
		}
		fmt.Fprintf(w, "%s %-12s %-20s %s\n", mark(srv.Connected), srv.UUID, label, price(srv.Price))
	}

	heading(w, "Traffic")
	field(w, "current", s.Current.TrafficLabel)
	for _, t := range s.Traffic.Options {
		fmt.Fprintf(w, "%s %-12s %s\n", mark(t.Current), t.Label, price(t.Price))
	}

	heading(w, "Devices")
	field(w, "limit", s.Current.DeviceLimit)
	if s.Devices.Max > 0 {
		field(w, "range", fmt.Sprintf("%d-%d", s.Devices.Min, s.Devices.Max))
	}
}

func newPromoCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "promo <code>",
		Short: "Activate a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := account.NewService(cli.backend, cli.localizer, cli.lang, cli.logger.WithGroup("account"))
			result, err := svc.ActivatePromoCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success(result.Message))
			return nil
		},
	}
}

func newReferralsCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "referrals",
		Short: "Show the referral link and invited friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := cli.fetchUser(ctx)
			if err != nil {
				return err
			}

			svc := account.NewService(cli.backend, cli.localizer, cli.lang, cli.logger.WithGroup("account"))
			referrals, err := svc.ListReferrals(ctx, user.Currency())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			heading(w, "Referrals")
			field(w, "link", account.ReferralLink(user, cli.botName))
			field(w, "invited", user.Referral.Stats.InvitedCount)
			field(w, "earned", price(money.FromKopeks(user.Referral.Stats.EarnedTotalKopeks, user.Currency())))
			for _, r := range referrals {
				fmt.Fprintf(w, "%s %-20s %-12s %s\n", mark(r.HasSubscription), r.Name, r.JoinedAt, price(r.Earned))
			}
			return nil
		},
	}
}

func newDevicesCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List connected devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cli.fetchUser(cmd.Context())
			if err != nil {
				return err
			}
			printDevices(cmd, user)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <hwid>",
		Short: "Revoke a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := account.NewService(cli.backend, cli.localizer, cli.lang, cli.logger.WithGroup("account"))
			if err := svc.RemoveDevice(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("device removed"))
			return nil
		},
	})

	return cmd
}

func printDevices(cmd *cobra.Command, user *userdata.UserData) {
	w := cmd.OutOrStdout()
	heading(w, "Devices")
	for _, d := range user.ConnectedDevices {
		fmt.Fprintf(w, "  %-24s %-16s %-10s %s\n", d.HWID, d.Name, d.Platform, gray(d.LastSeen))
	}
}
