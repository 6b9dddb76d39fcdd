package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const (
	isReadFlag   = "is-read"
	resolvedFlag = "resolved"
	searchFlag   = "search"
	pageFlag     = "page"
	sinceFlag    = "since"
	untilFlag    = "until"
)

var contactListFlags = map[string]cobraflags.Flag{
	isReadFlag: &cobraflags.StringFlag{
		Name:  isReadFlag,
		Value: "",
		Usage: "Filter by read state (true or false); empty lists all",
	},
	resolvedFlag: &cobraflags.StringFlag{
		Name:  resolvedFlag,
		Value: "",
		Usage: "Filter by resolved state (true or false); empty lists all",
	},
	searchFlag: &cobraflags.StringFlag{
		Name:  searchFlag,
		Value: "",
		Usage: "Search name, email, subject and message",
	},
	sinceFlag: &cobraflags.StringFlag{
		Name:  sinceFlag,
		Value: "",
		Usage: "Only messages received on or after this day (YYYY-MM-DD)",
	},
	untilFlag: &cobraflags.StringFlag{
		Name:  untilFlag,
		Value: "",
		Usage: "Only messages received on or before this day (YYYY-MM-DD)",
	},
	pageFlag: &cobraflags.StringFlag{
		Name:  pageFlag,
		Value: "1",
		Usage: "Page number (20 messages per page)",
	},
}

func newContactCommand() *cobra.Command {
	contactCmd := &cobra.Command{
		Use:   "contact [list|mark-read|mark-resolved]",
		Short: "Review contact form messages",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List contact messages, newest first",
		Args:  cobra.NoArgs,
		RunE:  contactListCommand,
	}
	cobraflags.RegisterMap(listCmd, contactListFlags)

	contactCmd.AddCommand(listCmd)
	contactCmd.AddCommand(&cobra.Command{
		Use:   "mark-read ID...",
		Short: "Mark contact messages as read",
		Args:  cobra.MinimumNArgs(1),
		RunE:  contactBulkCommand(models.MarkContactMessagesRead, "marked as read"),
	})
	contactCmd.AddCommand(&cobra.Command{
		Use:   "mark-resolved ID...",
		Short: "Mark contact messages as resolved (and read)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  contactBulkCommand(models.MarkContactMessagesResolved, "marked as resolved"),
	})
	return contactCmd
}

func contactListCommand(cmd *cobra.Command, _ []string) error {
	var (
		f   models.ContactFilter
		err error
	)
	if f.IsRead, err = parseOptionalBool(contactListFlags[isReadFlag].GetString()); err != nil {
		return fmt.Errorf("--%s: %w", isReadFlag, err)
	}
	if f.Resolved, err = parseOptionalBool(contactListFlags[resolvedFlag].GetString()); err != nil {
		return fmt.Errorf("--%s: %w", resolvedFlag, err)
	}
	f.Search = strings.TrimSpace(contactListFlags[searchFlag].GetString())
	if f.Since, err = models.ParseDay(contactListFlags[sinceFlag].GetString()); err != nil {
		return fmt.Errorf("--%s: %w", sinceFlag, err)
	}
	if f.Until, err = models.ParseDay(contactListFlags[untilFlag].GetString()); err != nil {
		return fmt.Errorf("--%s: %w", untilFlag, err)
	}
	page, err := strconv.Atoi(contactListFlags[pageFlag].GetString())
	if err != nil || page < 1 {
		return fmt.Errorf("--%s must be a positive number", pageFlag)
	}

	_, db, err := setup()
	if err != nil {
		return err
	}
	items, total, err := models.ListContactMessages(db, f, page, 20)
	if err != nil {
		return fmt.Errorf("list contact messages: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECEIVED\tREAD\tRESOLVED\tFROM\tSUBJECT")
	for _, m := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s <%s>\t%s\n",
			m.ID, m.CreatedAt.Format("2006-01-02 15:04"), yesNo(m.IsRead), yesNo(m.Resolved), m.Name, m.Email, m.Subject)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d messages\n", len(items), total)
	return nil
}

func contactBulkCommand(action func(*gorm.DB, []uint) (int64, error), verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		_, db, err := setup()
		if err != nil {
			return err
		}
		n, err := action(db, ids)
		if err != nil {
			return fmt.Errorf("update contact messages: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), utils.CountMessage(n, "message", verb))
		return nil
	}
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func parseOptionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
