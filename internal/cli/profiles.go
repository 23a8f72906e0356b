package cli

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dtroode/chatdata-server/internal/config"
	"github.com/dtroode/chatdata-server/internal/model"
)

// profileSummary is one row of the profiles listing.
type profileSummary struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Messages int    `json:"messages"`
	Unseen   int    `json:"unseen"`
}

// NewProfilesCommand creates the profiles command, an offline view of the
// configured store.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List stored profiles with their message counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(rootOpts.EnvFiles...)
			if err != nil {
				return err
			}
			// Listing must not change the schema.
			cfg.Database.Migrate = false

			st, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.close()

			profiles, err := st.profiles.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeProfiles(cmd.OutOrStdout(), rootOpts.Format, summarize(profiles))
		},
	}
}

func summarize(profiles []model.Profile) []profileSummary {
	rows := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		row := profileSummary{
			ID:       p.ID.String(),
			Nickname: p.Nickname,
			Email:    p.Email,
			Messages: len(p.Messages),
		}
		for _, m := range p.Messages {
			if !m.Seen {
				row.Unseen++
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func writeProfiles(w io.Writer, format string, rows []profileSummary) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Nickname", "ID", "Email", "Messages", "Unseen"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, r := range rows {
		table.Append([]string{r.Nickname, r.ID, r.Email, strconv.Itoa(r.Messages), strconv.Itoa(r.Unseen)})
	}
	table.Render()
	return nil
}
