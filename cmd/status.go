package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"epic-postinstall/internal/state"
)

// statusCmd prints the recorded installations of the current project.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a previous install recorded for this project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.close()

		st, err := s.prov.Status()
		if err != nil {
			return err
		}
		return renderStatus(cmd.OutOrStdout(), s.prov.Store.Path(), st)
	},
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	partialStyle = cellStyle.Foreground(lipgloss.Color("13"))
)

func renderStatus(w io.Writer, path string, st *state.State) error {
	if len(st.Installations) == 0 {
		_, err := fmt.Fprintf(w, "No installations recorded for %s (%s)\n", st.ProjectID, path)
		return err
	}

	rows := make([][]string, 0, len(st.Installations))
	for _, rec := range st.Installations {
		status := "ok"
		if len(rec.Incomplete) > 0 {
			status = "incomplete: " + strings.Join(rec.Incomplete, ", ")
		}
		rows = append(rows, []string{
			rec.Command,
			rec.Version,
			rec.BinaryPath,
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("COMMAND", "VERSION", "BINARY", "INSTALLED", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4 && len(st.Installations[row].Incomplete) > 0:
				return partialStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintf(w, "%s (%s)\n%s\n", st.ProjectID, path, t.Render())
	return err
}
