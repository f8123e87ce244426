package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/importer"
	"github.com/treefix50/recapadmin/internal/jsonvalue"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

var errImportCancelled = errors.New("import cancelled")

var nowFunc = time.Now

func newImportCommand(ctx *commandContext) *cobra.Command {
	var update bool
	var seriesID string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a series from a JSON file",
		Long: "Import a series from a JSON file (- reads stdin). The file is verified and\n" +
			"the changes are shown before two confirmations are asked for.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" && !assumeYes {
				return errors.New("reading the file from stdin requires --yes")
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			return ctx.withServices(cmd, func(svc *services) error {
				lock := flock.New(svc.cfg.LockPath())
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire import lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another import holds %s", svc.cfg.LockPath())
				}
				defer lock.Unlock()

				out := cmd.OutOrStdout()

				targetID := seriesID
				if targetID == "" && update {
					if doc, err := seriesjson.Parse(data); err == nil && jsonvalue.Truthy(doc["id"]) {
						targetID = jsonvalue.Format(doc["id"])
					}
				}
				var current map[string]any
				if targetID != "" {
					current, err = svc.catalog.Get(cmd.Context(), targetID)
					switch {
					case catalog.IsNotFound(err):
						fmt.Fprintf(out, "Series %s not found; the file will be imported as a new series\n", targetID)
						current = nil
					case err != nil:
						return err
					}
				}

				wf := importer.NewWorkflow(svc.importer, current)
				if err := wf.SetText(data); err != nil {
					return err
				}
				verification, err := wf.Verify()
				if err != nil {
					return err
				}

				if current != nil {
					fmt.Fprintf(out, "Updating %q (%s)\n", current["title"], targetID)
					if len(verification.Changes) == 0 {
						fmt.Fprintln(out, "No changes detected")
					} else {
						fmt.Fprintln(out, renderChanges(out, verification.Changes))
					}
				} else if verification.Preview != nil {
					fmt.Fprintln(out, renderPreview(out, verification.Preview))
				}

				if !assumeYes {
					in := bufio.NewReader(cmd.InOrStdin())
					if !confirm(in, out, "Proceed with the import? [y/N] ", "y", "yes") {
						fmt.Fprintln(out, errImportCancelled.Error())
						return nil
					}
					if err := wf.Confirm(); err != nil {
						return err
					}
					question := "This creates a new series. Type 'import' to confirm: "
					if current != nil {
						question = "This replaces the stored series. Type 'import' to confirm: "
					}
					if !confirm(in, out, question, "import") {
						fmt.Fprintln(out, errImportCancelled.Error())
						return nil
					}
					if err := wf.Confirm(); err != nil {
						return err
					}
				} else {
					if err := wf.Confirm(); err != nil {
						return err
					}
					if err := wf.Confirm(); err != nil {
						return err
					}
				}

				result, err := wf.Import(cmd.Context())
				if err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("import failed: %w", result.Err())
				}
				fmt.Fprintf(out, "Series %s %s\n", result.SeriesID, result.Action)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "Update the series named by the file's id")
	cmd.Flags().StringVar(&seriesID, "id", "", "Series to update")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompts")
	return cmd
}

func newDiffCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> <file>",
		Short: "Show what importing a file over a series would change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			candidate, err := seriesjson.Parse(data)
			if err != nil {
				return err
			}

			return ctx.withServices(cmd, func(svc *services) error {
				current, err := svc.catalog.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if v := seriesjson.Validate(candidate); !v.Valid {
					fmt.Fprintf(out, "Warning: %s\n", v.Error)
				}
				changes := seriesjson.Diff(current, candidate)
				if len(changes) == 0 {
					fmt.Fprintln(out, "No changes detected")
					return nil
				}
				fmt.Fprintln(out, renderChanges(out, changes))
				return nil
			})
		},
	}
}

func newPreviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "preview <file>",
		Short:       "Summarize a series file without importing it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := seriesjson.Parse(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if v := seriesjson.Validate(doc); !v.Valid {
				fmt.Fprintf(out, "Warning: %s\n", v.Error)
			}
			preview := seriesjson.ExtractPreview(doc, nowFunc())
			if preview == nil {
				return errors.New("a preview needs title, category and description")
			}
			fmt.Fprintln(out, renderPreview(out, preview))
			return nil
		},
	}
}

func renderChanges(out io.Writer, changes []seriesjson.Change) string {
	rows := make([][]string, 0, len(changes))
	for _, change := range changes {
		rows = append(rows, []string{
			change.Field,
			string(change.Kind),
			displayValue(change.OldValue),
			displayValue(change.NewValue),
		})
	}
	return renderTable(out, []string{"Field", "Change", "Old", "New"}, rows, nil)
}

func renderPreview(out io.Writer, preview *catalog.SeriesListItem) string {
	seasons := make([]string, 0, len(preview.Seasons))
	for _, season := range preview.Seasons {
		seasons = append(seasons, fmt.Sprintf("%d. %s", season.SeasonNumber, season.Title))
	}
	rows := [][]string{
		{"ID", preview.ID},
		{"Title", preview.Title},
		{"Category", preview.Category},
		{"Years", years(*preview)},
		{"Status", string(preview.Status)},
		{"Seasons", strconv.Itoa(preview.TotalSeasons)},
		{"Episodes", strconv.Itoa(preview.TotalEpisodes)},
		{"Season list", strings.Join(seasons, ", ")},
		{"Description", preview.Description},
	}
	return renderTable(out, []string{"Field", "Value"}, rows, nil)
}

func displayValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "-"
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

// confirm prints question and reports whether the answer is one of accepted.
func confirm(in *bufio.Reader, out io.Writer, question string, accepted ...string) bool {
	fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	for _, want := range accepted {
		if answer == want {
			return true
		}
	}
	return false
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
