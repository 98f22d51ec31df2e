package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/directory"

	"github.com/spf13/cobra"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	Force bool
}

// Backfiller imports historical introductions.
type Backfiller interface {
	Backfill(ctx context.Context, rows []app.BackfillRow, force bool) (int, error)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import <introductions.csv>",
		Short: "Backfill the introduction directory from an exported history",
		Long: `Import historical introductions from a CSV file with one of these row shapes:

  user_id,link
  user_id,chat_id,message_id

Runs once; later runs are refused unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "could not open import file", err)
			}
			defer f.Close()

			rows, err := ParseBackfillCSV(f)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid import file", err)
			}

			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			return runImport(cmd.Context(), cmd.OutOrStdout(), rt.directoryService, rows, opts.Force)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "import even if a backfill already completed")
	return cmd
}

func runImport(ctx context.Context, w io.Writer, b Backfiller, rows []app.BackfillRow, force bool) error {
	n, err := b.Backfill(ctx, rows, force)
	if errors.Is(err, app.ErrBackfillAlreadyDone) {
		return WrapExitError(ExitCommandError, "nothing imported", err)
	}
	if err != nil {
		return storeExitError(fmt.Sprintf("import stopped after %d rows", n), err)
	}
	fmt.Fprintf(w, "Imported %d introductions.\n", n)
	return nil
}

// ParseBackfillCSV reads import rows. A header row starting with "user_id" is skipped.
func ParseBackfillCSV(r io.Reader) ([]app.BackfillRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []app.BackfillRow
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if line == 1 && strings.EqualFold(rec[0], "user_id") {
			continue
		}

		userID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid user id %q", line, rec[0])
		}
		var ref directory.Reference
		switch len(rec) {
		case 2:
			if rec[1] == "" {
				return nil, fmt.Errorf("line %d: empty link", line)
			}
			ref = directory.LinkReference(rec[1])
		case 3:
			// An empty pointer would read back as a link reference.
			if rec[1] == "" || rec[2] == "" {
				return nil, fmt.Errorf("line %d: chat id and message id are both required", line)
			}
			ref = directory.MessageReference(rec[1], rec[2])
		default:
			return nil, fmt.Errorf("line %d: expected 2 or 3 fields, got %d", line, len(rec))
		}
		rows = append(rows, app.BackfillRow{UserID: userID, Ref: ref})
	}
	return rows, nil
}
