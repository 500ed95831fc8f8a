// Package main is the batch migration CLI. It upgrades a taxonomy JSON file
// to the structured method format in place or into a new file. It backs up
// the original first and prints an audit report.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/modelopt/taxonomy/internal/logger"
	"github.com/modelopt/taxonomy/internal/migration"
	"github.com/modelopt/taxonomy/internal/models"
	"github.com/modelopt/taxonomy/internal/parser"
	"github.com/modelopt/taxonomy/internal/validation"
)

const defaultInput = "backups/base_tree.json"

type options struct {
	output       string
	dryRun       bool
	validateOnly bool
	backupDir    string
	noBackup     bool
	quiet        bool
	verbose      bool
}

// job carries one CLI invocation. now is swapped in tests to pin backup
// names.
type job struct {
	opts   options
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	log    *zap.Logger
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns its exit code: 0 when the result passes
// the audit, 1 otherwise.
func run(args []string, stdout, stderr io.Writer) int {
	j := &job{stdout: stdout, stderr: stderr, now: time.Now, log: zap.NewNop()}
	return j.run(args)
}

func (j *job) run(args []string) int {
	code := 1
	cmd := newRootCmd(j, &code)
	cmd.SetArgs(args)
	cmd.SetOut(j.stdout)
	cmd.SetErr(j.stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(j.stderr, "%s %v\n", red("Error:"), err)
		return 1
	}
	return code
}

func newRootCmd(j *job, code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [input_file]",
		Short: "Migrate a taxonomy file to the structured method format",
		Long: `Migrate a taxonomy JSON file to the structured method format.

Every legacy method (bare strings, flat categories, flat performance and paper
fields) is upgraded. The result is audited and a report is printed. The input
is backed up before it is overwritten.

Examples:
  # Migrate in place with a timestamped backup under backups/
  migrate data/base_tree.json

  # Preview without writing anything
  migrate data/base_tree.json --dry-run

  # Check whether a file is already fully migrated
  migrate data/base_tree.json --validate-only`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := defaultInput
			if len(args) == 1 {
				input = args[0]
			}
			if j.opts.verbose {
				log, err := logger.New(logger.ModeDevelopment)
				if err != nil {
					return err
				}
				j.log = log
			}
			*code = j.execute(input)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&j.opts.output, "output", "o", "", "path to output file (default: overwrite input file)")
	flags.BoolVar(&j.opts.dryRun, "dry-run", false, "validate and report without writing changes")
	flags.BoolVar(&j.opts.validateOnly, "validate-only", false, "only audit the input, don't migrate")
	flags.StringVar(&j.opts.backupDir, "backup-dir", "backups", "backup directory, relative to the input file's directory")
	flags.BoolVar(&j.opts.noBackup, "no-backup", false, "skip creating a backup")
	flags.BoolVar(&j.opts.quiet, "quiet", false, "suppress output except errors")
	flags.BoolVarP(&j.opts.verbose, "verbose", "v", false, "log every legacy node as it is migrated")
	return cmd
}

func (j *job) printf(format string, args ...any) {
	if !j.opts.quiet {
		fmt.Fprintf(j.stdout, format, args...)
	}
}

func (j *job) fail(format string, args ...any) int {
	fmt.Fprintf(j.stderr, "%s %s\n", red("Error:"), fmt.Sprintf(format, args...))
	return 1
}

func (j *job) warn(format string, args ...any) {
	fmt.Fprintf(j.stderr, "%s %s\n", yellow("Warning:"), fmt.Sprintf(format, args...))
}

func (j *job) execute(input string) int {
	j.printf("Loading taxonomy from: %s\n", input)
	original, err := parser.LoadFile(input)
	if err != nil {
		var merr *parser.MalformedInputError
		switch {
		case errors.Is(err, os.ErrNotExist):
			return j.fail("Input file not found: %s", input)
		case errors.As(err, &merr):
			return j.fail("Invalid JSON in input file: %v", err)
		default:
			return j.fail("loading file: %v", err)
		}
	}

	validator := validation.New(j.log)
	if err := validator.ValidateSchemaStructure(original); err != nil {
		j.warn("Original taxonomy validation failed: %v", err)
	} else {
		j.printf("%s Original taxonomy structure is valid\n", green("✓"))
	}

	if j.opts.validateOnly {
		return j.validateOnly(original)
	}

	j.printf("Migrating taxonomy to the structured method format...\n")
	migrator := migration.New(j.log)
	migrated := migrator.MigrateTaxonomy(original)

	if err := validator.ValidateSchemaStructure(migrated); err != nil {
		j.warn("Migrated taxonomy validation failed: %v", err)
	} else {
		j.printf("%s Migrated taxonomy structure is valid\n", green("✓"))
	}

	errs := migration.Audit(migrated)
	j.printf("\n%s\n", migration.Report(migration.CollectStats(original, migrated), errs))
	if len(errs) > 0 {
		j.printf("\n%s Migration completed but %d validation errors remain\n", yellow("Warning:"), len(errs))
		j.printf("This may be expected if some fields require manual annotation.\n")
	}
	code := 0
	if len(errs) > 0 {
		code = 1
	}

	if j.opts.dryRun {
		j.printf("\n[DRY RUN] No changes written to disk\n")
		return code
	}

	if !j.opts.noBackup {
		backup, err := j.backup(input)
		if err != nil {
			return j.fail("creating backup: %v", err)
		}
		j.printf("\nBackup created: %s\n", backup)
	}

	output := j.opts.output
	if output == "" {
		output = input
	}
	if err := writeTaxonomy(output, migrated); err != nil {
		return j.fail("writing output file: %v", err)
	}
	j.printf("%s Migrated taxonomy saved to: %s\n", green("✓"), output)
	return code
}

func (j *job) validateOnly(doc models.Document) int {
	errs := migration.Audit(doc)
	if len(errs) == 0 {
		fmt.Fprintf(j.stdout, "%s Taxonomy already follows the structured method format\n", green("✓"))
		return 0
	}
	fmt.Fprintf(j.stdout, "%s Taxonomy has %d validation errors:\n", red("✗"), len(errs))
	fmt.Fprint(j.stdout, migration.FormatErrors(errs))
	return 1
}

// backup copies input to <dir>/<stem>_backup_<YYYYMMDD_HHMMSS><ext>, where a
// relative dir is resolved against the input's directory.
func (j *job) backup(input string) (string, error) {
	dir := j.opts.backupDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(input), dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	info, err := os.Stat(input)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	name := fmt.Sprintf("%s_backup_%s%s", stem, j.now().Format("20060102_150405"), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
		return "", err
	}
	return path, nil
}

// writeTaxonomy writes doc as 2-space indented JSON without HTML escaping.
func writeTaxonomy(path string, doc models.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
