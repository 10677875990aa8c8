package rekapcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/phillip-england/rekap/internal/apiapp"
	"github.com/phillip-england/rekap/internal/artifacts"
	"github.com/phillip-england/rekap/internal/attendance"
	"github.com/phillip-england/rekap/internal/clientapp"
	"github.com/phillip-england/rekap/internal/config"
	"github.com/phillip-england/rekap/internal/envutil"
	"github.com/phillip-england/rekap/internal/letter"
	"github.com/phillip-england/rekap/internal/spreadsheet"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	return execute(args, os.Stdout)
}

func execute(args []string, stdout io.Writer) error {
	if len(args) < 1 || isHelpArg(args[0]) {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:], stdout)
	case "run":
		return runCommand(args[1:])
	case "process":
		return runProcess(args[1:], stdout)
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: rekap <setup|run|process> [...]", ErrUsage)
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: rekap setup [--env-file .env] [--config-file rekap.yaml] [--force]")
	fmt.Fprintln(w, "       rekap run api|client|all")
	fmt.Fprintln(w, "       rekap process --input absensi.xlsx [--out output] [--config rekap.yaml] [--threshold 3] [--inclusive=true|false] [--letters=true]")
}

func runSetup(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	configPath := fs.String("config-file", config.DefaultPath, "path to the recap settings file")
	outputDir := fs.String("output-dir", "output", "directory for generated recap runs")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}

	values := map[string]string{
		"API_ADDR":             ":8080",
		"CLIENT_ADDR":          ":3000",
		"API_BASE_URL":         "http://localhost:8080",
		"REKAP_CONFIG":         *configPath,
		"REKAP_OUTPUT_DIR":     *outputDir,
		"REKAP_RUN_TTL":        "24h",
		"REKAP_SWEEP_SCHEDULE": "0 * * * *",
	}
	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *envPath)

	if err := config.WriteFile(*configPath, config.Default(), *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *configPath)
	return nil
}

func runCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: missing run target: api | client | all", ErrUsage)
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "api":
		return runAPI(ctx)
	case "client":
		return runClient(ctx)
	case "all":
		return runAll(ctx)
	default:
		return fmt.Errorf("%w: unknown run target %q", ErrUsage, args[0])
	}
}

func runAPI(ctx context.Context) error {
	cfg := apiapp.DefaultConfigFromEnv()
	if err := apiapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runClient(ctx context.Context) error {
	cfg := clientapp.DefaultConfigFromEnv()
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAll(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runAPI(ctx) }()
	go func() {
		time.Sleep(500 * time.Millisecond)
		errCh <- runClient(ctx)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// optionalBool is a boolean flag that records whether it was given at all.
type optionalBool struct {
	set   bool
	value bool
}

func (b *optionalBool) String() string {
	if b == nil || !b.set {
		return ""
	}
	return strconv.FormatBool(b.value)
}

func (b *optionalBool) Set(raw string) error {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", raw)
	}
	b.set, b.value = true, v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

func runProcess(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	input := fs.String("input", "", "attendance workbook (.xls or .xlsx)")
	outDir := fs.String("out", "output", "directory for the recap workbook and letters")
	configPath := fs.String("config", "", "recap settings file (defaults to REKAP_CONFIG or rekap.yaml)")
	threshold := fs.Int("threshold", -1, "absence threshold in days (overrides settings)")
	var inclusive optionalBool
	fs.Var(&inclusive, "inclusive", "escalate at the threshold (true) or only above it (false); overrides settings")
	letters := fs.Bool("letters", true, "render warning letters for escalated employees")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return usageError()
		}
		return err
	}
	if *input == "" {
		return fmt.Errorf("%w: --input is required", ErrUsage)
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	opts, err := settings.Options()
	if err != nil {
		return err
	}
	if *threshold >= 0 {
		opts.Threshold.Days = *threshold
	}
	if inclusive.set {
		opts.Threshold.Inclusive = inclusive.value
	}

	f, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	sheets, err := spreadsheet.ReadWorkbook(f, *input)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", *input, err)
	}
	report, stats, err := attendance.Run(sheets, opts)
	if err != nil {
		return err
	}
	log.Printf("processed %s: %d sheets, %d rows read, %d kept, %d dropped", filepath.Base(*input), stats.Sheets, stats.RowsRead, stats.Kept, stats.DroppedTotal())

	var renderer *letter.Renderer
	if *letters {
		renderer, err = settings.Renderer()
		if err != nil {
			return err
		}
	}
	now := time.Now()
	run, err := artifacts.DirRun(*outDir, *input, now)
	if err != nil {
		return err
	}
	if err := apiapp.Generate(run, report, renderer, settings.LetterLocale(), now); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%d employees, %d working days, %d late arrivals, %d escalations (absent %s days)\n",
		len(report.Summaries), len(report.Calendar), len(report.LateArrivals), len(report.Escalations), report.Threshold.Label())
	fmt.Fprintf(stdout, "wrote %s\n", filepath.Join(run.Dir, run.Workbook))
	for _, esc := range report.Escalations {
		if name, ok := run.Letters[esc.EmployeeID]; ok {
			fmt.Fprintf(stdout, "wrote %s\n", filepath.Join(run.Dir, name))
		}
	}
	return nil
}
