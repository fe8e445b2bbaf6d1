package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/volleyhq/volley/internal/config"
	"github.com/volleyhq/volley/internal/httpclient"
	"github.com/volleyhq/volley/internal/loadtest"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/output"
	"github.com/volleyhq/volley/internal/stats"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test against a target URL",
	Long: `Issue requests at a fixed rate until the request budget is exhausted,
then report aggregate latency statistics.

Quick CLI mode:
  volley run --url https://api.example.com/health --qps 50 --max-requests 500

Config file mode:
  volley run --config run.yaml

Bounded concurrency with thresholds:
  volley run --url https://api.example.com/health \
    --qps 100 --max-requests 2000 --max-concurrency 64 \
    --percentiles 50,90,99 --thresholds 250ms,500ms`,
	RunE: runLoadTest,
}

func init() {
	flags := runCmd.Flags()

	flags.String("config", "", "YAML run configuration file (overrides target flags)")
	flags.String("url", "", "URL to test")
	flags.String("method", "GET", "HTTP method (GET, POST, PUT, DELETE)")
	flags.StringArray("headers", nil, "request header as 'Key: Value' (repeatable)")
	flags.String("payload", "", "request payload")
	flags.Float64("qps", config.DefaultQPS, "target requests per second")
	flags.Duration("timeout", config.DefaultTimeout, "per-request timeout")
	flags.Int("max-requests", config.DefaultMaxRequests, "total request budget")
	flags.Int("max-concurrency", 0, "max in-flight requests (0 = unbounded)")
	flags.Float64Slice("percentiles", []float64{90}, "latency percentiles to report")
	flags.DurationSlice("thresholds", []time.Duration{250 * time.Millisecond, 500 * time.Millisecond},
		"latency thresholds for exceedance reporting")
	flags.Bool("accept-2xx", false, "count every 2xx status as success instead of only 200")
	flags.String("on-interrupt", "drain", "in-flight policy on interrupt: drain or cancel")
	flags.Bool("log", false, "append per-request lines and the report to a log file")
	flags.String("log-file", "", "log file path (default volley_<timestamp>.log)")
	flags.Bool("json", false, "print the report as JSON")
	flags.Bool("quiet", false, "suppress the progress bar")
	flags.Bool("no-color", false, "disable colored output")
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")

	client := httpclient.New(cfg.Method, cfg.URL,
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithHeaders(cfg.Headers),
		httpclient.WithPayload(cfg.Payload),
	)

	recorder := loadtest.NewRecorder(cfg.MaxRequests, cfg.IsSuccess)
	live := metrics.NewLive()

	var runLog *output.RunLog
	if cfg.LogFile != "" {
		runLog, err = output.OpenRunLog(cfg.LogFile)
		if err != nil {
			return err
		}
		defer runLog.Close()
	}

	observe := func(o loadtest.Outcome) {
		live.Record(o.Elapsed, o.Err == nil && cfg.IsSuccess(o.Status))
		if runLog != nil {
			runLog.LogOutcome(o)
		}
	}

	bar := output.NewBar(os.Stderr, cfg.MaxRequests, live)
	if quiet {
		bar.Disable()
	}

	dispatcher := loadtest.NewDispatcher(cfg, client, recorder,
		loadtest.WithProgress(bar),
		loadtest.WithObserver(observe),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := dispatcher.Run(ctx)
	bar.Finish()
	if err != nil {
		return err
	}

	report, err := stats.Compute(results.Latencies(), results.Errors, cfg.Percentiles, cfg.Thresholds)
	if err != nil {
		return err
	}

	reporter := output.NewReporter(os.Stdout, !noColor)
	if jsonOut {
		if err := reporter.PrintJSON(report); err != nil {
			return err
		}
	} else {
		reporter.PrintReport(report)
	}

	if runLog != nil {
		runLog.LogReport(report)
		fmt.Fprintf(os.Stderr, "log written to %s\n", cfg.LogFile)
	}
	return nil
}

// buildConfig assembles the run configuration from the config file or,
// absent one, from the command line flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		return config.Load(configFile)
	}

	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		return nil, fmt.Errorf("either --config or --url is required")
	}

	method, _ := cmd.Flags().GetString("method")
	headerList, _ := cmd.Flags().GetStringArray("headers")
	payload, _ := cmd.Flags().GetString("payload")
	qps, _ := cmd.Flags().GetFloat64("qps")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	maxRequests, _ := cmd.Flags().GetInt("max-requests")
	maxConcurrency, _ := cmd.Flags().GetInt("max-concurrency")
	percentiles, _ := cmd.Flags().GetFloat64Slice("percentiles")
	thresholds, _ := cmd.Flags().GetDurationSlice("thresholds")
	accept2xx, _ := cmd.Flags().GetBool("accept-2xx")
	onInterrupt, _ := cmd.Flags().GetString("on-interrupt")
	logEnabled, _ := cmd.Flags().GetBool("log")
	logFile, _ := cmd.Flags().GetString("log-file")

	headers, err := parseHeaders(headerList)
	if err != nil {
		return nil, err
	}

	if logEnabled && logFile == "" {
		logFile = output.DefaultLogPath()
	}
	if !logEnabled {
		logFile = ""
	}

	cfg := &config.Config{
		URL:            url,
		Method:         method,
		Headers:        headers,
		QPS:            qps,
		Timeout:        timeout,
		MaxRequests:    maxRequests,
		MaxConcurrency: maxConcurrency,
		Percentiles:    percentiles,
		Thresholds:     thresholds,
		LogFile:        logFile,
		AcceptAny2xx:   accept2xx,
		OnInterrupt:    config.InterruptPolicy(onInterrupt),
	}
	if payload != "" {
		cfg.Payload = []byte(payload)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseHeaders converts 'Key: Value' strings into a header map.
func parseHeaders(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, ":")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("malformed header %q (want 'Key: Value')", entry)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}
