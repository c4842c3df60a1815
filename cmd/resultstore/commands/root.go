package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoth-station/resultstore/internal/config"
	"github.com/thoth-station/resultstore/internal/metrics"
	"github.com/thoth-station/resultstore/internal/result"
	rserrors "github.com/thoth-station/resultstore/pkg/errors"
)

var (
	// Global flags
	configFile  string
	resultType  string
	deployment  string
	rootPrefix  string
	bucket      string
	host        string
	region      string
	logLevel    string
	logFormat   string
	metricsAddr string

	// Set in PersistentPreRunE; collector is stopped by Execute.
	appConfig *config.Configuration
	collector *metrics.Collector

	// storeFactory replaces the S3 client when set; tests use it.
	storeFactory result.StoreFactory
)

var rootCmd = &cobra.Command{
	Use:   "resultstore",
	Short: "Store and read Thoth analysis results",
	Long: `resultstore - manage analysis result documents in an S3-compatible store.

Documents are kept under <prefix>/<deployment>/<result type>/<hostname>.
Every document is checked against the result schema before it is written.

Settings are read from the config file (--config), then THOTH_* environment
variables, then flags:
  THOTH_DEPLOYMENT_NAME      deployment name
  THOTH_CEPH_BUCKET_PREFIX   root prefix
  THOTH_S3_ENDPOINT_URL      object store endpoint
  THOTH_CEPH_KEY_ID          access key id
  THOTH_CEPH_SECRET_KEY      secret access key
  THOTH_CEPH_BUCKET          bucket
  THOTH_CEPH_REGION          region

Examples:
  resultstore --type analysis store result.json
  resultstore --type solver list
  resultstore get fedora-28-x86_64 --type analysis`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. The metrics server is stopped afterwards
// whether or not the command failed.
func Execute() error {
	err := rootCmd.Execute()
	if stopErr := stopMetrics(); err == nil {
		err = stopErr
	}
	return err
}

// PrintError reports err on w: one JSON object when the log format is json,
// otherwise the message followed by a hint for structured errors.
func PrintError(w io.Writer, err error) {
	var rsErr *rserrors.ResultStoreError
	structured := errors.As(err, &rsErr)

	if jsonOutput() {
		if structured {
			fmt.Fprintln(w, rsErr.JSON())
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
		return
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	if structured {
		fmt.Fprintf(w, "Hint: %s\n", rsErr.GetRecommendation())
	}
}

func jsonOutput() bool {
	if appConfig != nil {
		return appConfig.Global.LogFormat == "json"
	}
	return strings.EqualFold(logFormat, "json")
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "path to a YAML config file")
	flags.StringVarP(&resultType, "type", "t", result.AnalysisResultType,
		"result type ("+strings.Join(result.ResultTypes, ", ")+")")
	flags.StringVar(&deployment, "deployment", "", "deployment name")
	flags.StringVar(&rootPrefix, "prefix", "", "root key prefix")
	flags.StringVar(&bucket, "bucket", "", "bucket name")
	flags.StringVar(&host, "host", "", "object store endpoint URL")
	flags.StringVar(&region, "region", "", "bucket region")
	flags.StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	flags.StringVar(&logFormat, "log-format", "", "text or json")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Global.LogLevel = strings.ToUpper(logLevel)
	}
	if logFormat != "" {
		cfg.Global.LogFormat = strings.ToLower(logFormat)
	}
	if metricsAddr != "" {
		cfg.Monitoring.Metrics.Addr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg

	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Global))

	m := cfg.Monitoring.Metrics
	collector, err = metrics.NewCollector(&metrics.Config{
		Enabled:   m.Enabled,
		Addr:      m.Addr,
		Path:      m.Path,
		Namespace: m.Namespace,
	})
	if err != nil {
		return err
	}
	return collector.Start(cmd.Context())
}

func stopMetrics() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return collector.Stop(ctx)
}

func newLogger(w io.Writer, g config.GlobalConfig) *slog.Logger {
	var level slog.Level
	switch g.LogLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if g.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore creates and connects the adapter selected by the global flags.
func openStore(ctx context.Context) (*result.Adapter, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	opts := []result.Option{result.WithMetrics(collector)}
	if deployment != "" {
		opts = append(opts, result.WithDeploymentName(deployment))
	}
	if rootPrefix != "" {
		opts = append(opts, result.WithPrefix(rootPrefix))
	}
	if bucket != "" {
		opts = append(opts, result.WithBucket(bucket))
	}
	if host != "" {
		opts = append(opts, result.WithHost(host))
	}
	if region != "" {
		opts = append(opts, result.WithRegion(region))
	}
	if storeFactory != nil {
		opts = append(opts, result.WithObjectStore(storeFactory))
	}

	if resultType == "" {
		return nil, fmt.Errorf("--type must not be empty")
	}
	store, err := result.New(resultType, appConfig, opts...)
	if err != nil {
		return nil, err
	}
	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
