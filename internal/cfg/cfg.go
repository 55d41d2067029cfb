package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/log"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/site"
)

type App struct {
	EnvFile           string
	LogJSON           bool
	LogLevel          string
	IncludeErrorLinks bool
	MaxErrorLinks     int
	EnableTracing     bool
	OTLPEndpoint      string
	OTLPInsecure      bool
	TraceSample       float64
	DocPath           string
	Format            string
	Out               string
	MetricsTextfile   string
	Publish           bool
	S3Bucket          string
	S3Prefix          string
	SSMParam          string
	SigningKeyARN     string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.EnvFile, "env-file", ".env", "KEY=VALUE file merged into the environment before env lookup; empty disables")
	fs.BoolVar(&c.LogJSON, "log-json", false, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.BoolVar(&c.OTLPInsecure, "otlp-insecure", true, "plaintext gRPC to the OTLP endpoint")
	fs.Float64Var(&c.TraceSample, "trace-sample", 1.0, "trace sampling ratio (0..1); 0 exports no spans")
	fs.StringVar(&c.DocPath, "doc", "", "document to check (.json|.yaml); empty checks the built-in document")
	fs.StringVar(&c.Format, "format", "json", "output format json|yaml")
	fs.StringVar(&c.Out, "out", "-", "write the validated document here; - is stdout, empty disables")
	fs.StringVar(&c.MetricsTextfile, "metrics-textfile", "", "write validation metrics in Prometheus text format to this path")
	fs.BoolVar(&c.Publish, "publish", false, "upload the validated document to S3 and point the SSM parameter at it")
	fs.StringVar(&c.S3Bucket, "s3-bucket", "", "s3 bucket to publish documents to")
	fs.StringVar(&c.S3Prefix, "s3-prefix", "sites/zip-meta-map/content", "s3 prefix (key) to publish documents under")
	fs.StringVar(&c.SSMParam, "ssm-param", "/sites/zip-meta-map/content/current", "ssm parameter that holds the current document hash")
	fs.StringVar(&c.SigningKeyARN, "signing-key-arn", "", "KMS key ARN used to sign published documents (optional)")
}

// LoadEnvFile merges path into the process environment. Variables already
// set win over the file. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// document in/out
	if c.DocPath != "" {
		if _, err := site.FormatFromPath(c.DocPath); err != nil {
			errs = append(errs, fmt.Errorf("invalid DOC %q: %w", c.DocPath, err))
		}
	}
	if _, err := site.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("invalid FORMAT: %w", err))
	}

	// publishing
	if c.Publish {
		if c.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("S3_BUCKET required when PUBLISH=true"))
		}
		if c.SSMParam == "" {
			errs = append(errs, fmt.Errorf("SSM_PARAM required when PUBLISH=true"))
		} else if !strings.HasPrefix(c.SSMParam, "/") {
			errs = append(errs, fmt.Errorf("SSM_PARAM must be a hierarchical name starting with / (got %q)", c.SSMParam))
		}
		if strings.HasPrefix(c.S3Prefix, "/") || strings.HasSuffix(c.S3Prefix, "/") {
			errs = append(errs, fmt.Errorf("S3_PREFIX must not start or end with / (got %q)", c.S3Prefix))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
