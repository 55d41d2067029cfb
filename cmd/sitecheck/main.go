package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/cfg"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/cryptoutil"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/log"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/metrics"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/otelx"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/publish"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/site"
	v "github.com/mcp-tool-shop-org/zip-meta-map-site/internal/version"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/xerrors"
)

// exit codes
const (
	exitOK      = 0
	exitInvalid = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		return exitOK
	}

	if err := cfg.LoadEnvFile(conf.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return exitConfig
	}
	cfg.FillFromEnv(flag.CommandLine, "SITECHECK_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return exitConfig
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		return exitConfig
	}
	errorLinks := 0
	if conf.IncludeErrorLinks {
		errorLinks = conf.MaxErrorLinks
	}
	lg, err := log.New(log.Options{
		App:        vi.AppName,
		Version:    vi.Version,
		Level:      lvl,
		JSONFormat: conf.LogJSON,
		ErrorLinks: errorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		return exitConfig
	}
	defer lg.Sync()
	L := lg.With("component", "sitecheck")
	ctx = log.WithContext(ctx, L)

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:  conf.EnableTracing,
		Endpoint: conf.OTLPEndpoint,
		Insecure: conf.OTLPInsecure,
		Sample:   conf.TraceSample,
		Service:  vi.AppName,
		Version:  vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		return exitConfig
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			L.Warn(ctx, "otel shutdown", "err", err)
		}
	}()

	ctx, span := otelx.Start(ctx, "sitecheck.run")
	var runErr error
	defer func() { otelx.End(span, runErr) }()

	L.Debug(ctx, "starting",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"doc", conf.DocPath,
		"format", conf.Format,
		"out", conf.Out,
		"publish", conf.Publish,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(vi)
	// metrics are flushed on every exit path once the registry exists
	defer func() {
		if conf.MetricsTextfile == "" {
			return
		}
		if err := m.WriteTextfile(conf.MetricsTextfile); err != nil {
			L.Error(ctx, err, "write metrics textfile", "path", conf.MetricsTextfile)
		}
	}()

	doc, err := loadDocument(conf.DocPath)
	if err != nil {
		L.Error(ctx, err, "load document", "path", conf.DocPath)
		runErr = err
		return exitInvalid
	}

	_, vspan := otelx.Start(ctx, "site.validate")
	start := time.Now()
	valid, err := site.Validate(doc)
	var defects site.ValidationErrors
	errors.As(err, &defects)
	m.ObserveValidation(doc, defects, time.Since(start), start)
	vspan.SetAttributes(
		attribute.Int("site.sections", len(doc.Sections)),
		attribute.Int("site.defects", len(defects)),
	)
	otelx.End(vspan, err)

	if err != nil {
		runErr = err
		for _, d := range defects {
			L.Warn(ctx, "document defect",
				"kind", d.Kind,
				"path", d.Path,
				"message", d.Message,
			)
		}
		counts := defects.CountByKind()
		L.Error(ctx, err, "document failed validation",
			"defects", len(defects),
			"structural", counts[site.StructuralError],
			"consistency", counts[site.ConsistencyError],
			"unknown_variant", counts[site.UnknownVariant],
		)
		return exitInvalid
	}

	L.Info(ctx, "document valid",
		"title", valid.Title(),
		"sections", valid.Len(),
		"anchors", valid.Anchors(),
	)

	if conf.Out != "" {
		if err := writeDocument(conf.Out, conf.Format, valid); err != nil {
			L.Error(ctx, err, "write document", "out", conf.Out)
			runErr = err
			return exitInvalid
		}
	}

	if conf.Publish {
		if err := publishDocument(ctx, L, conf, m, valid); err != nil {
			L.Error(ctx, err, "publish document",
				"bucket", conf.S3Bucket,
				"ssm_param", conf.SSMParam,
			)
			runErr = err
			return exitInvalid
		}
	}

	return exitOK
}

// loadDocument decodes path, or returns the built-in document when path is empty.
func loadDocument(path string) (*site.Document, error) {
	if path == "" {
		return site.ZipMetaMap(), nil
	}
	f, err := site.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open %s", path)
	}
	defer fh.Close()
	return site.Decode(fh, f)
}

func writeDocument(out, format string, valid *site.ValidDocument) error {
	f, err := site.ParseFormat(format)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if out != "-" {
		fh, err := os.Create(out)
		if err != nil {
			return xerrors.Wrapf(err, "create %s", out)
		}
		defer fh.Close()
		w = fh
	}
	return site.Encode(w, valid.Document(), f)
}

func publishDocument(ctx context.Context, L log.Logger, conf cfg.App, m *metrics.CheckMetrics, valid *site.ValidDocument) error {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return xerrors.Wrap(err, "load AWS config")
	}

	opts := publish.Options{
		Logger:   L.With("component", "publish"),
		S3Bucket: conf.S3Bucket,
		S3Prefix: conf.S3Prefix,
		SSMParam: conf.SSMParam,
	}
	if conf.SigningKeyARN != "" {
		opts.Signer = cryptoutil.NewKMSSigner(kms.NewFromConfig(awsCfg), conf.SigningKeyARN)
	}

	p, err := publish.New(awsCfg, opts)
	if err != nil {
		return err
	}
	res, err := p.Publish(ctx, valid)
	if err != nil {
		m.ObservePublish(err, 0)
		return err
	}
	m.ObservePublish(nil, res.Bytes)
	L.Info(ctx, "publish complete",
		"hash", res.Hash,
		"key", res.Key,
		"sig_key", res.SigKey,
		"unchanged", res.Unchanged,
	)
	return nil
}
