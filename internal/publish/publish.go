// Package publish uploads validated site documents to S3 and moves the SSM
// pointer that readers use to locate the current document.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/cryptoutil"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/log"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/otelx"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/site"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/xerrors"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Signer produces a detached signature over the published bytes and checks
// it against the key's public half.
type Signer interface {
	Sign(ctx context.Context, message []byte) ([]byte, error)
	Verify(ctx context.Context, message, signature []byte) error
	KeyARN() string
}

type Options struct {
	Logger log.Logger

	// S3 location for documents: s3://{bucket}/{prefix}/{hash}.json
	S3Bucket string
	S3Prefix string

	// SSM parameter that receives the document SHA256 hash
	SSMParam string

	// Signer is optional; when set a {hash}.json.sig object is written too
	Signer Signer
}

type Publisher struct {
	opts      Options
	s3Client  s3API
	ssmClient ssmAPI
	logger    log.Logger
}

// Result describes one publish call.
type Result struct {
	Hash      string
	Key       string
	SigKey    string
	Bytes     int
	Unchanged bool
}

// New creates a Publisher from an AWS config.
func New(awsCfg aws.Config, opts Options) (*Publisher, error) {
	return newPublisher(s3.NewFromConfig(awsCfg), ssm.NewFromConfig(awsCfg), opts)
}

func newPublisher(s3c s3API, ssmc ssmAPI, opts Options) (*Publisher, error) {
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Publisher{
		opts:      opts,
		s3Client:  s3c,
		ssmClient: ssmc,
		logger:    opts.Logger,
	}, nil
}

// s3Key returns the S3 object key for a given hash
func (p *Publisher) s3Key(hash string) string {
	if p.opts.S3Prefix != "" {
		return fmt.Sprintf("%s/%s.json", p.opts.S3Prefix, hash)
	}
	return fmt.Sprintf("%s.json", hash)
}

// Current returns the hash the SSM parameter points at, or "" when the
// parameter does not exist yet.
func (p *Publisher) Current(ctx context.Context) (string, error) {
	out, err := p.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(p.opts.SSMParam),
	})
	if err != nil {
		var nf *ssmtypes.ParameterNotFound
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", xerrors.Wrapf(err, "get SSM parameter %s", p.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", nil
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}

// Publish writes the canonical JSON encoding of v to S3, keyed by its
// SHA256, then points the SSM parameter at that hash. Only validated
// documents are accepted. When the parameter already holds the hash nothing
// is written.
func (p *Publisher) Publish(ctx context.Context, v *site.ValidDocument) (res *Result, err error) {
	ctx, span := otelx.Start(ctx, "publish.document")
	defer func() {
		if res != nil {
			span.SetAttributes(
				attribute.String("publish.hash", res.Hash),
				attribute.String("publish.key", res.Key),
				attribute.Bool("publish.unchanged", res.Unchanged),
			)
		}
		otelx.End(span, err)
	}()

	doc := v.Document()
	if doc == nil {
		return nil, xerrors.New("document was not produced by site.Validate")
	}

	var buf bytes.Buffer
	if err := site.Encode(&buf, doc, site.FormatJSON); err != nil {
		return nil, xerrors.Wrap(err, "encode document")
	}
	body := buf.Bytes()
	hash := cryptoutil.SHA256Hex(body)
	out := &Result{Hash: hash, Key: p.s3Key(hash), Bytes: len(body)}

	current, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}
	// our policy is to always use cryptoutil.HashEqual for comparing hashes
	if current != "" && cryptoutil.HashEqual(current, hash) {
		p.logger.Info(ctx, "document unchanged, skipping publish",
			"ssm_param", p.opts.SSMParam,
			"hash", hash,
		)
		out.Unchanged = true
		return out, nil
	}

	// sign and self-verify before anything is written, so a wrong or
	// mismatched key leaves the bucket and the pointer untouched
	var sig []byte
	if p.opts.Signer != nil {
		if sig, err = p.opts.Signer.Sign(ctx, body); err != nil {
			return nil, xerrors.Wrap(err, "sign document")
		}
		if err = p.opts.Signer.Verify(ctx, body, sig); err != nil {
			return nil, xerrors.Wrapf(err, "verify signature with %s", p.opts.Signer.KeyARN())
		}
	}

	p.logger.Info(ctx, "uploading site document",
		"bucket", p.opts.S3Bucket,
		"key", out.Key,
		"bytes", len(body),
		"brand", v.BrandName(),
	)
	if _, err := p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.opts.S3Bucket),
		Key:         aws.String(out.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"sha256": hash,
			"brand":  v.BrandName(),
		},
	}); err != nil {
		return nil, xerrors.Wrapf(err, "put S3 object s3://%s/%s", p.opts.S3Bucket, out.Key)
	}

	if sig != nil {
		out.SigKey = out.Key + ".sig"
		if _, err := p.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.opts.S3Bucket),
			Key:         aws.String(out.SigKey),
			Body:        bytes.NewReader(sig),
			ContentType: aws.String("application/octet-stream"),
			Metadata: map[string]string{
				"sha256":  hash,
				"key-arn": p.opts.Signer.KeyARN(),
			},
		}); err != nil {
			return nil, xerrors.Wrapf(err, "put S3 object s3://%s/%s", p.opts.S3Bucket, out.SigKey)
		}
	}

	// pointer moves last so readers never see a hash without its object
	if _, err := p.ssmClient.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(p.opts.SSMParam),
		Value:     aws.String(hash),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	}); err != nil {
		return nil, xerrors.Wrapf(err, "put SSM parameter %s", p.opts.SSMParam)
	}

	p.logger.Info(ctx, "published site document",
		"ssm_param", p.opts.SSMParam,
		"previous_hash", current,
		"hash", hash,
		"signed", out.SigKey != "",
	)
	return out, nil
}
