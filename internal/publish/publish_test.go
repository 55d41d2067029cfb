package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/cryptoutil"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/site"
)

type fakeS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.meta = map[string]map[string]string{}
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = b
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

type fakeSSM struct {
	value  *string
	puts   int
	putErr error
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.value == nil {
		return nil, &ssmtypes.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: f.value}}, nil
}

func (f *fakeSSM) PutParameter(_ context.Context, in *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	if !aws.ToBool(in.Overwrite) {
		return nil, errors.New("overwrite not set")
	}
	f.puts++
	f.value = in.Value
	return &ssm.PutParameterOutput{}, nil
}

// fakeSigner "signs" with the message hash. wrongKey makes Verify reject
// everything, as a KMS key whose public half does not match would.
type fakeSigner struct {
	wrongKey bool
}

func (fakeSigner) Sign(_ context.Context, msg []byte) ([]byte, error) {
	return []byte("sig:" + cryptoutil.SHA256Hex(msg)), nil
}

func (f fakeSigner) Verify(_ context.Context, msg, sig []byte) error {
	if f.wrongKey || string(sig) != "sig:"+cryptoutil.SHA256Hex(msg) {
		return errors.New("signature verification failed")
	}
	return nil
}

func (fakeSigner) KeyARN() string { return "arn:aws:kms:us-east-2:000000000000:key/test" }

func validDoc(t *testing.T) *site.ValidDocument {
	t.Helper()
	v, err := site.Validate(site.ZipMetaMap())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return v
}

func newTestPublisher(t *testing.T, s3c *fakeS3, ssmc *fakeSSM, signer Signer) *Publisher {
	t.Helper()
	p, err := newPublisher(s3c, ssmc, Options{
		S3Bucket: "bucket",
		S3Prefix: "sites/zmm",
		SSMParam: "/sites/zmm/current",
		Signer:   signer,
	})
	if err != nil {
		t.Fatalf("newPublisher: %v", err)
	}
	return p
}

func TestNew_RequiresOptions(t *testing.T) {
	if _, err := newPublisher(&fakeS3{}, &fakeSSM{}, Options{SSMParam: "/x"}); err == nil {
		t.Fatal("expected error without bucket")
	}
	if _, err := newPublisher(&fakeS3{}, &fakeSSM{}, Options{S3Bucket: "b"}); err == nil {
		t.Fatal("expected error without ssm param")
	}
}

func TestPublish_UploadsAndMovesPointer(t *testing.T) {
	s3c, ssmc := &fakeS3{}, &fakeSSM{}
	p := newTestPublisher(t, s3c, ssmc, nil)
	v := validDoc(t)

	res, err := p.Publish(context.Background(), v)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Unchanged {
		t.Fatal("first publish should not be unchanged")
	}
	if res.Key != "sites/zmm/"+res.Hash+".json" {
		t.Fatalf("key = %s", res.Key)
	}
	body, ok := s3c.objects["bucket/"+res.Key]
	if !ok {
		t.Fatalf("object not written: %v", s3c.objects)
	}
	if got := cryptoutil.SHA256Hex(body); got != res.Hash {
		t.Fatalf("object hash %s != result hash %s", got, res.Hash)
	}
	if aws.ToString(ssmc.value) != res.Hash {
		t.Fatalf("ssm = %s, want %s", aws.ToString(ssmc.value), res.Hash)
	}
	if res.SigKey != "" {
		t.Fatal("no signer configured, SigKey should be empty")
	}

	// published bytes decode to the same document
	got, err := site.Decode(bytes.NewReader(body), site.FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := site.Validate(got); err != nil {
		t.Fatalf("published document no longer validates: %v", err)
	}
}

func TestPublish_Idempotent(t *testing.T) {
	s3c, ssmc := &fakeS3{}, &fakeSSM{}
	p := newTestPublisher(t, s3c, ssmc, nil)
	v := validDoc(t)

	if _, err := p.Publish(context.Background(), v); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	res, err := p.Publish(context.Background(), v)
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if !res.Unchanged {
		t.Fatal("second publish of same document should be unchanged")
	}
	if ssmc.puts != 1 {
		t.Fatalf("ssm puts = %d, want 1", ssmc.puts)
	}
}

func TestPublish_WritesSignature(t *testing.T) {
	s3c, ssmc := &fakeS3{}, &fakeSSM{}
	p := newTestPublisher(t, s3c, ssmc, fakeSigner{})

	res, err := p.Publish(context.Background(), validDoc(t))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.SigKey != res.Key+".sig" {
		t.Fatalf("SigKey = %s", res.SigKey)
	}
	sig := s3c.objects["bucket/"+res.SigKey]
	if string(sig) != "sig:"+res.Hash {
		t.Fatalf("signature = %q", sig)
	}
	if s3c.meta["bucket/"+res.SigKey]["key-arn"] == "" {
		t.Fatal("signature metadata missing key-arn")
	}
}

func TestPublish_VerifyFailureWritesNothing(t *testing.T) {
	old := "previous"
	s3c, ssmc := &fakeS3{}, &fakeSSM{value: &old}
	p := newTestPublisher(t, s3c, ssmc, fakeSigner{wrongKey: true})

	_, err := p.Publish(context.Background(), validDoc(t))
	if err == nil || !strings.Contains(err.Error(), "verify signature") {
		t.Fatalf("err = %v", err)
	}
	if len(s3c.objects) != 0 {
		t.Fatalf("objects written despite bad signature: %v", s3c.objects)
	}
	if aws.ToString(ssmc.value) != "previous" || ssmc.puts != 0 {
		t.Fatal("pointer must not move when the signature does not verify")
	}
}

func TestPublish_ZeroValidDocument(t *testing.T) {
	p := newTestPublisher(t, &fakeS3{}, &fakeSSM{}, nil)
	if _, err := p.Publish(context.Background(), &site.ValidDocument{}); err == nil {
		t.Fatal("expected error for a ValidDocument not built by Validate")
	}
}

func TestPublish_S3FailureLeavesPointer(t *testing.T) {
	old := "previous"
	s3c, ssmc := &fakeS3{err: errors.New("AccessDenied")}, &fakeSSM{value: &old}
	p := newTestPublisher(t, s3c, ssmc, nil)

	_, err := p.Publish(context.Background(), validDoc(t))
	if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("err = %v", err)
	}
	if aws.ToString(ssmc.value) != "previous" || ssmc.puts != 0 {
		t.Fatal("pointer must not move when upload fails")
	}
}

func TestPublish_NilDocument(t *testing.T) {
	p := newTestPublisher(t, &fakeS3{}, &fakeSSM{}, nil)
	if _, err := p.Publish(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil document")
	}
}

func TestS3Key_NoPrefix(t *testing.T) {
	p, err := newPublisher(&fakeS3{}, &fakeSSM{}, Options{S3Bucket: "b", SSMParam: "/p"})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.s3Key("abc"); got != "abc.json" {
		t.Fatalf("s3Key = %s", got)
	}
}
